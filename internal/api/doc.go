// Package api holds the types shared by every kubeask package: the tool
// catalog entries, tool calls and results, conversation messages and the
// error taxonomy.
//
// Every error returned across a package boundary implements KindedError so
// transports can map it to a stable kind and status code without knowing
// where it came from:
//
//	if err != nil {
//		status := api.HTTPStatus(api.KindOf(err))
//		...
//	}
package api
