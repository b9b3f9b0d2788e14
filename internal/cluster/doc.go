// Package cluster is the only part of kubeask that talks to the Kubernetes
// API server.
//
// The Adapter wraps a client-go clientset and exposes one method per
// capability offered to the agent: listing and describing pods, nodes,
// deployments, services, namespaces and events, reading pod logs, and the two
// mutating operations (rollout restart and scale). Results are returned as
// small JSON-friendly views rather than raw API objects, and every call is
// fetched fresh from the API server.
//
// Every call is bounded by the adapter's timeout. Failures are translated into
// the error taxonomy of the api package:
//
//   - NotFound responses become *api.NotFoundError
//   - deadline expiry becomes *api.TimeoutError
//   - connection-level failures become *api.TransportFault (source "cluster")
//   - any other API status becomes *api.ClusterError
//
// Mutations are written to be idempotent: a restart patches the pod template
// annotation kubectl uses for "rollout restart" and a scale sets an absolute
// replica count, so retrying either is safe.
package cluster
