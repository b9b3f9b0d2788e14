// Package app bootstraps kubeask: it loads configuration, initializes
// logging, builds the Kubernetes client and tool registry, and runs the
// long-lived servers.
//
// # Bootstrap
//
// NewApplication performs the shared part of startup used by every command:
//
//  1. Configure logging from the debug flag (logs always go to stderr so
//     that stdout stays free for command output and the MCP stdio protocol)
//  2. Load config.yaml from the configuration directory on top of defaults
//  3. Apply command-line overrides and validate the result
//  4. Resolve Kubernetes credentials and build the tool registry
//
// The language model client is only created by Serve, so commands that
// work on the registry alone (call, mcp) need no model credentials.
//
// # Serving
//
// Serve runs, under one errgroup, the HTTP transport, the session janitor
// and, when enabled, the MCP server. The first failure cancels the others;
// cancelling the context shuts everything down gracefully. Before serving,
// the cluster is pinged once; an unreachable cluster is logged but does not
// prevent startup, and /readyz keeps reporting it.
package app
