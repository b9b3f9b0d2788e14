// Package mcpserver exposes the tool registry over the Model Context
// Protocol, so MCP clients such as IDE assistants can use the same cluster
// tools as the built-in agent.
//
// Every registry tool becomes one MCP tool with the registry's JSON Schema
// as input schema and MCP annotations derived from its effect class.
// Calls go through Registry.Execute, so argument validation, the
// blast-radius policy and auditing apply exactly as they do for the agent.
// Tool errors are returned as MCP error results carrying the stable error
// kind, never as protocol errors.
//
// Two transports are supported: streamable-http for network clients and
// stdio for clients that spawn kubeask as a subprocess.
package mcpserver
