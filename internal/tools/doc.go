// Package tools holds the closed catalog of cluster tools the agent may call.
//
// A Registry is populated once at startup from NewCatalog and frozen; after
// that it is read-only and safe for concurrent use without locking. Each tool
// is described by an api.ToolSpec whose parameters are rendered as a JSON
// Schema for model providers and MCP clients.
//
// # Validation
//
// Validate checks a tool call fail-fast and reports only the first violation:
//
//  1. missing required parameters, in declaration order
//  2. undeclared parameters, in sorted name order
//  3. type and constraint violations, in declaration order
//
// Defaults are filled in for absent optional parameters.
//
// # Blast radius
//
// MUTATING tools pass through a Policy before they run. Read-only mode refuses
// every mutation, and protected namespaces (kube-system by default) refuse
// mutations aimed at them. Refusals are ordinary tool results the model can
// read and react to. Every mutating execution is written to the audit log.
package tools
