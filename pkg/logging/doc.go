// Package logging provides subsystem-tagged structured logging for kubeask.
//
// The package wraps Go's standard slog package and keeps a single process-wide
// logger. Every entry carries a subsystem attribute so that agent loop, tool
// execution, transport and cluster messages can be filtered independently.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Transport", "Listening on %s", addr)
//	logging.Debug("Agent", "Session %s: model requested tool %s", sid, name)
//	logging.Error("Cluster", err, "Failed to list pods in %s", ns)
//
// Init accepts Options for selecting the JSON handler, which is the format used
// when kubeask runs in-cluster behind a log collector.
//
// # Controller-Runtime and client-go
//
// Initialization also installs the handler as the controller-runtime logger, so
// kubeconfig resolution and client-go messages end up in the same stream
// instead of printing warnings about an uninitialized logger.
//
// # Audit Logging
//
// Mutating tool executions are recorded as audit events:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:    "restart_deployment",
//	    Outcome:   "success",
//	    SessionID: logging.TruncateSessionID(sessionID),
//	    Target:    "demo/web",
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix for easy
// filtering by log aggregation systems.
package logging
