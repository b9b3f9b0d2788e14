// Package transport serves the agent over HTTP.
//
// POST /ask runs one request through the agent loop for a new or existing
// session. Delivery is either synchronous (one JSON document) or streamed as
// server-sent events: one "tool" event per started and finished tool call,
// then exactly one "answer" or "error" event. Streaming is selected by the
// server's delivery mode or per request with "Accept: text/event-stream".
//
// Failures are reported as {"error": {"kind": ..., "message": ...}} with the
// status code api.HTTPStatus assigns to the error kind.
//
// The router also exposes health and readiness probes, the tool catalog,
// session inspection and cancellation, and Prometheus metrics.
package transport
