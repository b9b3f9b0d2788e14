// Package agent runs the tool-calling loop that turns an operator's question
// into an answer built from live cluster state.
//
// # State Machine
//
// Each Run drives one session through these states:
//
//	            ┌──────────────────┐   final answer    ┌──────┐
//	 query ───▶ │  AWAITING_MODEL  │ ────────────────▶ │ DONE │
//	            └──────────────────┘                   └──────┘
//	               ▲           │ one tool call
//	   result      │           ▼
//	   appended    │  ┌──────────────────┐
//	               └──│  EXECUTING_TOOL  │
//	                  └──────────────────┘
//
//	 budget exhausted, cancellation or an unreachable model ──▶ ABORTED
//
// The model is called once per iteration under its own timeout. A tool call
// is validated and executed through the tool registry under a separate
// timeout, and its result, successful or not, is appended to the session
// before the model is asked again. Unknown tools, invalid arguments and
// malformed model output never end a run: they become ERROR tool results the
// model can correct itself from.
//
// # Step Budget
//
// A session allows at most MaxIterations tool rounds per request. Every round
// counts, including rejected calls and model timeouts, so a misbehaving model
// cannot keep a run alive. When the model asks for another round after the
// budget is spent, Run stops with a fixed answer and a
// *api.StepBudgetExceededError.
//
// # Cancellation
//
// Run checks for cancellation at the top of every iteration and after each
// tool round. Cancellation comes from the caller's context or from
// session.Store.Cancel. The session history always ends on a complete
// call/result pair: a tool call interrupted by cancellation is dropped rather
// than recorded without its result.
//
// # Observing a Run
//
// An Observer receives an Event when a tool starts and finishes and when the
// run ends. The HTTP transport uses this to stream progress to the client.
package agent
