package agent

import (
	"time"

	"kubeask/internal/api"
)

// EventType identifies what happened in a run.
type EventType string

const (
	EventToolStarted  EventType = "tool_started"
	EventToolFinished EventType = "tool_finished"
	EventAnswer       EventType = "answer"
	EventAborted      EventType = "aborted"
)

// Event describes progress of a run.
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Iteration int                    `json:"iteration"`
	CallID    string                 `json:"call_id,omitempty"`
	ToolName  string                 `json:"tool_name,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Status    api.ResultStatus       `json:"status,omitempty"`
	ErrorKind api.ErrorKind          `json:"error_kind,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Answer    string                 `json:"answer,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Observer receives run events. OnEvent is called synchronously from the
// loop goroutine and must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

func emit(obs Observer, e Event) {
	if obs == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	obs.OnEvent(e)
}
