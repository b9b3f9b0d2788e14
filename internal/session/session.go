package session

import (
	"sync"
	"time"

	"kubeask/internal/api"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusAborted   Status = "ABORTED"
)

// Session is one conversation. Only the lease holder may mutate it.
type Session struct {
	ID             string
	Messages       []api.Message
	IterationCount int
	MaxIterations  int
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time

	mu        sync.Mutex
	cancel    func()
	cancelled bool
}

// Append adds a message to the history.
func (s *Session) Append(msg api.Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

// ToolPairs counts completed call/result pairs in the history.
func (s *Session) ToolPairs() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == api.RoleTool && m.ToolResult != nil {
			n++
		}
	}
	return n
}

// Cancelled reports whether Cancel was requested for the running loop.
func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// SetCancelFunc registers the function invoked when the session is cancelled.
// If cancellation was already requested, cancel runs immediately.
func (s *Session) SetCancelFunc(cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
	if s.cancelled && cancel != nil {
		cancel()
	}
}

func (s *Session) resetCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
	s.cancelled = false
}

func (s *Session) requestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Snapshot is a read-only copy of a session for inspection endpoints.
type Snapshot struct {
	ID             string        `json:"session_id"`
	Status         Status        `json:"status"`
	IterationCount int           `json:"iteration_count"`
	MaxIterations  int           `json:"max_iterations"`
	Busy           bool          `json:"busy"`
	Messages       []api.Message `json:"messages"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
