package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"kubeask/internal/api"
	"kubeask/pkg/logging"
)

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = 30 * time.Minute

type record struct {
	session  *Session
	leased   bool
	lastUsed time.Time
}

// Store holds sessions in memory. The mutex guards only the map and lease
// flags; a Session itself is owned by its lease holder.
type Store struct {
	mu            sync.Mutex
	records       map[string]*record
	maxIterations int
	idleTTL       time.Duration
	now           func() time.Time
}

// NewStore creates a store whose new sessions carry maxIterations as their
// step budget.
func NewStore(maxIterations int, idleTTL time.Duration) *Store {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Store{
		records:       make(map[string]*record),
		maxIterations: maxIterations,
		idleTTL:       idleTTL,
		now:           time.Now,
	}
}

// Acquire leases the session with id, creating a new one when id is empty.
// It fails with *api.NotFoundError for unknown ids and *api.SessionBusyError
// when the session is already leased.
func (s *Store) Acquire(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id == "" {
		sess := &Session{
			ID:            uuid.NewString(),
			MaxIterations: s.maxIterations,
			Status:        StatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		s.records[sess.ID] = &record{session: sess, leased: true, lastUsed: now}
		logging.Debug("Session", "Created session %s", logging.TruncateSessionID(sess.ID))
		return sess, nil
	}

	rec, ok := s.records[id]
	if !ok {
		return nil, api.NewSessionNotFoundError(id)
	}
	if rec.leased {
		return nil, &api.SessionBusyError{SessionID: id}
	}
	rec.leased = true
	rec.lastUsed = now
	// A finished conversation can continue with a fresh step budget.
	rec.session.Status = StatusActive
	rec.session.IterationCount = 0
	rec.session.resetCancel()
	return rec.session, nil
}

// Release returns the lease on sess.
func (s *Store) Release(sess *Session) {
	sess.SetCancelFunc(nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[sess.ID]; ok {
		rec.leased = false
		rec.lastUsed = s.now()
	}
}

// Cancel requests cancellation of the loop currently running sess. It
// returns *api.NotFoundError for unknown ids and reports whether a loop was
// running.
func (s *Store) Cancel(id string) (bool, error) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return false, api.NewSessionNotFoundError(id)
	}
	if !rec.leased {
		s.mu.Unlock()
		return false, nil
	}
	rec.session.requestCancel()
	s.mu.Unlock()

	logging.Info("Session", "Cancellation requested for session %s", logging.TruncateSessionID(id))
	return true, nil
}

// Get returns a snapshot of the session with id. The message history is only
// copied while the session is not leased, so a running loop is never read
// concurrently.
func (s *Store) Get(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Snapshot{}, api.NewSessionNotFoundError(id)
	}
	snap := Snapshot{
		ID:            rec.session.ID,
		MaxIterations: rec.session.MaxIterations,
		Busy:          rec.leased,
		CreatedAt:     rec.session.CreatedAt,
	}
	if !rec.leased {
		snap.Status = rec.session.Status
		snap.IterationCount = rec.session.IterationCount
		snap.Messages = slices.Clone(rec.session.Messages)
		snap.UpdatedAt = rec.session.UpdatedAt
	} else {
		snap.Status = StatusActive
	}
	return snap, nil
}

// Delete removes an idle session. Leased sessions cannot be deleted.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return api.NewSessionNotFoundError(id)
	}
	if rec.leased {
		return &api.SessionBusyError{SessionID: id}
	}
	delete(s.records, id)
	return nil
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// EvictIdle removes unleased sessions idle for longer than the TTL and
// returns how many were removed.
func (s *Store) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	evicted := 0
	for id, rec := range s.records {
		if !rec.leased && rec.lastUsed.Before(cutoff) {
			delete(s.records, id)
			evicted++
		}
	}
	return evicted
}

// RunJanitor evicts idle sessions periodically until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.idleTTL / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				logging.Debug("Session", "Evicted %d idle sessions", n)
			}
		}
	}
}
