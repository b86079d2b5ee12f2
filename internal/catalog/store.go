package catalog

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/fishfacts/internal/metrics"
)

// Store keeps browser sessions in memory, keyed by ULID. Nothing is persisted;
// a restart starts every visitor from a fresh load.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	entropy  io.Reader
	closed   bool

	// base bounds every background fetch; Close cancels it.
	base   context.Context
	cancel context.CancelFunc

	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// NewStore creates an empty session store. Sessions idle longer than ttl are
// removed by Sweep.
func NewStore(fetcher Fetcher, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Store{
		base:     base,
		cancel:   cancel,
		sessions: make(map[string]*entry),
		entropy:  ulid.Monotonic(rand.Reader, 0),
		fetcher:  fetcher,
		ttl:      ttl,
		now:      time.Now,
		metrics:  m,
		logger:   logger.Named("sessions"),
	}
}

// Create registers a new idle session.
func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	id := ulid.MustNew(ulid.Timestamp(now), st.entropy).String()
	sess := NewSession(id, st.fetcher, st.logger)
	if st.closed {
		sess.close()
	}
	st.sessions[id] = &entry{session: sess, lastSeen: now}
	st.metrics.SetSessions(len(st.sessions))

	st.logger.Debug("session created", zap.String("session", id))
	return sess
}

// Context is the parent for background fetches started on behalf of
// sessions. It outlives any single request and is cancelled by Close.
func (st *Store) Context() context.Context {
	return st.base
}

// Preview runs one synchronous load for a client that keeps no session.
// Nothing is registered, so nothing outlives the request.
func (st *Store) Preview(ctx context.Context) ViewState {
	return NewSession("", st.fetcher, st.logger).Load(ctx)
}

// Get returns the session with the given id and marks it as recently used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = st.now()
	return e.session, true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. In-flight fetches of a removed session still run to
// completion; their results are simply never shown.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for id, e := range st.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.metrics.SetSessions(len(st.sessions))
		st.logger.Debug("idle sessions removed", zap.Int("removed", removed), zap.Int("remaining", len(st.sessions)))
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Close cancels the store context, so queued and in-flight fetches end as
// failures, and makes every later background fetch fail without starting.
func (st *Store) Close() {
	st.mu.Lock()
	st.closed = true
	sessions := st.snapshotLocked()
	st.mu.Unlock()

	st.cancel()
	for _, s := range sessions {
		s.close()
	}
	st.logger.Debug("store closed", zap.Int("sessions", len(sessions)))
}

// Wait blocks until every live session's in-flight fetches resolve. Call
// Close first if handlers may still be starting fetches.
func (st *Store) Wait() {
	st.mu.Lock()
	sessions := st.snapshotLocked()
	st.mu.Unlock()

	for _, s := range sessions {
		s.Wait()
	}
}

func (st *Store) snapshotLocked() []*Session {
	sessions := make([]*Session, 0, len(st.sessions))
	for _, e := range st.sessions {
		sessions = append(sessions, e.session)
	}
	return sessions
}
