package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/fishfacts/internal/species"
)

// Fetcher reads the full, unfiltered record set from upstream.
type Fetcher interface {
	FetchSpecies(ctx context.Context) ([]species.Record, error)
}

// Session owns one catalog view. Transitions are serialized by a mutex;
// fetches run outside the lock.
//
// Overlapping requests are allowed and are never cancelled. Each request
// takes a generation number when it starts and only the most recently
// started request may change the catalog; earlier responses are dropped
// when they arrive.
type Session struct {
	ID string

	mu      sync.Mutex
	state   ViewState
	closed  bool
	fetcher Fetcher
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewSession creates an idle session with an empty catalog.
func NewSession(id string, fetcher Fetcher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		ID:      id,
		fetcher: fetcher,
		logger:  logger.With(zap.String("session", id)),
		state:   ViewState{Records: []species.Record{}},
	}
}

// State returns a snapshot of the current view state.
func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load performs the initial activation read and blocks until it completes.
func (s *Session) Load(ctx context.Context) ViewState {
	gen := s.begin(OpLoad)
	return s.finish(ctx, gen, OpLoad, "")
}

// Search re-queries upstream and replaces the catalog with the records whose
// name contains query. It always fetches; cached records are never reused.
func (s *Session) Search(ctx context.Context, query string) ViewState {
	gen := s.begin(OpSearch)
	return s.finish(ctx, gen, OpSearch, query)
}

// StartLoad is Load without blocking. The loading state is visible as soon as
// StartLoad returns; the returned channel closes when the fetch resolves.
func (s *Session) StartLoad(ctx context.Context) <-chan struct{} {
	return s.start(ctx, OpLoad, "")
}

// StartSearch is Search without blocking.
func (s *Session) StartSearch(ctx context.Context, query string) <-chan struct{} {
	return s.start(ctx, OpSearch, query)
}

// Sort reorders the current catalog and returns the new state.
func (s *Session) Sort(key species.SortKey) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Sort(s.state, key)
	return s.state
}

// SetQuery records the search box text without searching.
func (s *Session) SetQuery(query string) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SetQuery(s.state, query)
	return s.state
}

// Wait blocks until every fetch started with StartLoad/StartSearch resolves.
// While StartLoad/StartSearch may still be called concurrently, close the
// session first (Store.Close does).
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) start(ctx context.Context, op Op, query string) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	gen := s.beginLocked(op)
	if s.closed {
		s.state = Fail(s.state, gen, op)
		s.mu.Unlock()
		s.logger.Debug("request refused, session closed", zap.Stringer("op", op))
		close(done)
		return done
	}
	// Add happens under mu so it is ordered before any Wait that follows close.
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(done)
		s.finish(ctx, gen, op, query)
	}()
	return done
}

// close makes every later StartLoad/StartSearch fail at once instead of
// fetching. Fetches already started are unaffected.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) begin(op Op) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(op)
}

func (s *Session) beginLocked(op Op) uint64 {
	s.state = Begin(s.state)
	s.logger.Debug("request started", zap.Stringer("op", op), zap.Uint64("generation", s.state.Generation))
	return s.state.Generation
}

func (s *Session) finish(ctx context.Context, gen uint64, op Op, query string) ViewState {
	fetched, err := s.fetcher.FetchSpecies(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.state.Generation {
		s.logger.Debug("stale response discarded",
			zap.Stringer("op", op),
			zap.Uint64("generation", gen),
			zap.Uint64("current", s.state.Generation))
		return s.state
	}

	if err != nil {
		s.state = Fail(s.state, gen, op)
		s.logger.Info("request failed", zap.Stringer("op", op), zap.Error(err))
		return s.state
	}

	s.state = Complete(s.state, gen, op, fetched, query)
	s.logger.Debug("request completed",
		zap.Stringer("op", op),
		zap.String("query", query),
		zap.Int("fetched", len(fetched)),
		zap.Int("shown", len(s.state.Records)))
	return s.state
}
