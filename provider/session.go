package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"airdemand/logger"
	"airdemand/models"
)

// ErrSuperseded is returned to a search that was replaced by a newer one
// before it resolved.
var ErrSuperseded = errors.New("search superseded by a newer query")

// Fetcher is the provider contract consumed by a Session.
type Fetcher interface {
	Fetch(ctx context.Context, origin, destination string) (*models.MarketData, error)
	Source() string
}

// Result is a committed search outcome.
type Result struct {
	RequestID   string             `json:"request_id"`
	Query       models.Query       `json:"query"`
	Source      string             `json:"source"`
	Data        *models.MarketData `json:"data"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Session holds the current query result for a single consumer. Starting a
// search cancels any search still in flight, and only the most recently
// requested search may replace the current result.
type Session struct {
	fetcher Fetcher
	log     *logger.Log

	mu       sync.Mutex
	seq      uint64
	inflight context.CancelFunc
	current  *Result
}

func NewSession(fetcher Fetcher, log *logger.Log) *Session {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Session{fetcher: fetcher, log: log}
}

// Search runs q through the provider. On failure the current result is
// cleared, matching a dashboard that shows the error instead of stale data,
// unless the search was canceled by its caller.
func (s *Session) Search(ctx context.Context, q models.Query) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.inflight != nil {
		s.inflight()
	}
	s.inflight = cancel
	s.mu.Unlock()

	requestID := uuid.NewString()
	log := s.log.WithComponent("session").WithFields(logger.Fields{
		"request_id": requestID,
		"query":      q.String(),
	})
	log.Debug("search started")

	data, err := s.fetcher.Fetch(ctx, q.Origin, q.Destination)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		log.Info("discarding superseded search result")
		return nil, ErrSuperseded
	}
	s.inflight = nil

	if err != nil {
		// A canceled search says nothing about the data, so the last good
		// result stays current.
		if !errors.Is(err, context.Canceled) {
			s.current = nil
		}
		return nil, err
	}

	s.current = &Result{
		RequestID:   requestID,
		Query:       q,
		Source:      s.fetcher.Source(),
		Data:        data,
		CompletedAt: time.Now(),
	}
	return s.current, nil
}

// Current returns the latest committed result, or nil.
func (s *Session) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
