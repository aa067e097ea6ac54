// Package historian moves game action records from the Redis queue into Postgres in batches.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. Pop returns nil, nil when nothing arrived in time.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error)
}

// Store persists action records.
type Store interface {
	SaveActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Config tunes batching and abandonment.
type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity is how long a game may go without actions before it is marked abandoned.
	Inactivity time.Duration
	// PopTimeout bounds each blocking read so shutdown is noticed.
	PopTimeout time.Duration
	// MaxAttempts is how many times a batch may fail before it is saved record by record.
	MaxAttempts int
}

// Service captures game actions and flushes them to the store.
type Service struct {
	source Source
	store  Store
	cfg    Config
	logger *logrus.Logger

	batchMu  sync.Mutex
	batch    []cache.GameActionRecord
	failures int // consecutive failed flushes of the current batch

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time
}

// NewService builds a Service. Zero config values fall back to defaults.
func NewService(source Source, store Store, cfg Config, logger *logrus.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = 10 * time.Minute
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Service{
		source:       source,
		store:        store,
		cfg:          cfg,
		logger:       logger,
		batch:        make([]cache.GameActionRecord, 0, cfg.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run reads, batches and flushes until ctx is cancelled. Whatever is still batched is
// flushed before Run returns.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("daifugo historian started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.readLoop(ctx)
	wg.Wait()

	// Final flush with a fresh context; ctx is already done.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(flushCtx)
	s.logger.Info("daifugo historian stopped")
}

// readLoop pops records one at a time and appends them to the batch. While the batch is
// full (the store is failing) nothing is popped, so records wait in Redis.
func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		if s.full() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.FlushDelay):
			}
			continue
		}
		rec, err := s.source.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Error("failed to pop action record")
			continue
		}
		if rec == nil {
			continue
		}
		s.touch(rec.GameID)
		s.add(ctx, *rec)
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// add appends a record and flushes once the batch is full.
func (s *Service) add(ctx context.Context, rec cache.GameActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.flush(ctx)
	}
}

func (s *Service) full() bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch) >= s.cfg.BatchSize
}

// flush writes the current batch in one transaction. A failed batch is kept for the next
// attempt; after MaxAttempts failures it is split up by salvage.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	if len(s.batch) == 0 {
		return
	}
	pending := make([]cache.GameActionRecord, len(s.batch))
	copy(pending, s.batch)

	err := s.store.SaveActions(ctx, pending)
	if err == nil {
		s.batch = s.batch[:0]
		s.failures = 0
		s.logger.WithField("count", len(pending)).Debug("flushed actions")
		return
	}
	s.failures++
	s.logger.WithError(err).WithFields(logrus.Fields{
		"count":   len(pending),
		"attempt": s.failures,
	}).Error("failed to flush actions")
	if s.failures >= s.cfg.MaxAttempts {
		s.salvage(ctx, pending)
	}
}

// salvage saves pending one record at a time. If any record goes through the store is up,
// so the records that still fail can never be written and are dropped. If none go through
// the whole batch is kept. Called with batchMu held.
func (s *Service) salvage(ctx context.Context, pending []cache.GameActionRecord) {
	var failed []cache.GameActionRecord
	for _, rec := range pending {
		if err := s.store.SaveActions(ctx, []cache.GameActionRecord{rec}); err != nil {
			failed = append(failed, rec)
		}
	}
	if len(failed) == len(pending) {
		return
	}
	for _, rec := range failed {
		s.logger.WithFields(logrus.Fields{
			"game":   rec.GameID,
			"action": rec.ActionIndex,
			"type":   rec.ActionType,
		}).Error("dropping action record the store rejects")
	}
	s.batch = s.batch[:0]
	s.failures = 0
}

func (s *Service) touch(gameID uuid.UUID) {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	s.lastActivity[gameID] = time.Now()
}

func (s *Service) inactivityLoop(ctx context.Context) {
	interval := s.cfg.Inactivity / 10
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepInactive(ctx, now)
		}
	}
}

// sweepInactive marks games that have been silent longer than the inactivity threshold.
func (s *Service) sweepInactive(ctx context.Context, now time.Time) {
	s.activityMu.Lock()
	var stale []uuid.UUID
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.cfg.Inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	for _, id := range stale {
		if err := s.store.MarkAbandoned(ctx, id); err != nil {
			s.logger.WithError(err).WithField("game", id).Error("failed to mark game abandoned")
			continue
		}
		s.logger.WithField("game", id).Info("marked game abandoned due to inactivity")
	}
}
