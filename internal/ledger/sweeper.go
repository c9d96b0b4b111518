package ledger

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

// SweeperConfig holds the tunables for Sweeper's two background loops.
type SweeperConfig struct {
	ExpiryInterval          time.Duration
	ExpiryExpiredForSeconds int64
	ExpiryBatchSize         int
	RetentionInterval       time.Duration
	RetentionOlderThanDays  int
	RetentionLimit          int
	RetentionDryRun         bool
	RetentionArchive        bool
	RetentionMaxSeconds     int64
	// RetentionRecordsPerSecond paces the retention sweep's archive+delete
	// loop against TOKEN_REGISTRY. 0 means unthrottled.
	RetentionRecordsPerSecond float64
}

// DefaultSweeperConfig returns sensible defaults for both loops.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		ExpiryInterval:            1 * time.Minute,
		ExpiryExpiredForSeconds:   0,
		ExpiryBatchSize:           1000,
		RetentionInterval:         24 * time.Hour,
		RetentionOlderThanDays:    365,
		RetentionLimit:            1000,
		RetentionDryRun:           true,
		RetentionArchive:          true,
		RetentionMaxSeconds:       0,
		RetentionRecordsPerSecond: 0,
	}
}

// Sweeper runs the expiry and retention sweeps on independent tickers. It
// mirrors a periodic background worker: run once on start, then on every
// tick, until Stop is called or the context is cancelled.
type Sweeper struct {
	engine *Engine
	cfg    SweeperConfig

	// retentionLimiter paces the retention sweep's per-record archive+delete
	// work against TableTokenRegistry. Nil when RetentionRecordsPerSecond is 0.
	retentionLimiter *rate.Limiter

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSweeper wires a Sweeper over engine.
func NewSweeper(engine *Engine, cfg SweeperConfig) *Sweeper {
	if cfg.ExpiryInterval <= 0 {
		cfg.ExpiryInterval = 1 * time.Minute
	}
	if cfg.ExpiryBatchSize <= 0 {
		cfg.ExpiryBatchSize = 1000
	}
	if cfg.RetentionInterval <= 0 {
		cfg.RetentionInterval = 24 * time.Hour
	}
	if cfg.RetentionOlderThanDays <= 0 {
		cfg.RetentionOlderThanDays = 365
	}
	if cfg.RetentionLimit <= 0 {
		cfg.RetentionLimit = 1000
	}

	var limiter *rate.Limiter
	if cfg.RetentionRecordsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RetentionRecordsPerSecond), cfg.RetentionLimit)
	}

	return &Sweeper{
		engine:           engine,
		cfg:              cfg,
		retentionLimiter: limiter,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}, 2),
	}
}

// Start launches both loops in their own goroutines. Safe to call once; a
// second call on an already-running Sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.engine.deps.Logger.Event("sweeperStarted", map[string]any{
		"expiryInterval":    s.cfg.ExpiryInterval.String(),
		"retentionInterval": s.cfg.RetentionInterval.String(),
	})

	go s.runExpiryLoop(ctx)
	go s.runRetentionLoop(ctx)
}

// Stop signals both loops to exit and blocks until they have.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	<-s.doneCh
}

func (s *Sweeper) runExpiryLoop(ctx context.Context) {
	defer func() { s.doneCh <- struct{}{} }()

	s.runExpirySweep(ctx)

	ticker := time.NewTicker(s.cfg.ExpiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runExpirySweep(ctx)
		}
	}
}

func (s *Sweeper) runExpirySweep(ctx context.Context) {
	result, err := s.engine.ProcessExpiredHolds(ctx, s.cfg.ExpiryExpiredForSeconds, s.cfg.ExpiryBatchSize)
	if err != nil {
		s.engine.deps.Logger.Error("expirySweepFailed", err, nil)
		return
	}
	if result.Processed > 0 {
		s.engine.deps.Logger.Event("expirySweepCompleted", map[string]any{
			"processed":        result.Processed,
			"reversed":         result.Reversed,
			"alreadyProcessed": result.AlreadyProcessed,
			"failed":           result.Failed,
		})
	}
}

func (s *Sweeper) runRetentionLoop(ctx context.Context) {
	defer func() { s.doneCh <- struct{}{} }()

	s.runRetentionSweep(ctx)

	ticker := time.NewTicker(s.cfg.RetentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runRetentionSweep(ctx)
		}
	}
}

func (s *Sweeper) runRetentionSweep(ctx context.Context) {
	dryRun := s.cfg.RetentionDryRun
	archiveEnabled := s.cfg.RetentionArchive
	result, err := s.engine.PurgeOldRegistryRecords(ctx, PurgeInput{
		OlderThanDays: s.cfg.RetentionOlderThanDays,
		Limit:         s.cfg.RetentionLimit,
		DryRun:        &dryRun,
		Archive:       &archiveEnabled,
		MaxSeconds:    s.cfg.RetentionMaxSeconds,
		RateLimiter:   s.retentionLimiter,
	})
	if err != nil {
		s.engine.deps.Logger.Error("retentionSweepFailed", err, nil)
		return
	}
	s.engine.deps.Logger.Event("retentionSweepCompleted", map[string]any{
		"table":      domain.TableTokenRegistry,
		"scanned":    result.Scanned,
		"candidates": result.Candidates,
		"archived":   result.Archived,
		"deleted":    result.Deleted,
		"dryRun":     result.DryRun,
	})
}

// IsRunning reports whether the sweeper's loops are active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
