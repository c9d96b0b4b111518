package ledger

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

// PurgeInput is the caller-facing request for Engine.PurgeOldRegistryRecords.
type PurgeInput struct {
	OlderThanDays int   // 0 means 365
	Limit         int   // 0 means 1000
	DryRun        *bool // nil means true
	Archive       *bool // nil means true
	MaxSeconds    int64 // 0 means unbounded

	// RateLimiter paces the archive+delete loop, one token per processed
	// record. It is built by the caller (Sweeper builds one limiter per
	// Sweeper and passes it to every retention run), not by this method.
	// Nil means unthrottled.
	RateLimiter *rate.Limiter
}

// PurgeResult reports one retention sweep.
type PurgeResult struct {
	Scanned        int
	Candidates     int
	Archived       int
	Deleted        int
	DryRun         bool
	CutoffISO      string
	DurationSeconds float64
}

// PurgeOldRegistryRecords scans the live table, archives (unless disabled or
// dryRun), and deletes rows older than olderThanDays. A failed archive write
// aborts that record's delete — archive-before-delete is never relaxed.
func (e *Engine) PurgeOldRegistryRecords(ctx context.Context, in PurgeInput) (PurgeResult, error) {
	olderThanDays := in.OlderThanDays
	if olderThanDays == 0 {
		olderThanDays = 365
	}
	limit := in.Limit
	if limit == 0 {
		limit = 1000
	}
	dryRun := in.DryRun == nil || *in.DryRun
	archiveEnabled := in.Archive == nil || *in.Archive

	start := e.deps.Clock.Now()
	cutoff := start.AddDate(0, 0, -olderThanDays)

	page, err := e.deps.Store.Scan(ctx, domain.TableTokenRegistry, store.ScanOptions{Limit: limit})
	if err != nil {
		return PurgeResult{}, reportInfra(e.deps, domain.ErrPurgeOldRegistryRecords, err, nil)
	}

	result := PurgeResult{DryRun: dryRun, CutoffISO: cutoff.UTC().Format(time.RFC3339Nano)}
	result.Scanned = len(page.Items)

	var deadline time.Time
	if in.MaxSeconds > 0 {
		deadline = start.Add(time.Duration(in.MaxSeconds) * time.Second)
	}

	for _, tx := range page.Items {
		if tx.CreatedAt.After(cutoff) || tx.CreatedAt.Equal(cutoff) {
			continue
		}
		result.Candidates++

		if dryRun {
			continue
		}

		if !deadline.IsZero() && e.deps.Clock.Now().After(deadline) {
			break
		}

		if in.RateLimiter != nil {
			if err := in.RateLimiter.Wait(ctx); err != nil {
				break
			}
		}

		if archiveEnabled {
			if err := e.deps.Archiver.Archive(ctx, tx); err != nil {
				return result, reportInfra(e.deps, domain.ErrPurgeOldRegistryRecords, fmt.Errorf("archive %s: %w", tx.ID, err), map[string]any{"id": tx.ID})
			}
			result.Archived++
		}

		if err := e.deps.Store.Delete(ctx, domain.TableTokenRegistry, tx.ID); err != nil {
			return result, reportInfra(e.deps, domain.ErrPurgeOldRegistryRecords, fmt.Errorf("delete %s: %w", tx.ID, err), map[string]any{"id": tx.ID})
		}
		result.Deleted++
	}

	result.DurationSeconds = e.deps.Clock.Now().Sub(start).Seconds()
	e.deps.Logger.Event("purgeOldRegistryRecords", map[string]any{
		"scanned": result.Scanned, "candidates": result.Candidates,
		"archived": result.Archived, "deleted": result.Deleted, "dryRun": result.DryRun,
	})
	return result, nil
}
