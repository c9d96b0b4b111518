package ledger

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

// ExpiredHoldsResult reports the observability counters of one FindExpiredHolds call.
type ExpiredHoldsResult struct {
	TotalExpired int
	OpenExpired  int
	Returned     int
	Holds        []*domain.Transaction
}

// FindExpiredHolds queries the expiry-shard global view for HOLD rows whose
// expiresAt is at or before now-expiredForSeconds. Rows with a missing state
// are logged as a corruption signal and excluded; every other qualifying row
// (open, captured, or reversed) is returned up to limit, since the sweeper
// re-walks the same cutoff window on every run and relies on reverse's own
// idempotent handling of non-open rows rather than re-filtering them out
// here.
func (e *Engine) FindExpiredHolds(ctx context.Context, expiredForSeconds int64, limit int) (ExpiredHoldsResult, error) {
	if limit <= 0 {
		limit = 1000
	}
	cutoff := e.deps.Clock.Now().Add(-time.Duration(expiredForSeconds) * time.Second)

	rows, err := e.deps.Store.Query(ctx, domain.TableTokenRegistry, "expiryShard = :shard AND expiresAt <= :cutoff",
		map[string]any{":shard": domain.ExpiryShardHold, ":cutoff": cutoff},
		store.QueryOptions{Index: domain.IndexByExpiryShard, ScanForward: true})
	if err != nil {
		return ExpiredHoldsResult{}, reportInfra(e.deps, domain.ErrFindExpiredHolds, err, nil)
	}

	var result ExpiredHoldsResult
	for _, tx := range rows {
		if tx.TransactionType != domain.TransactionTypeHold {
			continue
		}
		result.TotalExpired++
		if tx.State == nil {
			reportIntegrity(e.deps, domain.CodeExpiredHoldMissingState, "expired hold row missing state", map[string]any{"id": tx.ID})
			continue
		}
		if *tx.State == domain.HoldStateOpen {
			result.OpenExpired++
		}
		if len(result.Holds) < limit {
			result.Holds = append(result.Holds, tx)
		}
	}
	result.Returned = len(result.Holds)

	e.deps.Logger.Event("findExpiredHolds", map[string]any{
		"totalExpired": result.TotalExpired,
		"openExpired":  result.OpenExpired,
		"returned":     result.Returned,
	})
	return result, nil
}

// ProcessedHoldError records one failed reverse attempt in a sweep batch.
type ProcessedHoldError struct {
	HoldID string
	UserID string
	RefID  string
	Error  string
}

// ProcessExpiredHoldsResult tallies one sweep batch.
type ProcessExpiredHoldsResult struct {
	Processed       int
	Reversed        int
	AlreadyProcessed int
	Failed          int
	Errors          []ProcessedHoldError
	Duration        time.Duration
}

// ProcessExpiredHolds runs FindExpiredHolds and attempts a reverse on every
// hold it returns, tallying the outcome: an open hold is reversed, an
// already-reversed hold counts as AlreadyProcessed, and a captured hold fails
// the reverse and counts as Failed. A single reverse failure never stops the batch. Running this
// again over already-reversed holds increments AlreadyProcessed rather than
// Reversed, making the sweep idempotent.
func (e *Engine) ProcessExpiredHolds(ctx context.Context, expiredForSeconds int64, batchSize int) (ProcessExpiredHoldsResult, error) {
	start := e.deps.Clock.Now()

	found, err := e.FindExpiredHolds(ctx, expiredForSeconds, batchSize)
	if err != nil {
		return ProcessExpiredHoldsResult{}, reportInfra(e.deps, domain.ErrProcessExpiredHolds, err, nil)
	}

	var result ProcessExpiredHoldsResult
	for _, hold := range found.Holds {
		result.Processed++

		res, err := e.reverseByID(ctx, hold.ID)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, ProcessedHoldError{
				HoldID: hold.ID, UserID: hold.UserID, RefID: hold.RefID, Error: err.Error(),
			})
		case res.AlreadyReversed || res.ReversedCount == 0:
			result.AlreadyProcessed++
		default:
			result.Reversed++
		}
	}

	result.Duration = e.deps.Clock.Now().Sub(start)
	e.deps.Logger.Event("processExpiredHolds", map[string]any{
		"processed":       result.Processed,
		"reversed":        result.Reversed,
		"alreadyProcessed": result.AlreadyProcessed,
		"failed":          result.Failed,
	})
	return result, nil
}
