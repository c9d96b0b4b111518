package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

// TokenSummary is the richer balance view getUserTokenSummary returns on top
// of Engine.GetUserBalance: the raw projection plus a human-facing total.
type TokenSummary struct {
	Balance    domain.Balance
	TotalTokens int64
}

// GetUserTokenSummary wraps GetUserBalance with the combined total the
// admin and reporting surfaces display.
func (e *Engine) GetUserTokenSummary(ctx context.Context, userID string) (TokenSummary, error) {
	balance, err := e.projector.GetUserBalance(ctx, userID)
	if err != nil {
		return TokenSummary{}, err
	}
	return TokenSummary{Balance: *balance, TotalTokens: balance.PaidTokens + balance.TotalFreeTokens}, nil
}

// GetUserTransactionHistory returns a user's own transaction rows ordered by
// createdAt, newest first, bounded by limit (0 means unbounded).
func (e *Engine) GetUserTransactionHistory(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	rows, err := e.deps.Store.Query(ctx, domain.TableTokenRegistry, "userId = :userId", map[string]any{":userId": userID}, store.QueryOptions{
		Index:       domain.IndexByUserID,
		Limit:       limit,
		ScanForward: false,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrReportingQuery, err, map[string]any{"userId": userID})
	}
	return rows, nil
}

// ExpiringGrant is one still-valid CREDIT_FREE grant approaching expiry.
type ExpiringGrant struct {
	Transaction *domain.Transaction
	ExpiresIn   time.Duration
}

// GetExpiringTokensWarning returns the user's unexpired CREDIT_FREE grants
// whose expiresAt falls within the next withinSeconds.
func (e *Engine) GetExpiringTokensWarning(ctx context.Context, userID string, withinSeconds int64) ([]ExpiringGrant, error) {
	rows, err := e.deps.Store.Query(ctx, domain.TableTokenRegistry, "userId = :userId", map[string]any{":userId": userID}, store.QueryOptions{
		Index:       domain.IndexByUserID,
		FilterExpr:  "transactionType = :tt",
		FilterValues: map[string]any{":tt": string(domain.TransactionTypeCreditFree)},
		ScanForward: true,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrReportingQuery, err, map[string]any{"userId": userID})
	}

	now := e.deps.Clock.Now()
	horizon := now.Add(time.Duration(withinSeconds) * time.Second)

	var out []ExpiringGrant
	for _, tx := range rows {
		if tx.IsExpired(now) {
			continue
		}
		if tx.ExpiresAt.Equal(domain.FarFutureSentinel) || tx.ExpiresAt.After(horizon) {
			continue
		}
		out = append(out, ExpiringGrant{Transaction: tx, ExpiresIn: tx.ExpiresAt.Sub(now)})
	}
	return out, nil
}

// GetTipsReceived returns every TIP row where the user is the beneficiary.
func (e *Engine) GetTipsReceived(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	return e.queryTipsByBeneficiary(ctx, userID, nil, nil)
}

// GetTipsSent returns every TIP row the user sent.
func (e *Engine) GetTipsSent(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	rows, err := e.deps.Store.Query(ctx, domain.TableTokenRegistry, "userId = :userId", map[string]any{":userId": userID}, store.QueryOptions{
		Index:       domain.IndexByUserID,
		FilterExpr:  "transactionType = :tt",
		FilterValues: map[string]any{":tt": string(domain.TransactionTypeTip)},
		ScanForward: false,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrReportingQuery, err, map[string]any{"userId": userID})
	}
	return rows, nil
}

// GetTipsReceivedByDateRange returns tips received by userID with createdAt
// in [from, to].
func (e *Engine) GetTipsReceivedByDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.Transaction, error) {
	return e.queryTipsByBeneficiary(ctx, userID, &from, &to)
}

func (e *Engine) queryTipsByBeneficiary(ctx context.Context, beneficiaryID string, from, to *time.Time) ([]*domain.Transaction, error) {
	rows, err := e.deps.Store.Query(ctx, domain.TableTokenRegistry, "beneficiaryId = :beneficiaryId", map[string]any{":beneficiaryId": beneficiaryID}, store.QueryOptions{
		Index:       domain.IndexByBeneficiaryID,
		FilterExpr:  "transactionType = :tt",
		FilterValues: map[string]any{":tt": string(domain.TransactionTypeTip)},
		ScanForward: false,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrReportingQuery, err, map[string]any{"beneficiaryId": beneficiaryID})
	}
	if from == nil && to == nil {
		return rows, nil
	}
	out := make([]*domain.Transaction, 0, len(rows))
	for _, tx := range rows {
		if from != nil && tx.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && tx.CreatedAt.After(*to) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// GetUserEarnings sums every TIP a user received as beneficiary.
func (e *Engine) GetUserEarnings(ctx context.Context, userID string) (int64, error) {
	tips, err := e.GetTipsReceived(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, tx := range tips {
		total += tx.Amount
	}
	return total, nil
}

// GetUserSpendingByRefID sums DEBIT, TIP and captured HOLD amounts (paid +
// both free buckets) the user spent against a given refId. Open and reversed
// holds are not counted.
func (e *Engine) GetUserSpendingByRefID(ctx context.Context, userID, refID string) (int64, error) {
	rows, err := e.deps.Store.Query(ctx, domain.TableTokenRegistry, "userId = :userId AND refId = :refId", map[string]any{":userId": userID, ":refId": refID}, store.QueryOptions{
		Index:       domain.IndexByUserIDRefID,
		ScanForward: true,
	})
	if err != nil {
		return 0, reportInfra(e.deps, domain.ErrReportingQuery, err, map[string]any{"userId": userID, "refId": refID})
	}
	var total int64
	for _, tx := range rows {
		switch tx.TransactionType {
		case domain.TransactionTypeDebit, domain.TransactionTypeTip:
			total += tx.Amount + tx.FreeBeneficiaryConsumed + tx.FreeSystemConsumed
		case domain.TransactionTypeHold:
			if tx.State != nil && *tx.State == domain.HoldStateCaptured {
				total += tx.Amount + tx.FreeBeneficiaryConsumed + tx.FreeSystemConsumed
			}
		}
	}
	return total, nil
}

// GetTransactionByID returns a single row, or domain.ErrTransactionNotFound.
func (e *Engine) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := e.deps.Store.Get(ctx, domain.TableTokenRegistry, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, reportBusiness(e.deps, domain.ErrTransactionNotFound, domain.CodeTransactionNotFound, "transaction not found", map[string]any{"id": id})
	}
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrReportingQuery, err, map[string]any{"id": id})
	}
	return tx, nil
}

// GetTransactionsByRefID returns every row sharing refID, any type or state.
func (e *Engine) GetTransactionsByRefID(ctx context.Context, refID string) ([]*domain.Transaction, error) {
	rows, err := e.deps.Store.Query(ctx, domain.TableTokenRegistry, "refId = :refId", map[string]any{":refId": refID}, store.QueryOptions{
		Index:       domain.IndexByRefIDTransactionType,
		ScanForward: true,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrReportingQuery, err, map[string]any{"refId": refID})
	}
	return rows, nil
}
