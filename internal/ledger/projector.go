package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

// Projector folds a user's transaction stream into a Balance.
type Projector struct {
	deps Deps
}

// NewProjector builds a Projector over the shared engine dependencies.
func NewProjector(deps Deps) *Projector {
	return &Projector{deps: deps}
}

// GetUserBalance runs two queries — every row where userId = U, and every
// TIP where beneficiaryId = U — and folds both streams per the per-type
// rule table.
func (p *Projector) GetUserBalance(ctx context.Context, userID string) (*domain.Balance, error) {
	ownStream, err := p.deps.Store.Query(ctx, domain.TableTokenRegistry, "userId = :userId", map[string]any{":userId": userID}, store.QueryOptions{
		Index:       domain.IndexByUserID,
		ScanForward: true,
	})
	if err != nil {
		return nil, reportInfra(p.deps, domain.ErrGetUserBalance, fmt.Errorf("query by userId: %w", err), map[string]any{"userId": userID})
	}

	tipsReceived, err := p.deps.Store.Query(ctx, domain.TableTokenRegistry, "beneficiaryId = :beneficiaryId", map[string]any{":beneficiaryId": userID}, store.QueryOptions{
		Index:      domain.IndexByBeneficiaryID,
		FilterExpr: "transactionType = :tt",
		FilterValues: map[string]any{":tt": string(domain.TransactionTypeTip)},
		ScanForward: true,
	})
	if err != nil {
		return nil, reportInfra(p.deps, domain.ErrGetUserBalance, fmt.Errorf("query by beneficiaryId: %w", err), map[string]any{"userId": userID})
	}

	now := p.deps.Clock.Now()
	balance := domain.NewBalance()

	for _, tx := range ownStream {
		foldOwnRecord(balance, tx, userID, now)
	}
	for _, tx := range tipsReceived {
		if tx.TransactionType != domain.TransactionTypeTip {
			continue
		}
		if tx.BeneficiaryID != userID {
			continue
		}
		balance.PaidTokens += tx.Amount
	}

	balance.TotalFreeTokens = 0
	for _, v := range balance.FreeTokensPerBeneficiary {
		if v > 0 {
			balance.TotalFreeTokens += v
		}
	}

	return balance, nil
}

// foldOwnRecord applies the per-type rule table for one row of U's own
// transaction stream (everything with userId = U).
func foldOwnRecord(balance *domain.Balance, tx *domain.Transaction, userID string, now time.Time) {
	switch tx.TransactionType {
	case domain.TransactionTypeCreditPaid:
		balance.PaidTokens += tx.Amount

	case domain.TransactionTypeCreditFree:
		if tx.IsExpired(now) {
			return
		}
		balance.FreeTokensPerBeneficiary[tx.BeneficiaryID] += tx.Amount

	case domain.TransactionTypeDebit:
		balance.PaidTokens -= tx.Amount
		balance.FreeTokensPerBeneficiary[tx.BeneficiaryID] -= tx.FreeBeneficiaryConsumed
		balance.FreeTokensPerBeneficiary[domain.SystemBeneficiaryID] -= tx.FreeSystemConsumed

	case domain.TransactionTypeTip:
		if tx.UserID != userID {
			return
		}
		balance.PaidTokens -= tx.Amount
		balance.FreeTokensPerBeneficiary[tx.BeneficiaryID] -= tx.FreeBeneficiaryConsumed
		balance.FreeTokensPerBeneficiary[domain.SystemBeneficiaryID] -= tx.FreeSystemConsumed

	case domain.TransactionTypeHold:
		if tx.State == nil {
			return
		}
		switch *tx.State {
		case domain.HoldStateOpen, domain.HoldStateCaptured:
			balance.PaidTokens -= tx.Amount
			balance.FreeTokensPerBeneficiary[tx.BeneficiaryID] -= tx.FreeBeneficiaryConsumed
			balance.FreeTokensPerBeneficiary[domain.SystemBeneficiaryID] -= tx.FreeSystemConsumed
		case domain.HoldStateReversed:
			// no effect
		}

	default:
		// unknown/malformed type: skip, do not raise
	}
}
