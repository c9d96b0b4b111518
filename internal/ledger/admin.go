package ledger

import (
	"context"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

// AdminAdjustmentInput is the caller-facing request for
// Engine.AdjustUserTokensAdmin — an operator-initiated credit or debit
// outside the normal spend/grant flows, always carrying a reason.
type AdminAdjustmentInput struct {
	UserID        string
	BeneficiaryID string // optional; CREDIT_PAID/DEBIT default to SYSTEM
	Delta         int64  // positive credits paid tokens, negative debits them
	Reason        string
	AdminID       string
	Metadata      map[string]any
}

// AdjustUserTokensAdmin is a thin operator convenience over AddTransaction:
// a positive delta writes CREDIT_PAID, a negative delta writes DEBIT for
// abs(delta), both carrying the admin's identity and reason in metadata.
func (e *Engine) AdjustUserTokensAdmin(ctx context.Context, in AdminAdjustmentInput) (*domain.Transaction, error) {
	if in.Delta == 0 {
		return nil, reportInput(e.deps, domain.ErrInvalidAmount, domain.CodeInvalidAmount, "delta must be non-zero", nil)
	}

	meta := map[string]any{}
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta["adminId"] = in.AdminID
	meta["reason"] = in.Reason
	meta["adjustedBy"] = "admin"

	if in.Delta > 0 {
		return e.CreditPaidTokens(ctx, in.UserID, in.Delta, in.Reason, meta)
	}

	return e.writer.AddTransaction(ctx, AddTransactionRequest{
		UserID:          in.UserID,
		BeneficiaryID:   in.BeneficiaryID,
		TransactionType: domain.TransactionTypeDebit,
		Amount:          -in.Delta,
		Purpose:         in.Reason,
		Metadata:        meta,
	})
}
