package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/websocket"
)

// DeductInput is the caller-facing request for Engine.DeductTokens.
type DeductInput struct {
	UserID        string
	Amount        int64
	BeneficiaryID string
	RefID         string
	Purpose       string
	Metadata      map[string]any
}

// DeductTokens validates, projects the balance, checks sufficiency, plans
// the split, and writes one DEBIT row.
func (e *Engine) DeductTokens(ctx context.Context, in DeductInput) (*domain.Transaction, error) {
	if in.Amount <= 0 {
		return nil, reportInput(e.deps, domain.ErrInvalidAmount, domain.CodeInvalidAmount, "amount must be positive", nil)
	}
	if in.BeneficiaryID == "" {
		return nil, reportInput(e.deps, domain.ErrMissingIdentifier, domain.CodeMissingIdentifier, "beneficiaryId is required", nil)
	}

	balance, err := e.projector.GetUserBalance(ctx, in.UserID)
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrDeductTokens, fmt.Errorf("project balance: %w", err), map[string]any{"userId": in.UserID})
	}

	if !ValidateSufficientTokens(balance, in.Amount, in.BeneficiaryID) {
		return nil, reportBusiness(e.deps, domain.ErrInsufficientTokens, domain.CodeInsufficientTokens, "insufficient tokens to cover deduction", map[string]any{"userId": in.UserID, "amount": in.Amount})
	}

	split, err := PlanSplit(balance, in.Amount, in.BeneficiaryID)
	if err != nil {
		return nil, reportBusiness(e.deps, err, domain.CodeInsufficientPaidTokens, "insufficient paid tokens after applying free buckets", map[string]any{"userId": in.UserID})
	}

	metadata := map[string]any{}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	metadata["breakdown"] = split

	tx, err := e.writer.AddTransaction(ctx, AddTransactionRequest{
		UserID:                  in.UserID,
		BeneficiaryID:           in.BeneficiaryID,
		TransactionType:         domain.TransactionTypeDebit,
		Amount:                  split.Paid,
		Purpose:                 in.Purpose,
		RefID:                   in.RefID,
		Metadata:                metadata,
		FreeBeneficiaryConsumed: split.BeneficiaryFree,
		FreeSystemConsumed:      split.SystemFree,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrDeductTokens, err, map[string]any{"userId": in.UserID})
	}
	e.publish(websocket.EventTypeDebitCreated, tx)
	return tx, nil
}

// TransferInput is the caller-facing request for Engine.TransferTokens, a
// "tip" from one user to another.
type TransferInput struct {
	SenderID      string
	BeneficiaryID string
	Amount        int64
	RefID         string
	Purpose       string
	Note          string
	IsAnonymous   bool
	Metadata      map[string]any
}

// TransferTokens writes one TIP row moving amount from sender to receiver,
// drawing from the sender's free buckets before paid tokens.
func (e *Engine) TransferTokens(ctx context.Context, in TransferInput) (*domain.Transaction, error) {
	if in.SenderID == in.BeneficiaryID {
		return nil, reportInput(e.deps, domain.ErrSameBeneficiary, domain.CodeMissingIdentifier, "cannot transfer to the same user", nil)
	}
	if in.Amount <= 0 {
		return nil, reportInput(e.deps, domain.ErrInvalidAmount, domain.CodeInvalidAmount, "amount must be positive", nil)
	}
	if in.BeneficiaryID == "" {
		return nil, reportInput(e.deps, domain.ErrMissingIdentifier, domain.CodeMissingIdentifier, "beneficiaryId is required", nil)
	}

	balance, err := e.projector.GetUserBalance(ctx, in.SenderID)
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrTransferTokens, fmt.Errorf("project balance: %w", err), map[string]any{"userId": in.SenderID})
	}

	if !ValidateSufficientTokens(balance, in.Amount, in.BeneficiaryID) {
		return nil, reportBusiness(e.deps, domain.ErrInsufficientTokens, domain.CodeInsufficientTokens, "insufficient tokens to cover transfer", map[string]any{"userId": in.SenderID, "amount": in.Amount})
	}

	split, err := PlanSplit(balance, in.Amount, in.BeneficiaryID)
	if err != nil {
		return nil, reportBusiness(e.deps, err, domain.CodeInsufficientPaidTokens, "insufficient paid tokens after applying free buckets", map[string]any{"userId": in.SenderID})
	}

	metadata := map[string]any{}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	metadata["breakdown"] = split
	metadata["totalTipAmount"] = in.Amount
	metadata["isAnonymous"] = in.IsAnonymous
	if in.Note != "" {
		metadata["note"] = in.Note
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = string(domain.TransactionTypeTip)
	}

	tx, err := e.writer.AddTransaction(ctx, AddTransactionRequest{
		UserID:                  in.SenderID,
		BeneficiaryID:           in.BeneficiaryID,
		TransactionType:         domain.TransactionTypeTip,
		Amount:                  split.Paid,
		Purpose:                 purpose,
		RefID:                   in.RefID,
		Metadata:                metadata,
		FreeBeneficiaryConsumed: split.BeneficiaryFree,
		FreeSystemConsumed:      split.SystemFree,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrTransferTokens, err, map[string]any{"userId": in.SenderID})
	}

	e.publish(websocket.EventTypeTipCreated, tx)
	return tx, nil
}

// CreditPaidTokens writes a CREDIT_PAID row.
func (e *Engine) CreditPaidTokens(ctx context.Context, userID string, amount int64, purpose string, metadata map[string]any) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, reportInput(e.deps, domain.ErrInvalidAmount, domain.CodeInvalidAmount, "amount must be positive", nil)
	}

	tx, err := e.writer.AddTransaction(ctx, AddTransactionRequest{
		UserID:          userID,
		BeneficiaryID:   domain.SystemBeneficiaryID,
		TransactionType: domain.TransactionTypeCreditPaid,
		Amount:          amount,
		Purpose:         purpose,
		Metadata:        metadata,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrAddTransaction, err, map[string]any{"userId": userID})
	}
	e.publish(websocket.EventTypeCreditPaid, tx)
	return tx, nil
}

// CreditFreeTokens writes a CREDIT_FREE row. beneficiaryID is mandatory;
// purpose defaults to "free_grant".
func (e *Engine) CreditFreeTokens(ctx context.Context, userID, beneficiaryID string, amount int64, expiresAt *time.Time, purpose string, metadata map[string]any) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, reportInput(e.deps, domain.ErrInvalidAmount, domain.CodeInvalidAmount, "amount must be positive", nil)
	}
	if beneficiaryID == "" {
		return nil, reportInput(e.deps, domain.ErrMissingIdentifier, domain.CodeMissingIdentifier, "beneficiaryId is required", nil)
	}
	if purpose == "" {
		purpose = "free_grant"
	}

	resolvedExpiresAt := domain.FarFutureSentinel
	if expiresAt != nil {
		resolvedExpiresAt = *expiresAt
	}

	meta := map[string]any{}
	for k, v := range metadata {
		meta[k] = v
	}
	meta["tokenExpiresAt"] = resolvedExpiresAt.Format(time.RFC3339Nano)

	tx, err := e.writer.AddTransaction(ctx, AddTransactionRequest{
		UserID:          userID,
		BeneficiaryID:   beneficiaryID,
		TransactionType: domain.TransactionTypeCreditFree,
		Amount:          amount,
		Purpose:         purpose,
		ExpiresAt:       &resolvedExpiresAt,
		Metadata:        meta,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrAddTransaction, err, map[string]any{"userId": userID})
	}
	e.publish(websocket.EventTypeCreditFree, tx)
	return tx, nil
}
