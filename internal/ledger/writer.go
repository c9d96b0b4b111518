package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

// AddTransactionRequest is the writer's input contract.
type AddTransactionRequest struct {
	UserID                  string
	BeneficiaryID           string // optional; defaults to SYSTEM
	TransactionType         domain.TransactionType
	Amount                  int64
	Purpose                 string     // optional; defaults to the type name
	RefID                   string     // optional; auto-filled if empty
	ExpiresAt               *time.Time // optional; defaults to the far-future sentinel
	Metadata                map[string]any
	FreeBeneficiaryConsumed int64
	FreeSystemConsumed      int64
}

// Writer constructs and persists immutable Transaction records, applying
// defaulting and invariant checks before any row ever reaches the store.
type Writer struct {
	deps Deps
}

// NewWriter builds a Writer over the shared engine dependencies.
func NewWriter(deps Deps) *Writer {
	return &Writer{deps: deps}
}

// AddTransaction defaults, validates, serializes metadata, and persists one
// row. It never calls the store before metadata has serialized successfully,
// so a serialization failure never leaves a partial write behind.
func (w *Writer) AddTransaction(ctx context.Context, req AddTransactionRequest) (*domain.Transaction, error) {
	if req.UserID == "" {
		return nil, reportInput(w.deps, domain.ErrInvalidTransactionPayload, domain.CodeInvalidTransactionPayload, "userId is required", nil)
	}
	if !domain.ValidTransactionTypes[req.TransactionType] {
		return nil, reportInput(w.deps, domain.ErrInvalidTransactionType, domain.CodeInvalidTransactionType, "unknown transactionType", map[string]any{"transactionType": req.TransactionType})
	}
	amountF := float64(req.Amount)
	if math.IsNaN(amountF) || math.IsInf(amountF, 0) || req.Amount < 0 {
		return nil, reportInput(w.deps, domain.ErrInvalidTransactionPayload, domain.CodeInvalidTransactionPayload, "amount must be a non-negative finite integer", nil)
	}

	id := w.deps.IDGen.NewID()

	purpose := req.Purpose
	if purpose == "" {
		purpose = string(req.TransactionType)
	}

	beneficiaryID := req.BeneficiaryID
	if beneficiaryID == "" {
		beneficiaryID = domain.SystemBeneficiaryID
	}

	refID := req.RefID
	if refID == "" {
		refID = "no_ref_" + id
	}

	resolvedExpiresAt := domain.FarFutureSentinel
	if req.ExpiresAt != nil {
		resolvedExpiresAt = *req.ExpiresAt
	}

	metadataJSON, err := mergeMetadata(req.Metadata, nil)
	if err != nil {
		return nil, reportInfra(w.deps, domain.ErrAddTransaction, err, nil)
	}

	var state *domain.HoldState
	if req.TransactionType == domain.TransactionTypeHold {
		open := domain.HoldStateOpen
		state = &open
	}

	tx := &domain.Transaction{
		ID:                      id,
		UserID:                  req.UserID,
		BeneficiaryID:           beneficiaryID,
		TransactionType:         req.TransactionType,
		Amount:                  req.Amount,
		Purpose:                 purpose,
		RefID:                   refID,
		ExpiresAt:               resolvedExpiresAt,
		CreatedAt:               w.deps.Clock.Now(),
		Metadata:                metadataJSON,
		Version:                 1,
		State:                   state,
		FreeBeneficiaryConsumed: req.FreeBeneficiaryConsumed,
		FreeSystemConsumed:      req.FreeSystemConsumed,
	}

	if err := w.deps.Store.Put(ctx, domain.TableTokenRegistry, tx); err != nil {
		return nil, reportInfra(w.deps, domain.ErrAddTransaction, fmt.Errorf("store put: %w", err), map[string]any{"id": id})
	}

	w.deps.Logger.Event("addTransaction", map[string]any{"id": id, "userId": req.UserID, "transactionType": req.TransactionType})
	return tx, nil
}
