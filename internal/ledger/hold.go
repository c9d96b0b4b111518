package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
	"github.com/dafibh/fortuna/tokenledger/internal/websocket"
)

// HoldInput is the caller-facing request for Engine.HoldTokens.
type HoldInput struct {
	UserID              string
	Amount              int64
	BeneficiaryID       string
	RefID               string
	ExpiresAfterSeconds int64 // 0 means domain.DefaultHoldTimeoutSeconds
	Purpose             string
	Metadata            map[string]any
}

// HoldTokens reserves spend intent against a future capture or reverse.
func (e *Engine) HoldTokens(ctx context.Context, in HoldInput) (*domain.Transaction, error) {
	expiresAfter := in.ExpiresAfterSeconds
	if expiresAfter == 0 {
		expiresAfter = domain.DefaultHoldTimeoutSeconds
	}
	if expiresAfter < domain.MinHoldTimeoutSeconds || expiresAfter > domain.MaxHoldTimeoutSeconds {
		return nil, reportInput(e.deps, domain.ErrInvalidHoldTimeout, domain.CodeInvalidHoldTimeout, "expiresAfter must be between 300 and 3600 seconds", map[string]any{"expiresAfter": expiresAfter})
	}
	if in.Amount <= 0 {
		return nil, reportInput(e.deps, domain.ErrInvalidAmount, domain.CodeInvalidAmount, "amount must be positive", nil)
	}
	if in.BeneficiaryID == "" {
		return nil, reportInput(e.deps, domain.ErrMissingIdentifier, domain.CodeMissingIdentifier, "beneficiaryId is required", nil)
	}

	if in.RefID != "" {
		if err := e.rejectDuplicateOpenHold(ctx, in.RefID); err != nil {
			return nil, err
		}
	}

	balance, err := e.projector.GetUserBalance(ctx, in.UserID)
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrHoldTokens, fmt.Errorf("project balance: %w", err), map[string]any{"userId": in.UserID})
	}
	if !ValidateSufficientTokens(balance, in.Amount, in.BeneficiaryID) {
		return nil, reportBusiness(e.deps, domain.ErrInsufficientTokens, domain.CodeInsufficientTokens, "insufficient tokens to cover hold", map[string]any{"userId": in.UserID, "amount": in.Amount})
	}
	split, err := PlanSplit(balance, in.Amount, in.BeneficiaryID)
	if err != nil {
		return nil, reportBusiness(e.deps, domain.ErrInsufficientTokens, domain.CodeInsufficientTokens, "insufficient tokens to cover hold", map[string]any{"userId": in.UserID})
	}

	now := e.deps.Clock.Now()
	expiresAt := now.Add(time.Duration(expiresAfter) * time.Second)

	entry := domain.AuditEntry{
		Timestamp:          now,
		Action:             "Token hold created",
		Status:             "HOLD",
		Breakdown:          &split,
		HoldExpiresAt:      &expiresAt,
		ExpiryAfterSeconds: &expiresAfter,
	}

	meta := map[string]any{}
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta["auditTrail"] = []domain.AuditEntry{entry}

	tx, err := e.writer.AddTransaction(ctx, AddTransactionRequest{
		UserID:                  in.UserID,
		BeneficiaryID:           in.BeneficiaryID,
		TransactionType:         domain.TransactionTypeHold,
		Amount:                  split.Paid,
		Purpose:                 in.Purpose,
		RefID:                   in.RefID,
		ExpiresAt:               &expiresAt,
		Metadata:                meta,
		FreeBeneficiaryConsumed: split.BeneficiaryFree,
		FreeSystemConsumed:      split.SystemFree,
	})
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrHoldTokens, err, map[string]any{"userId": in.UserID})
	}
	e.publish(websocket.EventTypeHoldCreated, tx)
	return tx, nil
}

// rejectDuplicateOpenHold rejects a new hold request if an open hold already
// exists for refID. Rows with a missing state are skipped but flagged to the
// error sink as a corruption signal rather than treated as a match.
func (e *Engine) rejectDuplicateOpenHold(ctx context.Context, refID string) error {
	rows, err := e.queryHoldsByRefID(ctx, refID)
	if err != nil {
		return reportInfra(e.deps, domain.ErrHoldTokens, err, map[string]any{"refId": refID})
	}
	for _, tx := range rows {
		if tx.State == nil {
			reportIntegrity(e.deps, domain.CodeHoldMissingState, "hold row missing state", map[string]any{"id": tx.ID, "refId": refID})
			continue
		}
		if *tx.State == domain.HoldStateOpen {
			return reportBusiness(e.deps, domain.ErrDuplicateHoldRefID, domain.CodeDuplicateHoldRefID, "an open hold already exists for this refId", map[string]any{"refId": refID})
		}
	}
	return nil
}

// queryHoldsByRefID returns every HOLD row for refID, in any state.
func (e *Engine) queryHoldsByRefID(ctx context.Context, refID string) ([]*domain.Transaction, error) {
	rows, err := e.deps.Store.Query(ctx, domain.TableTokenRegistry, "refId = :refId", map[string]any{":refId": refID}, store.QueryOptions{
		Index:       domain.IndexByRefIDState,
		FilterExpr:  "transactionType = :tt",
		FilterValues: map[string]any{":tt": string(domain.TransactionTypeHold)},
		ScanForward: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Transaction, 0, len(rows))
	for _, tx := range rows {
		if tx.TransactionType == domain.TransactionTypeHold {
			out = append(out, tx)
		}
	}
	return out, nil
}

// updateHoldConditional performs a version/state-guarded conditional update:
// condition `version = oldVersion AND state = 'open'`.
func (e *Engine) updateHoldConditional(ctx context.Context, tx *domain.Transaction, newState domain.HoldState, entry domain.AuditEntry, extra map[string]any) error {
	newMetadata, err := appendAuditEntry(tx.Metadata, entry)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"state":    newState,
		"version":  tx.Version + 1,
		"metadata": newMetadata,
	}
	for k, v := range extra {
		updates[k] = v
	}
	cond := "version = :version AND state = :state"
	values := map[string]any{":version": tx.Version, ":state": string(domain.HoldStateOpen)}
	return e.deps.Store.UpdateConditional(ctx, domain.TableTokenRegistry, tx.ID, updates, cond, values)
}

// CaptureInput selects a hold (or a refId-addressed set of holds) to
// capture. Exactly one of TransactionID or RefID should be set.
type CaptureInput struct {
	TransactionID string
	RefID         string
}

// CaptureResult reports the outcome of Engine.CaptureHeldTokens.
type CaptureResult struct {
	CapturedCount  int
	AlreadyCaptured bool
}

// CaptureHeldTokens finalizes a hold as permanent spend. It does not write
// an additional DEBIT row: the captured HOLD row is itself the permanent
// spend.
func (e *Engine) CaptureHeldTokens(ctx context.Context, in CaptureInput) (CaptureResult, error) {
	if in.TransactionID != "" {
		return e.captureByID(ctx, in.TransactionID)
	}
	return e.captureByRefID(ctx, in.RefID)
}

func (e *Engine) captureByID(ctx context.Context, id string) (CaptureResult, error) {
	tx, err := e.deps.Store.Get(ctx, domain.TableTokenRegistry, id)
	if errors.Is(err, store.ErrNotFound) {
		return CaptureResult{}, reportBusiness(e.deps, domain.ErrTransactionNotFound, domain.CodeTransactionNotFound, "transaction not found", map[string]any{"id": id})
	}
	if err != nil {
		return CaptureResult{}, reportInfra(e.deps, domain.ErrCaptureHeldTokens, err, map[string]any{"id": id})
	}
	if tx.State == nil {
		reportIntegrity(e.deps, domain.CodeHoldMissingState, "hold row missing state", map[string]any{"id": id})
		return CaptureResult{}, reportBusiness(e.deps, domain.ErrNoHeldTokens, domain.CodeNoHeldTokens, "no held tokens found", map[string]any{"id": id})
	}
	switch *tx.State {
	case domain.HoldStateCaptured:
		return CaptureResult{AlreadyCaptured: true}, nil
	case domain.HoldStateReversed:
		return CaptureResult{}, reportBusiness(e.deps, domain.ErrAlreadyReversed, domain.CodeAlreadyReversed, "hold already reversed", map[string]any{"id": id})
	}

	entry := domain.AuditEntry{Timestamp: e.deps.Clock.Now(), Action: "Token hold captured", Status: "CAPTURED"}
	err = e.updateHoldConditional(ctx, tx, domain.HoldStateCaptured, entry, nil)
	if errors.Is(err, store.ErrConditionalCheckFailed) {
		return CaptureResult{CapturedCount: 0}, nil
	}
	if err != nil {
		return CaptureResult{}, reportInfra(e.deps, domain.ErrCaptureHeldTokens, err, map[string]any{"id": id})
	}
	e.publish(websocket.EventTypeHoldCaptured, tx)
	return CaptureResult{CapturedCount: 1}, nil
}

func (e *Engine) captureByRefID(ctx context.Context, refID string) (CaptureResult, error) {
	rows, err := e.queryHoldsByRefID(ctx, refID)
	if err != nil {
		return CaptureResult{}, reportInfra(e.deps, domain.ErrCaptureHeldTokens, err, map[string]any{"refId": refID})
	}

	var open []*domain.Transaction
	anyCaptured := false
	for _, tx := range rows {
		if tx.State == nil {
			reportIntegrity(e.deps, domain.CodeHoldMissingState, "hold row missing state", map[string]any{"id": tx.ID, "refId": refID})
			continue
		}
		switch *tx.State {
		case domain.HoldStateOpen:
			open = append(open, tx)
		case domain.HoldStateCaptured:
			anyCaptured = true
		}
	}

	if len(open) == 0 {
		if anyCaptured {
			return CaptureResult{AlreadyCaptured: true}, nil
		}
		return CaptureResult{}, reportBusiness(e.deps, domain.ErrNoHeldTokens, domain.CodeNoHeldTokens, "no held tokens found", map[string]any{"refId": refID})
	}

	count := 0
	for _, tx := range open {
		entry := domain.AuditEntry{Timestamp: e.deps.Clock.Now(), Action: "Token hold captured", Status: "CAPTURED"}
		if err := e.updateHoldConditional(ctx, tx, domain.HoldStateCaptured, entry, nil); err != nil {
			if errors.Is(err, store.ErrConditionalCheckFailed) {
				continue
			}
			reportInfra(e.deps, domain.ErrCaptureHeldTokens, err, map[string]any{"id": tx.ID, "refId": refID})
			continue
		}
		count++
		e.publish(websocket.EventTypeHoldCaptured, tx)
	}
	return CaptureResult{CapturedCount: count}, nil
}

// ReverseInput selects a hold (or a refId-addressed set of holds) to
// reverse. Exactly one of TransactionID or RefID should be set.
type ReverseInput struct {
	TransactionID string
	RefID         string
}

// ReverseResult reports the outcome of Engine.ReverseHeldTokens.
type ReverseResult struct {
	ReversedCount  int
	AlreadyReversed bool
}

// ReverseHeldTokens releases a hold's reserved amount back to the balance.
func (e *Engine) ReverseHeldTokens(ctx context.Context, in ReverseInput) (ReverseResult, error) {
	if in.TransactionID != "" {
		return e.reverseByID(ctx, in.TransactionID)
	}
	return e.reverseByRefID(ctx, in.RefID)
}

func (e *Engine) reverseByID(ctx context.Context, id string) (ReverseResult, error) {
	tx, err := e.deps.Store.Get(ctx, domain.TableTokenRegistry, id)
	if errors.Is(err, store.ErrNotFound) {
		return ReverseResult{}, reportBusiness(e.deps, domain.ErrTransactionNotFound, domain.CodeTransactionNotFound, "transaction not found", map[string]any{"id": id})
	}
	if err != nil {
		return ReverseResult{}, reportInfra(e.deps, domain.ErrReverseHeldTokens, err, map[string]any{"id": id})
	}
	if tx.State == nil {
		reportIntegrity(e.deps, domain.CodeHoldMissingState, "hold row missing state", map[string]any{"id": id})
		return ReverseResult{}, reportBusiness(e.deps, domain.ErrNoHeldTokens, domain.CodeNoHeldTokens, "no held tokens found", map[string]any{"id": id})
	}
	switch *tx.State {
	case domain.HoldStateReversed:
		return ReverseResult{AlreadyReversed: true}, nil
	case domain.HoldStateCaptured:
		return ReverseResult{}, reportBusiness(e.deps, domain.ErrAlreadyCaptured, domain.CodeAlreadyCaptured, "hold already captured", map[string]any{"id": id})
	}

	entry := domain.AuditEntry{Timestamp: e.deps.Clock.Now(), Action: "Token hold reversed", Status: "REVERSED"}
	err = e.updateHoldConditional(ctx, tx, domain.HoldStateReversed, entry, nil)
	if errors.Is(err, store.ErrConditionalCheckFailed) {
		return ReverseResult{ReversedCount: 0}, nil
	}
	if err != nil {
		return ReverseResult{}, reportInfra(e.deps, domain.ErrReverseHeldTokens, err, map[string]any{"id": id})
	}
	e.publish(websocket.EventTypeHoldReversed, tx)
	return ReverseResult{ReversedCount: 1}, nil
}

func (e *Engine) reverseByRefID(ctx context.Context, refID string) (ReverseResult, error) {
	rows, err := e.queryHoldsByRefID(ctx, refID)
	if err != nil {
		return ReverseResult{}, reportInfra(e.deps, domain.ErrReverseHeldTokens, err, map[string]any{"refId": refID})
	}

	var open []*domain.Transaction
	for _, tx := range rows {
		if tx.State == nil {
			reportIntegrity(e.deps, domain.CodeHoldMissingState, "hold row missing state", map[string]any{"id": tx.ID, "refId": refID})
			continue
		}
		if *tx.State == domain.HoldStateOpen {
			open = append(open, tx)
		}
	}

	if len(open) == 0 {
		return ReverseResult{ReversedCount: 0}, nil
	}

	count := 0
	for _, tx := range open {
		entry := domain.AuditEntry{Timestamp: e.deps.Clock.Now(), Action: "Token hold reversed", Status: "REVERSED"}
		if err := e.updateHoldConditional(ctx, tx, domain.HoldStateReversed, entry, nil); err != nil {
			if errors.Is(err, store.ErrConditionalCheckFailed) {
				continue
			}
			reportInfra(e.deps, domain.ErrReverseHeldTokens, err, map[string]any{"id": tx.ID, "refId": refID})
			continue
		}
		count++
		e.publish(websocket.EventTypeHoldReversed, tx)
	}
	return ReverseResult{ReversedCount: count}, nil
}

// ExtendInput is the caller-facing request for Engine.ExtendExpiry. Exactly
// one of TransactionID or RefID should be set.
type ExtendInput struct {
	TransactionID   string
	RefID           string
	ExtendBySeconds int64
	MaxTotalSeconds int64 // 0 means unbounded
}

// ExtendExpiry pushes a still-open hold's expiresAt further into the future.
func (e *Engine) ExtendExpiry(ctx context.Context, in ExtendInput) (*domain.Transaction, error) {
	if in.ExtendBySeconds <= 0 {
		return nil, reportInfra(e.deps, domain.ErrExtendExpiry, fmt.Errorf("extendBySeconds is required"), nil)
	}

	tx, err := e.resolveSingleOpenHold(ctx, in.TransactionID, in.RefID)
	if err != nil {
		return nil, err
	}

	previousExpiresAt := tx.ExpiresAt
	newExpiresAt := previousExpiresAt.Add(time.Duration(in.ExtendBySeconds) * time.Second)
	if in.MaxTotalSeconds > 0 {
		totalSeconds := int64(newExpiresAt.Sub(tx.CreatedAt).Seconds())
		if totalSeconds > in.MaxTotalSeconds {
			return nil, reportBusiness(e.deps, fmt.Errorf("extend would exceed maximum hold duration"), domain.CodeInvalidHoldTimeout, "extending would push expiresAt beyond maxTotalSeconds", map[string]any{"id": tx.ID})
		}
	}

	extendBySeconds := in.ExtendBySeconds
	entry := domain.AuditEntry{
		Timestamp:         e.deps.Clock.Now(),
		Status:            "EXTENDED",
		ExtendedBySeconds: &extendBySeconds,
		PreviousExpiresAt: &previousExpiresAt,
		NewExpiresAt:      &newExpiresAt,
	}

	err = e.updateHoldConditional(ctx, tx, domain.HoldStateOpen, entry, map[string]any{"expiresAt": newExpiresAt})
	if errors.Is(err, store.ErrConditionalCheckFailed) {
		return nil, reportBusiness(e.deps, domain.ErrAlreadyProcessed, domain.CodeAlreadyProcessed, "already captured or reversed", map[string]any{"id": tx.ID})
	}
	if err != nil {
		return nil, reportInfra(e.deps, domain.ErrExtendExpiry, err, map[string]any{"id": tx.ID})
	}

	tx.ExpiresAt = newExpiresAt
	tx.Version++
	e.publish(websocket.EventTypeHoldExtended, tx)
	return tx, nil
}

// resolveSingleOpenHold looks a hold up by id, or by refId (taking the first
// open row found for it), and validates it is still open.
func (e *Engine) resolveSingleOpenHold(ctx context.Context, transactionID, refID string) (*domain.Transaction, error) {
	var tx *domain.Transaction
	if transactionID != "" {
		var err error
		tx, err = e.deps.Store.Get(ctx, domain.TableTokenRegistry, transactionID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, reportBusiness(e.deps, domain.ErrTransactionNotFound, domain.CodeTransactionNotFound, "transaction not found", map[string]any{"id": transactionID})
		}
		if err != nil {
			return nil, reportInfra(e.deps, domain.ErrExtendExpiry, err, map[string]any{"id": transactionID})
		}
	} else {
		rows, err := e.queryHoldsByRefID(ctx, refID)
		if err != nil {
			return nil, reportInfra(e.deps, domain.ErrExtendExpiry, err, map[string]any{"refId": refID})
		}
		for _, row := range rows {
			if row.State != nil && *row.State == domain.HoldStateOpen {
				tx = row
				break
			}
		}
		if tx == nil {
			return nil, reportBusiness(e.deps, domain.ErrNoHeldTokens, domain.CodeNoHeldTokens, "no held tokens found", map[string]any{"refId": refID})
		}
	}

	if tx.State == nil {
		reportIntegrity(e.deps, domain.CodeHoldMissingState, "hold row missing state", map[string]any{"id": tx.ID})
		return nil, reportBusiness(e.deps, domain.ErrNoHeldTokens, domain.CodeNoHeldTokens, "no held tokens found", map[string]any{"id": tx.ID})
	}
	switch *tx.State {
	case domain.HoldStateCaptured:
		return nil, reportBusiness(e.deps, domain.ErrAlreadyCaptured, domain.CodeAlreadyCaptured, "hold already captured", map[string]any{"id": tx.ID})
	case domain.HoldStateReversed:
		return nil, reportBusiness(e.deps, domain.ErrAlreadyReversed, domain.CodeAlreadyReversed, "hold already reversed", map[string]any{"id": tx.ID})
	}
	return tx, nil
}
