package ledger

import (
	"context"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/websocket"
)

// Engine is the facade implementing every ledger operation. It holds the
// shared dependencies plus the writer and projector every other file in
// this package composes, and an optional websocket publisher for the
// lifecycle events a mutation should emit.
type Engine struct {
	deps      Deps
	writer    *Writer
	projector *Projector
	publisher websocket.EventPublisher
}

// NewEngine wires a ready-to-use Engine over deps. publisher may be nil, in
// which case events are dropped (equivalent to websocket.NoOpPublisher).
func NewEngine(deps Deps, publisher websocket.EventPublisher) *Engine {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &Engine{
		deps:      deps,
		writer:    NewWriter(deps),
		projector: NewProjector(deps),
		publisher: publisher,
	}
}

// publish fans a lifecycle event for tx out to its owning user's connected
// clients. It never fails a caller: a publisher error is not possible by
// contract (Publish returns nothing) — best effort, never on the critical
// path.
func (e *Engine) publish(eventType websocket.EventType, tx *domain.Transaction) {
	e.publisher.Publish(tx.UserID, websocket.TransactionEvent(eventType, tx))
}

// AddTransaction exposes the writer directly for callers that need the raw
// append primitive.
func (e *Engine) AddTransaction(ctx context.Context, req AddTransactionRequest) (*domain.Transaction, error) {
	return e.writer.AddTransaction(ctx, req)
}

// GetUserBalance folds a user's transaction stream into a Balance.
func (e *Engine) GetUserBalance(ctx context.Context, userID string) (*domain.Balance, error) {
	return e.projector.GetUserBalance(ctx, userID)
}

// ValidateSufficientTokens is a read-only check callers can run against an
// already-fetched Balance without going through Deduct or Transfer.
func (e *Engine) ValidateSufficientTokens(balance *domain.Balance, amount int64, beneficiaryID string) bool {
	return ValidateSufficientTokens(balance, amount, beneficiaryID)
}
