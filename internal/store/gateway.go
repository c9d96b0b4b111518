// Package store defines the narrow wide-column key/value contract the
// ledger engine requires of its backing store. The engine never imports a
// concrete backend directly — it depends on this interface so the
// production DynamoDB adapter (internal/store/dynamodb) and the in-memory
// test double (internal/store/memory) are interchangeable.
package store

import (
	"context"
	"errors"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

// ErrConditionalCheckFailed is returned by UpdateConditional when the
// condition expression does not hold against the current row. Adapters must
// map their backend's equivalent (DynamoDB's ConditionalCheckFailedException,
// a zero-rows-affected UPDATE, ...) onto this sentinel so the ledger engine
// never branches on backend-specific error types.
var ErrConditionalCheckFailed = errors.New("conditional check failed")

// ErrNotFound is returned by Get when no row exists for the given id.
var ErrNotFound = errors.New("item not found")

// QueryOptions narrows a Query call to a specific secondary index, an
// additional filter on top of the key condition, and a result limit.
type QueryOptions struct {
	Index        string
	FilterExpr   string
	FilterValues map[string]any
	Limit        int
	ScanForward  bool // true = ascending createdAt; false (the zero value) = descending
}

// ScanOptions pages through a full table; it is used only by the retention
// sweeper.
type ScanOptions struct {
	Limit   int
	LastKey string
}

// ScanPage is one page of a Scan call.
type ScanPage struct {
	Items   []*domain.Transaction
	LastKey string // empty when there are no further pages
}

// Gateway is the exact surface the ledger engine needs: put, get by id,
// query a secondary index with an optional filter, a conditional update
// guarded by a predicate over the current row, delete, and a bounded scan.
type Gateway interface {
	Put(ctx context.Context, table string, item *domain.Transaction) error
	Get(ctx context.Context, table, id string) (*domain.Transaction, error)
	Query(ctx context.Context, table, keyCondExpr string, values map[string]any, opts QueryOptions) ([]*domain.Transaction, error)
	UpdateConditional(ctx context.Context, table, id string, updates map[string]any, conditionExpr string, values map[string]any) error
	Delete(ctx context.Context, table, id string) error
	Scan(ctx context.Context, table string, opts ScanOptions) (ScanPage, error)
}
