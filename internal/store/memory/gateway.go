// Package memory is an in-memory store.Gateway used as the ledger engine's
// test double: good enough to exercise every index and conditional-update
// path without a live DynamoDB table.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

// Gateway is a goroutine-safe, fully in-memory implementation of
// store.Gateway. Every table is just a map keyed by id; indexes are
// simulated by filtering over all rows, which is the point of a mock.
type Gateway struct {
	mu     sync.RWMutex
	tables map[string]map[string]*domain.Transaction
}

// New returns an empty Gateway.
func New() *Gateway {
	return &Gateway{tables: make(map[string]map[string]*domain.Transaction)}
}

func (g *Gateway) table(name string) map[string]*domain.Transaction {
	t, ok := g.tables[name]
	if !ok {
		t = make(map[string]*domain.Transaction)
		g.tables[name] = t
	}
	return t
}

// Put inserts or replaces item by id.
func (g *Gateway) Put(ctx context.Context, table string, item *domain.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *item
	g.table(table)[item.ID] = &cp
	return nil
}

// Get returns the row with the given id, or store.ErrNotFound.
func (g *Gateway) Get(ctx context.Context, table, id string) (*domain.Transaction, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	item, ok := g.table(table)[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

// Query evaluates keyCondExpr (and, if present, opts.FilterExpr) against
// every row of table and returns matches ordered by CreatedAt, honoring
// opts.Limit and opts.ScanForward.
func (g *Gateway) Query(ctx context.Context, table, keyCondExpr string, values map[string]any, opts store.QueryOptions) ([]*domain.Transaction, error) {
	keyClauses, err := store.ParseExpression(keyCondExpr)
	if err != nil {
		return nil, err
	}
	filterClauses, err := store.ParseExpression(opts.FilterExpr)
	if err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*domain.Transaction
	for _, item := range g.table(table) {
		if !matchAll(item, keyClauses, values) {
			continue
		}
		if !matchAll(item, filterClauses, opts.FilterValues) {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if opts.ScanForward {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// UpdateConditional applies updates to the row with the given id only if
// every clause in conditionExpr holds against the row's current values.
// On mismatch (or missing row) it returns store.ErrConditionalCheckFailed,
// matching DynamoDB's ConditionalCheckFailedException semantics.
func (g *Gateway) UpdateConditional(ctx context.Context, table, id string, updates map[string]any, conditionExpr string, values map[string]any) error {
	clauses, err := store.ParseExpression(conditionExpr)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	item, ok := g.table(table)[id]
	if !ok || !matchAll(item, clauses, values) {
		return store.ErrConditionalCheckFailed
	}

	cp := *item
	applyUpdates(&cp, updates)
	g.table(table)[id] = &cp
	return nil
}

// Delete removes the row with the given id. Deleting a missing id is a no-op.
func (g *Gateway) Delete(ctx context.Context, table, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.table(table), id)
	return nil
}

// Scan pages through table in id order. LastKey is the id of the last item
// returned; passing it back as opts.LastKey resumes after that item.
func (g *Gateway) Scan(ctx context.Context, table string, opts store.ScanOptions) (store.ScanPage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.table(table)))
	for id := range g.table(table) {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if opts.LastKey != "" {
		for i, id := range ids {
			if id > opts.LastKey {
				start = i
				break
			}
			start = i + 1
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = len(ids)
	}

	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}

	var page store.ScanPage
	for _, id := range ids[start:end] {
		cp := *g.table(table)[id]
		page.Items = append(page.Items, &cp)
	}
	if end < len(ids) {
		page.LastKey = ids[end-1]
	}
	return page, nil
}

func matchAll(item *domain.Transaction, clauses []store.Clause, values map[string]any) bool {
	for _, c := range clauses {
		if !matchClause(item, c, values) {
			return false
		}
	}
	return true
}

func matchClause(item *domain.Transaction, c store.Clause, values map[string]any) bool {
	want, ok := values[c.ValuePlaceholder]
	if !ok {
		return false
	}
	got := fieldValue(item, c.Field)
	switch c.Op {
	case store.OpEQ:
		return compareEq(got, want)
	case store.OpLE, store.OpGE, store.OpLT, store.OpGT:
		return compareOrdered(got, want, c.Op)
	default:
		return false
	}
}

func fieldValue(item *domain.Transaction, field string) any {
	switch field {
	case "id":
		return item.ID
	case "userId":
		return item.UserID
	case "beneficiaryId":
		return item.BeneficiaryID
	case "transactionType":
		return string(item.TransactionType)
	case "refId":
		return item.RefID
	case "createdAt":
		return item.CreatedAt
	case "expiresAt":
		return item.ExpiresAt
	case "expiryShard":
		if item.TransactionType == domain.TransactionTypeHold {
			return domain.ExpiryShardHold
		}
		return ""
	case "state":
		if item.State == nil {
			return ""
		}
		return string(*item.State)
	case "version":
		return item.Version
	default:
		return nil
	}
}
