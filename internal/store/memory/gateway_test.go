package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

func TestGateway_PutGet_RoundTrips(t *testing.T) {
	g := New()
	ctx := context.Background()
	tx := &domain.Transaction{ID: "tx-1", UserID: "alice", Amount: 10, CreatedAt: time.Now()}

	require.NoError(t, g.Put(ctx, domain.TableTokenRegistry, tx))

	got, err := g.Get(ctx, domain.TableTokenRegistry, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, tx.Amount, got.Amount)
}

func TestGateway_Get_MissingReturnsErrNotFound(t *testing.T) {
	g := New()
	_, err := g.Get(context.Background(), domain.TableTokenRegistry, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGateway_Put_CopiesSoMutationDoesNotLeak(t *testing.T) {
	g := New()
	ctx := context.Background()
	tx := &domain.Transaction{ID: "tx-1", UserID: "alice", Amount: 10, CreatedAt: time.Now()}
	require.NoError(t, g.Put(ctx, domain.TableTokenRegistry, tx))

	tx.Amount = 999
	got, err := g.Get(ctx, domain.TableTokenRegistry, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Amount)
}

func TestGateway_Query_FiltersAndOrdersByCreatedAt(t *testing.T) {
	g := New()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, g.Put(ctx, domain.TableTokenRegistry, &domain.Transaction{ID: "a", UserID: "alice", CreatedAt: base}))
	require.NoError(t, g.Put(ctx, domain.TableTokenRegistry, &domain.Transaction{ID: "b", UserID: "alice", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, g.Put(ctx, domain.TableTokenRegistry, &domain.Transaction{ID: "c", UserID: "bob", CreatedAt: base}))

	rows, err := g.Query(ctx, domain.TableTokenRegistry, "userId = :userId", map[string]any{":userId": "alice"}, store.QueryOptions{ScanForward: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "b", rows[1].ID)
}

func TestGateway_UpdateConditional_FailsOnVersionMismatch(t *testing.T) {
	g := New()
	ctx := context.Background()
	open := domain.HoldStateOpen
	require.NoError(t, g.Put(ctx, domain.TableTokenRegistry, &domain.Transaction{ID: "h", Version: 1, State: &open}))

	err := g.UpdateConditional(ctx, domain.TableTokenRegistry, "h",
		map[string]any{"version": int64(2)},
		"version = :version AND state = :state",
		map[string]any{":version": int64(5), ":state": "open"})
	assert.ErrorIs(t, err, store.ErrConditionalCheckFailed)
}

func TestGateway_UpdateConditional_SucceedsAndPersists(t *testing.T) {
	g := New()
	ctx := context.Background()
	open := domain.HoldStateOpen
	require.NoError(t, g.Put(ctx, domain.TableTokenRegistry, &domain.Transaction{ID: "h", Version: 1, State: &open}))

	captured := domain.HoldStateCaptured
	err := g.UpdateConditional(ctx, domain.TableTokenRegistry, "h",
		map[string]any{"state": captured, "version": int64(2)},
		"version = :version AND state = :state",
		map[string]any{":version": int64(1), ":state": "open"})
	require.NoError(t, err)

	got, err := g.Get(ctx, domain.TableTokenRegistry, "h")
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateCaptured, *got.State)
	assert.Equal(t, int64(2), got.Version)
}

func TestGateway_Delete_MissingIsNoOp(t *testing.T) {
	g := New()
	assert.NoError(t, g.Delete(context.Background(), domain.TableTokenRegistry, "missing"))
}

func TestGateway_Scan_PagesThroughResults(t *testing.T) {
	g := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.Put(ctx, domain.TableTokenRegistry, &domain.Transaction{ID: id, CreatedAt: time.Now()}))
	}

	page1, err := g.Scan(ctx, domain.TableTokenRegistry, store.ScanOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 2)
	assert.NotEmpty(t, page1.LastKey)

	page2, err := g.Scan(ctx, domain.TableTokenRegistry, store.ScanOptions{Limit: 2, LastKey: page1.LastKey})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
}
