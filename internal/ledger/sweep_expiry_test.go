package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestFindExpiredHolds_OnlyReturnsPastCutoff(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	_, err = engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, ExpiresAfterSeconds: domain.MinHoldTimeoutSeconds})
	require.NoError(t, err)

	result, err := engine.FindExpiredHolds(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalExpired)

	fc.Advance(time.Duration(domain.MinHoldTimeoutSeconds+1) * time.Second)

	result, err = engine.FindExpiredHolds(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalExpired)
	assert.Equal(t, 1, result.OpenExpired)
}

func TestProcessExpiredHolds_ReversesOpenHoldsAndIsIdempotent(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, ExpiresAfterSeconds: domain.MinHoldTimeoutSeconds})
	require.NoError(t, err)

	fc.Advance(time.Duration(domain.MinHoldTimeoutSeconds+1) * time.Second)

	result, err := engine.ProcessExpiredHolds(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Reversed)
	assert.Equal(t, 0, result.Failed)

	reloaded, err := engine.deps.Store.Get(ctx, domain.TableTokenRegistry, hold.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.State)
	assert.Equal(t, domain.HoldStateReversed, *reloaded.State)

	result2, err := engine.ProcessExpiredHolds(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result2.Processed)
	assert.Equal(t, 0, result2.Reversed)
	assert.Equal(t, 1, result2.AlreadyProcessed)
}

func TestProcessExpiredHolds_CapturedHoldNeverReversed(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, ExpiresAfterSeconds: domain.MinHoldTimeoutSeconds})
	require.NoError(t, err)

	_, err = engine.CaptureHeldTokens(ctx, CaptureInput{TransactionID: hold.ID})
	require.NoError(t, err)

	fc.Advance(time.Duration(domain.MinHoldTimeoutSeconds+1) * time.Second)

	result, err := engine.ProcessExpiredHolds(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Reversed)

	reloaded, err := engine.deps.Store.Get(ctx, domain.TableTokenRegistry, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateCaptured, *reloaded.State)
}
