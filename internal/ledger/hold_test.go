package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestHoldTokens_RejectsTimeoutOutOfBounds(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.HoldTokens(context.Background(), HoldInput{
		UserID: "alice", BeneficiaryID: "alice", Amount: 10, ExpiresAfterSeconds: 60,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidHoldTimeout)
}

func TestHoldTokens_DefaultsTimeoutWhenZero(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	tx, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10})
	require.NoError(t, err)
	assert.Equal(t, fc.Now().Add(1800*time.Second), tx.ExpiresAt)
}

func TestHoldTokens_RejectsDuplicateOpenRefID(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	_, err = engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, RefID: "order-1"})
	require.NoError(t, err)

	_, err = engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, RefID: "order-1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateHoldRefID)
}

func TestHoldCaptureReverse_Monotonicity(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10})
	require.NoError(t, err)

	res, err := engine.CaptureHeldTokens(ctx, CaptureInput{TransactionID: hold.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CapturedCount)
	assert.False(t, res.AlreadyCaptured)

	res2, err := engine.CaptureHeldTokens(ctx, CaptureInput{TransactionID: hold.ID})
	require.NoError(t, err)
	assert.True(t, res2.AlreadyCaptured)

	_, err = engine.ReverseHeldTokens(ctx, ReverseInput{TransactionID: hold.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyCaptured)
}

func TestReverseHeldTokens_IdempotentOnAlreadyReversed(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10})
	require.NoError(t, err)

	res, err := engine.ReverseHeldTokens(ctx, ReverseInput{TransactionID: hold.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ReversedCount)

	res2, err := engine.ReverseHeldTokens(ctx, ReverseInput{TransactionID: hold.ID})
	require.NoError(t, err)
	assert.True(t, res2.AlreadyReversed)

	_, err = engine.CaptureHeldTokens(ctx, CaptureInput{TransactionID: hold.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
}

func TestCaptureHeldTokens_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.CaptureHeldTokens(context.Background(), CaptureInput{TransactionID: "does-not-exist"})
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestExtendExpiry_PushesExpiryForward(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10})
	require.NoError(t, err)
	originalExpiry := hold.ExpiresAt

	extended, err := engine.ExtendExpiry(ctx, ExtendInput{TransactionID: hold.ID, ExtendBySeconds: 600})
	require.NoError(t, err)
	assert.True(t, extended.ExpiresAt.After(originalExpiry))
}

func TestExtendExpiry_RejectsExceedingMaxTotal(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, ExpiresAfterSeconds: 300})
	require.NoError(t, err)

	_, err = engine.ExtendExpiry(ctx, ExtendInput{TransactionID: hold.ID, ExtendBySeconds: 600, MaxTotalSeconds: 400})
	assert.Error(t, err)
}

func TestExtendExpiry_RejectsAlreadyCaptured(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10})
	require.NoError(t, err)

	_, err = engine.CaptureHeldTokens(ctx, CaptureInput{TransactionID: hold.ID})
	require.NoError(t, err)

	_, err = engine.ExtendExpiry(ctx, ExtendInput{TransactionID: hold.ID, ExtendBySeconds: 600})
	assert.ErrorIs(t, err, domain.ErrAlreadyCaptured)
}

func TestCaptureByRefID_CapturesAllOpenHoldsForRef(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	_, err = engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, RefID: "order-9"})
	require.NoError(t, err)

	res, err := engine.CaptureHeldTokens(ctx, CaptureInput{RefID: "order-9"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CapturedCount)
}
