package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestGetUserTokenSummary_CombinesPaidAndFree(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)
	_, err = engine.CreditFreeTokens(ctx, "alice", "alice", 20, nil, "", nil)
	require.NoError(t, err)

	summary, err := engine.GetUserTokenSummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(120), summary.TotalTokens)
}

func TestGetUserTransactionHistory_NewestFirstAndLimited(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 10, "first", nil)
	require.NoError(t, err)
	fc.Advance(time.Second)
	second, err := engine.CreditPaidTokens(ctx, "alice", 10, "second", nil)
	require.NoError(t, err)

	rows, err := engine.GetUserTransactionHistory(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)
}

func TestGetExpiringTokensWarning_ExcludesFarFutureAndExpired(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()

	soon := fc.Now().Add(time.Hour)
	_, err := engine.CreditFreeTokens(ctx, "alice", "alice", 10, &soon, "", nil)
	require.NoError(t, err)

	_, err = engine.CreditFreeTokens(ctx, "alice", "alice", 10, nil, "", nil)
	require.NoError(t, err)

	past := fc.Now().Add(-time.Hour)
	_, err = engine.CreditFreeTokens(ctx, "alice", "alice", 10, &past, "", nil)
	require.NoError(t, err)

	warnings, err := engine.GetExpiringTokensWarning(ctx, "alice", 7200)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.True(t, warnings[0].Transaction.ExpiresAt.Equal(soon))
}

func TestGetUserEarnings_SumsTipsReceived(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	_, err = engine.TransferTokens(ctx, TransferInput{SenderID: "alice", BeneficiaryID: "bob", Amount: 15})
	require.NoError(t, err)
	_, err = engine.TransferTokens(ctx, TransferInput{SenderID: "alice", BeneficiaryID: "bob", Amount: 5})
	require.NoError(t, err)

	earnings, err := engine.GetUserEarnings(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(20), earnings)
}

func TestGetUserSpendingByRefID_SumsDebitAndCapturedHold(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	_, err = engine.DeductTokens(ctx, DeductInput{UserID: "alice", Amount: 10, BeneficiaryID: "alice", RefID: "job-1"})
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 20, RefID: "job-1"})
	require.NoError(t, err)
	_, err = engine.CaptureHeldTokens(ctx, CaptureInput{TransactionID: hold.ID})
	require.NoError(t, err)

	total, err := engine.GetUserSpendingByRefID(ctx, "alice", "job-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)
}

func TestGetTransactionByID_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.GetTransactionByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestGetTransactionsByRefID_ReturnsEveryRowForRef(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	_, err = engine.DeductTokens(ctx, DeductInput{UserID: "alice", Amount: 10, BeneficiaryID: "alice", RefID: "job-2"})
	require.NoError(t, err)
	_, err = engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, RefID: "job-2"})
	require.NoError(t, err)

	rows, err := engine.GetTransactionsByRefID(ctx, "job-2")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
