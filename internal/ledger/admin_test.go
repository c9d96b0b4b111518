package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestAdjustUserTokensAdmin_PositiveDeltaCreditsPaid(t *testing.T) {
	engine, _, _ := newTestEngine()
	tx, err := engine.AdjustUserTokensAdmin(context.Background(), AdminAdjustmentInput{
		UserID: "alice", Delta: 50, Reason: "support ticket #42", AdminID: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeCreditPaid, tx.TransactionType)
	assert.Equal(t, int64(50), tx.Amount)

	balance, err := engine.GetUserBalance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.PaidTokens)
}

func TestAdjustUserTokensAdmin_NegativeDeltaWritesDebit(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()
	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	tx, err := engine.AdjustUserTokensAdmin(ctx, AdminAdjustmentInput{
		UserID: "alice", Delta: -30, Reason: "chargeback", AdminID: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeDebit, tx.TransactionType)
	assert.Equal(t, int64(30), tx.Amount)

	balance, err := engine.GetUserBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance.PaidTokens)
}

func TestAdjustUserTokensAdmin_RejectsZeroDelta(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.AdjustUserTokensAdmin(context.Background(), AdminAdjustmentInput{
		UserID: "alice", Delta: 0, Reason: "noop", AdminID: "admin-1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
