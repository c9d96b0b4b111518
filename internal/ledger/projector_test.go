package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestProjector_BalanceEquation_CreditsAndDebits(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)
	_, err = engine.CreditFreeTokens(ctx, "alice", "alice", 20, nil, "", nil)
	require.NoError(t, err)

	_, err = engine.DeductTokens(ctx, DeductInput{UserID: "alice", Amount: 30, BeneficiaryID: "alice"})
	require.NoError(t, err)

	balance, err := engine.GetUserBalance(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, int64(90), balance.PaidTokens)
	assert.Equal(t, int64(0), balance.FreeBucket("alice"))
	assert.Equal(t, int64(0), balance.TotalFreeTokens)
}

func TestProjector_ExpiredFreeCreditExcludedFromBalance(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()

	pastExpiry := fc.Now().Add(-time.Hour)
	_, err := engine.CreditFreeTokens(ctx, "alice", "alice", 20, &pastExpiry, "", nil)
	require.NoError(t, err)

	balance, err := engine.GetUserBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.FreeBucket("alice"))
	assert.Equal(t, int64(0), balance.TotalFreeTokens)
}

func TestProjector_TipDebitsSenderAndCreditsBeneficiary(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	_, err = engine.TransferTokens(ctx, TransferInput{SenderID: "alice", BeneficiaryID: "bob", Amount: 25})
	require.NoError(t, err)

	aliceBalance, err := engine.GetUserBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(75), aliceBalance.PaidTokens)

	bobBalance, err := engine.GetUserBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(25), bobBalance.PaidTokens)
}

func TestProjector_OpenHoldReducesBalanceReversedDoesNot(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 40})
	require.NoError(t, err)

	balanceDuringHold, err := engine.GetUserBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balanceDuringHold.PaidTokens)

	_, err = engine.ReverseHeldTokens(ctx, ReverseInput{TransactionID: hold.ID})
	require.NoError(t, err)

	balanceAfterReverse, err := engine.GetUserBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balanceAfterReverse.PaidTokens)
}

func TestProjector_CapturedHoldStaysDeducted(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)

	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 40})
	require.NoError(t, err)

	_, err = engine.CaptureHeldTokens(ctx, CaptureInput{TransactionID: hold.ID})
	require.NoError(t, err)

	balance, err := engine.GetUserBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance.PaidTokens)
}
