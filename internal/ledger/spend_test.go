package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestDeductTokens_RejectsZeroAmount(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.DeductTokens(context.Background(), DeductInput{UserID: "alice", Amount: 0, BeneficiaryID: "alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDeductTokens_RejectsMissingBeneficiary(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.DeductTokens(context.Background(), DeductInput{UserID: "alice", Amount: 10})
	assert.ErrorIs(t, err, domain.ErrMissingIdentifier)
}

func TestDeductTokens_InsufficientTokens(t *testing.T) {
	engine, _, sink := newTestEngine()
	_, err := engine.DeductTokens(context.Background(), DeductInput{UserID: "alice", Amount: 10, BeneficiaryID: "alice"})
	assert.ErrorIs(t, err, domain.ErrInsufficientTokens)
	assert.True(t, sink.HasCode(domain.CodeInsufficientTokens))
}

func TestDeductTokens_WritesDebitWithSplitBreakdown(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)
	_, err = engine.CreditFreeTokens(ctx, "alice", "alice", 15, nil, "", nil)
	require.NoError(t, err)

	tx, err := engine.DeductTokens(ctx, DeductInput{UserID: "alice", Amount: 20, BeneficiaryID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeDebit, tx.TransactionType)
	assert.Equal(t, int64(15), tx.FreeBeneficiaryConsumed)
	assert.Equal(t, int64(5), tx.Amount)
}

func TestTransferTokens_RejectsSameBeneficiary(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.TransferTokens(context.Background(), TransferInput{SenderID: "alice", BeneficiaryID: "alice", Amount: 10})
	assert.ErrorIs(t, err, domain.ErrSameBeneficiary)
}

func TestTransferTokens_RejectsZeroAmount(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.TransferTokens(context.Background(), TransferInput{SenderID: "alice", BeneficiaryID: "bob", Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestTransferTokens_InsufficientTokens(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.TransferTokens(context.Background(), TransferInput{SenderID: "alice", BeneficiaryID: "bob", Amount: 10})
	assert.ErrorIs(t, err, domain.ErrInsufficientTokens)
}

func TestCreditPaidTokens_RejectsNonPositiveAmount(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.CreditPaidTokens(context.Background(), "alice", 0, "top_up", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreditFreeTokens_RequiresBeneficiary(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.CreditFreeTokens(context.Background(), "alice", "", 10, nil, "", nil)
	assert.ErrorIs(t, err, domain.ErrMissingIdentifier)
}

func TestCreditFreeTokens_DefaultsPurposeAndFarFutureSentinel(t *testing.T) {
	engine, _, _ := newTestEngine()
	tx, err := engine.CreditFreeTokens(context.Background(), "alice", "alice", 10, nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "free_grant", tx.Purpose)
	assert.Equal(t, domain.FarFutureSentinel, tx.ExpiresAt)
}
