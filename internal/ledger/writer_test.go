package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestWriter_AddTransaction_Defaults(t *testing.T) {
	engine, _, _ := newTestEngine()

	tx, err := engine.AddTransaction(context.Background(), AddTransactionRequest{
		UserID:          "alice",
		TransactionType: domain.TransactionTypeCreditPaid,
		Amount:          10,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SystemBeneficiaryID, tx.BeneficiaryID)
	assert.Equal(t, "CREDIT_PAID", tx.Purpose)
	assert.Equal(t, domain.FarFutureSentinel, tx.ExpiresAt)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, int64(1), tx.Version)
	assert.Nil(t, tx.State)
}

func TestWriter_AddTransaction_HoldGetsOpenState(t *testing.T) {
	engine, _, _ := newTestEngine()

	tx, err := engine.AddTransaction(context.Background(), AddTransactionRequest{
		UserID:          "alice",
		BeneficiaryID:   "alice",
		TransactionType: domain.TransactionTypeHold,
		Amount:          10,
	})
	require.NoError(t, err)
	require.NotNil(t, tx.State)
	assert.Equal(t, domain.HoldStateOpen, *tx.State)
}

func TestWriter_AddTransaction_RejectsMissingUserID(t *testing.T) {
	engine, _, sink := newTestEngine()

	_, err := engine.AddTransaction(context.Background(), AddTransactionRequest{
		TransactionType: domain.TransactionTypeCreditPaid,
		Amount:          10,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionPayload)
	assert.True(t, sink.HasCode(domain.CodeInvalidTransactionPayload))
}

func TestWriter_AddTransaction_RejectsUnknownType(t *testing.T) {
	engine, _, sink := newTestEngine()

	_, err := engine.AddTransaction(context.Background(), AddTransactionRequest{
		UserID:          "alice",
		TransactionType: domain.TransactionType("BOGUS"),
		Amount:          10,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)
	assert.True(t, sink.HasCode(domain.CodeInvalidTransactionType))
}

func TestWriter_AddTransaction_RejectsNegativeAmount(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.AddTransaction(context.Background(), AddTransactionRequest{
		UserID:          "alice",
		TransactionType: domain.TransactionTypeCreditPaid,
		Amount:          -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionPayload)
}

func TestWriter_AddTransaction_GeneratesRefIDWhenEmpty(t *testing.T) {
	engine, _, _ := newTestEngine()

	tx, err := engine.AddTransaction(context.Background(), AddTransactionRequest{
		UserID:          "alice",
		TransactionType: domain.TransactionTypeCreditPaid,
		Amount:          10,
	})
	require.NoError(t, err)
	assert.Contains(t, tx.RefID, "no_ref_")
}

func TestWriter_AddTransaction_ExplicitExpiresAtHonored(t *testing.T) {
	engine, fc, _ := newTestEngine()
	expiry := fc.Now().AddDate(0, 0, 30)

	tx, err := engine.AddTransaction(context.Background(), AddTransactionRequest{
		UserID:          "alice",
		BeneficiaryID:   "alice",
		TransactionType: domain.TransactionTypeCreditFree,
		Amount:          10,
		ExpiresAt:       &expiry,
	})
	require.NoError(t, err)
	assert.True(t, tx.ExpiresAt.Equal(expiry))
}
