package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestPlanSplit_StrictPriorityOrder(t *testing.T) {
	balance := domain.NewBalance()
	balance.PaidTokens = 100
	balance.FreeTokensPerBeneficiary["alice"] = 20
	balance.FreeTokensPerBeneficiary[domain.SystemBeneficiaryID] = 30

	split, err := PlanSplit(balance, 40, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(20), split.BeneficiaryFree)
	assert.Equal(t, int64(20), split.SystemFree)
	assert.Equal(t, int64(0), split.Paid)
}

func TestPlanSplit_FallsThroughToPaid(t *testing.T) {
	balance := domain.NewBalance()
	balance.PaidTokens = 100
	balance.FreeTokensPerBeneficiary["alice"] = 5
	balance.FreeTokensPerBeneficiary[domain.SystemBeneficiaryID] = 5

	split, err := PlanSplit(balance, 40, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5), split.BeneficiaryFree)
	assert.Equal(t, int64(5), split.SystemFree)
	assert.Equal(t, int64(30), split.Paid)

	assert.Equal(t, int64(40), split.BeneficiaryFree+split.SystemFree+split.Paid)
}

func TestPlanSplit_SystemBeneficiaryNeverDoublesSystemBucket(t *testing.T) {
	balance := domain.NewBalance()
	balance.PaidTokens = 0
	balance.FreeTokensPerBeneficiary[domain.SystemBeneficiaryID] = 50

	split, err := PlanSplit(balance, 50, domain.SystemBeneficiaryID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), split.BeneficiaryFree)
	assert.Equal(t, int64(0), split.SystemFree)
	assert.Equal(t, int64(0), split.Paid)
}

func TestPlanSplit_InsufficientPaidTokens(t *testing.T) {
	balance := domain.NewBalance()
	balance.PaidTokens = 5

	_, err := PlanSplit(balance, 10, "alice")
	assert.ErrorIs(t, err, domain.ErrInsufficientPaidTokens)
}

func TestPlanSplit_NegativeFreeBucketTreatedAsZero(t *testing.T) {
	balance := domain.NewBalance()
	balance.PaidTokens = 100
	balance.FreeTokensPerBeneficiary["alice"] = -5

	split, err := PlanSplit(balance, 10, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), split.BeneficiaryFree)
	assert.Equal(t, int64(10), split.Paid)
}

func TestValidateSufficientTokens(t *testing.T) {
	balance := domain.NewBalance()
	balance.PaidTokens = 10
	balance.FreeTokensPerBeneficiary["alice"] = 5

	assert.True(t, ValidateSufficientTokens(balance, 0, "alice"))
	assert.True(t, ValidateSufficientTokens(balance, 15, "alice"))
	assert.False(t, ValidateSufficientTokens(balance, 16, "alice"))
}
