package ledger

import "github.com/dafibh/fortuna/tokenledger/internal/domain"

// PlanSplit computes the (beneficiaryFree, systemFree, paid) tuple for
// spending amount against balance on behalf of beneficiaryID, using a
// strict-priority order: the beneficiary's own free bucket first, then the
// system free bucket, then paid tokens.
func PlanSplit(balance *domain.Balance, amount int64, beneficiaryID string) (domain.SplitBreakdown, error) {
	isSystem := beneficiaryID == domain.SystemBeneficiaryID

	bfAvail := max0(balance.FreeBucket(beneficiaryID))
	sfAvail := int64(0)
	if !isSystem {
		sfAvail = max0(balance.FreeBucket(domain.SystemBeneficiaryID))
	}

	beneficiaryFree := min64(amount, bfAvail)
	remaining := amount - beneficiaryFree

	systemFree := min64(remaining, sfAvail)
	remaining -= systemFree

	paid := remaining
	if paid > balance.PaidTokens {
		return domain.SplitBreakdown{}, domain.ErrInsufficientPaidTokens
	}

	return domain.SplitBreakdown{
		BeneficiaryFree: beneficiaryFree,
		SystemFree:      systemFree,
		Paid:            paid,
	}, nil
}

// ValidateSufficientTokens independently checks whether amount can be
// covered at all, without committing to a particular split. Zero amount is
// trivially sufficient.
func ValidateSufficientTokens(balance *domain.Balance, amount int64, beneficiaryID string) bool {
	if amount <= 0 {
		return true
	}
	isSystem := beneficiaryID == domain.SystemBeneficiaryID

	bfAvail := max0(balance.FreeBucket(beneficiaryID))
	sfAvail := int64(0)
	if !isSystem {
		sfAvail = max0(balance.FreeBucket(domain.SystemBeneficiaryID))
	}

	totalUsable := max0(balance.PaidTokens) + bfAvail + sfAvail
	return totalUsable >= amount
}

func max0(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
