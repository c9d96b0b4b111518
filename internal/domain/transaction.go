package domain

import "time"

// TransactionType identifies the kind of balance change a Transaction records.
type TransactionType string

const (
	TransactionTypeCreditPaid TransactionType = "CREDIT_PAID"
	TransactionTypeCreditFree TransactionType = "CREDIT_FREE"
	TransactionTypeDebit      TransactionType = "DEBIT"
	TransactionTypeHold       TransactionType = "HOLD"
	TransactionTypeTip        TransactionType = "TIP"
)

// ValidTransactionTypes is the enum the writer validates against.
var ValidTransactionTypes = map[TransactionType]bool{
	TransactionTypeCreditPaid: true,
	TransactionTypeCreditFree: true,
	TransactionTypeDebit:      true,
	TransactionTypeHold:       true,
	TransactionTypeTip:        true,
}

// HoldState is the lifecycle state carried only on HOLD rows.
type HoldState string

const (
	HoldStateOpen     HoldState = "open"
	HoldStateCaptured HoldState = "captured"
	HoldStateReversed HoldState = "reversed"
)

const (
	// SystemBeneficiaryID identifies the system free-token bucket.
	SystemBeneficiaryID = "system"

	// FarFutureSentinelStr is the wire-format constant meaning "never expires".
	FarFutureSentinelStr = "9999-12-31T23:59:59.999Z"

	// MinHoldTimeoutSeconds and MaxHoldTimeoutSeconds bound expiresAfter on hold creation.
	MinHoldTimeoutSeconds = 300
	MaxHoldTimeoutSeconds = 3600
	// DefaultHoldTimeoutSeconds is used when the caller omits expiresAfter.
	DefaultHoldTimeoutSeconds = 1800

	// Table and index names referenced by store.Gateway callers.
	TableTokenRegistry        = "TOKEN_REGISTRY"
	TableTokenRegistryArchive = "TOKEN_REGISTRY_ARCHIVE"

	IndexByUserID              = "userId-createdAt-index"
	IndexByBeneficiaryID       = "beneficiaryId-createdAt-index"
	IndexByUserIDRefID         = "userId-refId-index"
	IndexByRefIDState          = "refId-state-index"
	IndexByRefIDTransactionType = "refId-transactionType-index"
	IndexByUserIDExpiresAt     = "userId-expiresAt-index"

	// IndexByExpiryShard is a sparse global index used only by the expiry
	// sweeper to page through every user's holds ordered by expiresAt
	// without a per-user partition key: adapters project a synthetic
	// constant partition-key attribute onto HOLD rows only. The attribute
	// never appears on domain.Transaction itself; it is computed at the
	// storage-adapter boundary.
	IndexByExpiryShard = "expiryShard-expiresAt-index"
	ExpiryShardHold     = "HOLD"
)

// FarFutureSentinel parses FarFutureSentinelStr once; it never errors.
var FarFutureSentinel = mustParseRFC3339(FarFutureSentinelStr)

func mustParseRFC3339(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic("domain: invalid far-future sentinel constant: " + err.Error())
	}
	return t
}

// Transaction is the single persisted entity type every ledger row uses,
// regardless of transactionType.
type Transaction struct {
	ID                      string          `json:"id"`
	UserID                  string          `json:"userId"`
	BeneficiaryID           string          `json:"beneficiaryId"`
	TransactionType         TransactionType `json:"transactionType"`
	Amount                  int64           `json:"amount"`
	Purpose                 string          `json:"purpose"`
	RefID                   string          `json:"refId"`
	ExpiresAt               time.Time       `json:"expiresAt"`
	CreatedAt               time.Time       `json:"createdAt"`
	Metadata                string          `json:"metadata"`
	Version                 int64           `json:"version"`
	State                   *HoldState      `json:"state,omitempty"`
	FreeBeneficiaryConsumed int64           `json:"freeBeneficiaryConsumed"`
	FreeSystemConsumed      int64           `json:"freeSystemConsumed"`
}

// IsExpired reports whether expiresAt is strictly before now. A zero-value
// expiresAt is treated defensively as not expired.
func (t *Transaction) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	if t.ExpiresAt.Equal(FarFutureSentinel) {
		return false
	}
	return t.ExpiresAt.Before(now)
}

// Balance is the projection produced by folding a user's transaction stream.
type Balance struct {
	PaidTokens             int64            `json:"paidTokens"`
	FreeTokensPerBeneficiary map[string]int64 `json:"freeTokensPerBeneficiary"`
	TotalFreeTokens        int64            `json:"totalFreeTokens"`
}

// NewBalance returns a zero-value Balance with an initialized bucket map.
func NewBalance() *Balance {
	return &Balance{FreeTokensPerBeneficiary: make(map[string]int64)}
}

// FreeBucket returns the free-token count held for beneficiary K, or zero.
func (b *Balance) FreeBucket(k string) int64 {
	if b.FreeTokensPerBeneficiary == nil {
		return 0
	}
	return b.FreeTokensPerBeneficiary[k]
}

// SplitBreakdown is the (beneficiaryFree, systemFree, paid) tuple the split
// planner computes; it also doubles as the metadata.breakdown view.
type SplitBreakdown struct {
	BeneficiaryFree int64 `json:"beneficiarySpecificFree"`
	SystemFree      int64 `json:"systemFree"`
	Paid            int64 `json:"paid"`
}

// AuditEntry is one append-only record in a hold's metadata.auditTrail.
type AuditEntry struct {
	Timestamp         time.Time       `json:"timestamp"`
	Action            string          `json:"action"`
	Status            string          `json:"status"`
	Breakdown         *SplitBreakdown `json:"breakdown,omitempty"`
	HoldExpiresAt     *time.Time      `json:"holdExpiresAt,omitempty"`
	ExpiryAfterSeconds *int64         `json:"expiryAfterSeconds,omitempty"`
	ExtendedBySeconds  *int64         `json:"extendedBySeconds,omitempty"`
	PreviousExpiresAt  *time.Time     `json:"previousExpiresAt,omitempty"`
	NewExpiresAt       *time.Time     `json:"newExpiresAt,omitempty"`
}
