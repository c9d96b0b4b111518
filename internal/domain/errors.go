package domain

import "errors"

// Sentinel errors for the token ledger engine.
//
// Input errors.
var (
	ErrInvalidTransactionPayload = errors.New("invalid transaction payload")
	ErrInvalidTransactionType    = errors.New("invalid transaction type")
	ErrInvalidAmount             = errors.New("amount must be a positive integer")
	ErrMissingIdentifier         = errors.New("missing required identifier")
	ErrInvalidHoldTimeout        = errors.New("hold timeout out of bounds")
)

// Business errors.
var (
	ErrInsufficientTokens      = errors.New("insufficient tokens")
	ErrInsufficientPaidTokens  = errors.New("insufficient paid tokens")
	ErrDuplicateHoldRefID      = errors.New("an open hold already exists for this refId")
	ErrAlreadyCaptured         = errors.New("hold already captured")
	ErrAlreadyReversed         = errors.New("hold already reversed")
	ErrAlreadyProcessed        = errors.New("already captured or reversed")
	ErrNoHeldTokens            = errors.New("no held tokens found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrSameBeneficiary         = errors.New("sender and beneficiary must differ")
)

// Infrastructure errors wrap the original store error; the message of the
// wrapped error is preserved and the caller can unwrap to inspect it.
var (
	ErrAddTransaction           = errors.New("ADD_TRANSACTION_ERROR")
	ErrGetUserBalance           = errors.New("GET_USER_BALANCE_ERROR")
	ErrDeductTokens              = errors.New("DEDUCT_TOKENS_ERROR")
	ErrTransferTokens            = errors.New("TRANSFER_TOKENS_ERROR")
	ErrHoldTokens                = errors.New("HOLD_TOKENS_ERROR")
	ErrCaptureHeldTokens         = errors.New("CAPTURE_HELD_TOKENS_ERROR")
	ErrReverseHeldTokens         = errors.New("REVERSE_HELD_TOKENS_ERROR")
	ErrExtendExpiry              = errors.New("EXTEND_EXPIRY_ERROR")
	ErrFindExpiredHolds          = errors.New("FIND_EXPIRED_HOLDS_ERROR")
	ErrProcessExpiredHolds       = errors.New("PROCESS_EXPIRED_HOLDS_ERROR")
	ErrPurgeOldRegistryRecords   = errors.New("PURGE_OLD_REGISTRY_RECORDS_ERROR")
	ErrReportingQuery            = errors.New("REPORTING_QUERY_ERROR")
)

// Integrity codes: diagnostic, reported to the error sink but never failed.
const (
	CodeHoldMissingState        = "HOLD_MISSING_STATE"
	CodeExpiredHoldMissingState = "EXPIRED_HOLD_MISSING_STATE"
)

// Error codes carried in error-sink context for the input and business
// sentinel errors above. ErrSameBeneficiary has no code of its own; it is
// reported under CodeMissingIdentifier.
const (
	CodeInvalidTransactionPayload = "INVALID_TRANSACTION_PAYLOAD"
	CodeInvalidTransactionType    = "INVALID_TRANSACTION_TYPE"
	CodeInvalidAmount             = "INVALID_AMOUNT"
	CodeMissingIdentifier         = "MISSING_IDENTIFIER"
	CodeInvalidHoldTimeout        = "INVALID_HOLD_TIMEOUT"
	CodeInsufficientTokens        = "INSUFFICIENT_TOKENS"
	CodeInsufficientPaidTokens    = "INSUFFICIENT_PAID_TOKENS"
	CodeDuplicateHoldRefID        = "DUPLICATE_HOLD_REFID"
	CodeAlreadyCaptured           = "ALREADY_CAPTURED"
	CodeAlreadyReversed           = "ALREADY_REVERSED"
	CodeAlreadyProcessed          = "ALREADY_PROCESSED"
	CodeNoHeldTokens              = "NO_HELD_TOKENS"
	CodeTransactionNotFound       = "TRANSACTION_NOT_FOUND"
)

// InfraError wraps an underlying store/infra failure with one of the
// ADD_TRANSACTION_ERROR-style outer codes above, preserving the original
// error for both Error() text and errors.Unwrap.
type InfraError struct {
	Code string
	Err  error
}

func (e *InfraError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *InfraError) Unwrap() error { return e.Err }

// WrapInfra builds an InfraError carrying the named outer code.
func WrapInfra(code string, err error) error {
	if err == nil {
		return nil
	}
	return &InfraError{Code: code, Err: err}
}
