// Package ledger is the token ledger engine itself: the transaction writer,
// balance projector, split planner, spend operations, hold state machine,
// and the expiry/retention sweepers, all composed behind the Engine facade.
package ledger

import (
	"github.com/dafibh/fortuna/tokenledger/internal/clock"
	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/idgen"
	"github.com/dafibh/fortuna/tokenledger/internal/observability"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
	"github.com/dafibh/fortuna/tokenledger/internal/store/archive"
)

// Deps bundles the collaborators every ledger component needs: the store
// gateway, the time source, the id generator, the retention sweeper's cold
// archive, and the two best-effort observability sinks.
type Deps struct {
	Store     store.Gateway
	Clock     clock.Clock
	IDGen     idgen.Generator
	Archiver  archive.Archiver
	Logger    observability.Logger
	ErrorSink observability.ErrorSink
}

// reportInput logs an input-class error to the sink and returns it verbatim:
// input errors always fail the caller and are always reported to the error
// sink with the matching code.
func reportInput(deps Deps, err error, code, message string, data map[string]any) error {
	deps.ErrorSink.AddError(message, code, data)
	return err
}

// reportBusiness is an alias of reportInput kept separate for readability at
// call sites; business and input errors share the same propagation policy.
func reportBusiness(deps Deps, err error, code, message string, data map[string]any) error {
	return reportInput(deps, err, code, message, data)
}

// reportInfra wraps err with an outer infra code. The underlying error's
// message is preserved: the sink receives the outer code plus the original
// message, and the original error is still reachable via errors.Unwrap.
func reportInfra(deps Deps, outerErr error, underlying error, data map[string]any) error {
	code := outerErr.Error()
	merged := make(map[string]any, len(data)+1)
	for k, v := range data {
		merged[k] = v
	}
	merged["error"] = underlying.Error()
	deps.ErrorSink.AddError(underlying.Error(), code, merged)
	return domain.WrapInfra(code, underlying)
}

// reportIntegrity reports a diagnostic-only signal (HOLD_MISSING_STATE,
// EXPIRED_HOLD_MISSING_STATE): it never fails the caller, only the sink
// hears about it.
func reportIntegrity(deps Deps, code, message string, data map[string]any) {
	deps.ErrorSink.AddError(message, code, data)
}
