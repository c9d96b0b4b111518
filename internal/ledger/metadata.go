package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

// metadataBag is the typed view the engine itself reads back out of the
// otherwise-opaque metadata string. Any key the
// caller put there that isn't one of these is preserved in extra and
// round-tripped verbatim.
type metadataBag struct {
	AuditTrail    []domain.AuditEntry    `json:"auditTrail,omitempty"`
	Breakdown     *domain.SplitBreakdown `json:"breakdown,omitempty"`
	TokenExpiresAt *string               `json:"tokenExpiresAt,omitempty"`
	Note          *string                `json:"note,omitempty"`
	IsAnonymous   *bool                  `json:"isAnonymous,omitempty"`
	TotalTipAmount *int64                `json:"totalTipAmount,omitempty"`
	extra         map[string]any         `json:"-"`
}

// serializeMetadata marshals v to a JSON string. A cyclic or otherwise
// unmarshalable value surfaces as an error rather than a partial write: the
// caller must check this before ever touching the store.
func serializeMetadata(v map[string]any) (string, error) {
	if v == nil {
		v = map[string]any{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("metadata not serializable: %w", err)
	}
	return string(b), nil
}

// decodeMetadata parses a stored metadata string into the typed view. A
// malformed string never errors the caller; it is returned as an empty bag
// with the raw string preserved separately by the caller if needed.
func decodeMetadata(raw string) metadataBag {
	var bag metadataBag
	if raw == "" {
		return bag
	}
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return bag
	}
	_ = json.Unmarshal([]byte(raw), &bag)
	bag.extra = generic
	return bag
}

// mergeMetadata layers overrides on top of base (a caller-supplied metadata
// map, possibly nil) and serializes the result. Keys in overrides always win.
func mergeMetadata(base map[string]any, overrides map[string]any) (string, error) {
	merged := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return serializeMetadata(merged)
}

// appendAuditEntry decodes the hold's current metadata, appends entry, and
// re-serializes. Audit trails are append-only: no prior entry is ever
// rewritten or dropped.
func appendAuditEntry(raw string, entry domain.AuditEntry) (string, error) {
	var generic map[string]any
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &generic)
	}
	if generic == nil {
		generic = map[string]any{}
	}

	bag := decodeMetadata(raw)
	bag.AuditTrail = append(bag.AuditTrail, entry)
	generic["auditTrail"] = bag.AuditTrail

	b, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("metadata not serializable: %w", err)
	}
	return string(b), nil
}
