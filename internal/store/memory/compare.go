package memory

import (
	"time"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

func compareEq(got, want any) bool {
	switch g := got.(type) {
	case time.Time:
		w, ok := want.(time.Time)
		return ok && g.Equal(w)
	default:
		return got == want
	}
}

func compareOrdered(got, want any, op store.Op) bool {
	gt, ok1 := got.(time.Time)
	wt, ok2 := want.(time.Time)
	if ok1 && ok2 {
		switch op {
		case store.OpLE:
			return !gt.After(wt)
		case store.OpGE:
			return !gt.Before(wt)
		case store.OpLT:
			return gt.Before(wt)
		case store.OpGT:
			return gt.After(wt)
		}
	}
	gs, ok1 := got.(string)
	ws, ok2 := want.(string)
	if ok1 && ok2 {
		switch op {
		case store.OpLE:
			return gs <= ws
		case store.OpGE:
			return gs >= ws
		case store.OpLT:
			return gs < ws
		case store.OpGT:
			return gs > ws
		}
	}
	return false
}

// applyUpdates mutates item in place for the handful of fields the hold
// engine ever updates in place: state, expiresAt, version, metadata.
func applyUpdates(item *domain.Transaction, updates map[string]any) {
	for k, v := range updates {
		switch k {
		case "state":
			switch s := v.(type) {
			case domain.HoldState:
				item.State = &s
			case *domain.HoldState:
				item.State = s
			}
		case "expiresAt":
			if t, ok := v.(time.Time); ok {
				item.ExpiresAt = t
			}
		case "version":
			if n, ok := v.(int64); ok {
				item.Version = n
			}
		case "metadata":
			if s, ok := v.(string); ok {
				item.Metadata = s
			}
		}
	}
}
