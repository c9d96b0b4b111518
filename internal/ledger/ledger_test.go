package ledger

import (
	"time"

	"github.com/dafibh/fortuna/tokenledger/internal/clock"
	"github.com/dafibh/fortuna/tokenledger/internal/idgen"
	"github.com/dafibh/fortuna/tokenledger/internal/observability"
	"github.com/dafibh/fortuna/tokenledger/internal/store/archive"
	"github.com/dafibh/fortuna/tokenledger/internal/store/memory"
	"github.com/dafibh/fortuna/tokenledger/internal/websocket"
)

// newTestEngine wires an Engine over the in-memory store, a fixed clock
// pinned at 2026-01-01 UTC, and a RecordingErrorSink so tests can assert on
// what the engine reported without parsing log output.
func newTestEngine() (*Engine, *clock.FixedClock, *observability.RecordingErrorSink) {
	fc := clock.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := observability.NewRecordingErrorSink()
	deps := Deps{
		Store:     memory.New(),
		Clock:     fc,
		IDGen:     idgen.UUIDGenerator{},
		Archiver:  archive.NoOpArchiver{},
		Logger:    observability.NewLogger("test"),
		ErrorSink: sink,
	}
	engine := NewEngine(deps, &websocket.NoOpPublisher{})
	return engine, fc, sink
}
