package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestSweeper_StartStop_RunsExpirySweepOnStart(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 100, "top_up", nil)
	require.NoError(t, err)
	hold, err := engine.HoldTokens(ctx, HoldInput{UserID: "alice", BeneficiaryID: "alice", Amount: 10, ExpiresAfterSeconds: domain.MinHoldTimeoutSeconds})
	require.NoError(t, err)
	fc.Advance(time.Duration(domain.MinHoldTimeoutSeconds+1) * time.Second)

	sweeper := NewSweeper(engine, SweeperConfig{
		ExpiryInterval:    time.Hour,
		RetentionInterval: time.Hour,
	})

	assert.False(t, sweeper.IsRunning())
	sweeper.Start(ctx)
	assert.True(t, sweeper.IsRunning())
	sweeper.Stop()
	assert.False(t, sweeper.IsRunning())

	reloaded, err := engine.deps.Store.Get(ctx, domain.TableTokenRegistry, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateReversed, *reloaded.State)
}

func TestSweeper_StartIsIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine()
	sweeper := NewSweeper(engine, SweeperConfig{ExpiryInterval: time.Hour, RetentionInterval: time.Hour})

	sweeper.Start(context.Background())
	sweeper.Start(context.Background())
	assert.True(t, sweeper.IsRunning())
	sweeper.Stop()
}

func TestDefaultSweeperConfig_FillsSaneDefaults(t *testing.T) {
	cfg := DefaultSweeperConfig()
	assert.Equal(t, time.Minute, cfg.ExpiryInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionInterval)
	assert.True(t, cfg.RetentionDryRun)
}
