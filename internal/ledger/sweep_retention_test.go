package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

func TestPurgeOldRegistryRecords_DryRunDeletesNothing(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 10, "top_up", nil)
	require.NoError(t, err)

	fc.Advance(400 * 24 * time.Hour)

	dryRun := true
	result, err := engine.PurgeOldRegistryRecords(ctx, PurgeInput{OlderThanDays: 365, DryRun: &dryRun})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 0, result.Deleted)
	assert.True(t, result.DryRun)
}

func TestPurgeOldRegistryRecords_ArchivesBeforeDeleting(t *testing.T) {
	engine, fc, _ := newTestEngine()
	ctx := context.Background()

	tx, err := engine.CreditPaidTokens(ctx, "alice", 10, "top_up", nil)
	require.NoError(t, err)

	fc.Advance(400 * 24 * time.Hour)

	dryRun := false
	archiveEnabled := true
	result, err := engine.PurgeOldRegistryRecords(ctx, PurgeInput{OlderThanDays: 365, DryRun: &dryRun, Archive: &archiveEnabled})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Archived)
	assert.Equal(t, 1, result.Deleted)

	_, err = engine.deps.Store.Get(ctx, domain.TableTokenRegistry, tx.ID)
	assert.Error(t, err)
}

func TestPurgeOldRegistryRecords_SkipsRecordsInsideRetentionWindow(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.CreditPaidTokens(ctx, "alice", 10, "top_up", nil)
	require.NoError(t, err)

	dryRun := false
	result, err := engine.PurgeOldRegistryRecords(ctx, PurgeInput{OlderThanDays: 365, DryRun: &dryRun})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Candidates)
	assert.Equal(t, 0, result.Deleted)
}
