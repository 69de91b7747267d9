package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webstage/webstage/internal/pipeline"
)

func sampleReport(id string, outcome pipeline.Outcome) *pipeline.BuildReport {
	return &pipeline.BuildReport{
		ID:              id,
		Start:           time.Now().Truncate(time.Second),
		Duration:        1200 * time.Millisecond,
		Outcome:         outcome,
		StageDurations:  map[pipeline.StageName]time.Duration{pipeline.StageRunBuild: time.Second},
		PrunedArtifacts: 3,
		StagedFiles:     12,
	}
}

func TestStoreAppendAndRecent(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, sampleReport("build-1", pipeline.OutcomeSuccess)))
	require.NoError(t, store.Append(ctx, sampleReport("build-2", pipeline.OutcomeFailed)))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "build-2", records[0].BuildID)
	assert.Equal(t, "failed", records[0].Outcome)
	assert.Equal(t, "build-1", records[1].BuildID)
	assert.Equal(t, 3, records[1].PrunedArtifacts)
	assert.Equal(t, 12, records[1].StagedFiles)
	require.NotNil(t, records[1].Report)
	assert.Equal(t, pipeline.OutcomeSuccess, records[1].Report.Outcome)
}

func TestStoreRecentLimit(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, sampleReport("b", pipeline.OutcomeSuccess)))
	}

	records, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStoreRecentEmpty(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	records, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
