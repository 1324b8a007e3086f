package movement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/infrastructure/memory"
	"github.com/inkhouse/bookstock/pkg/logger"
)

func newBatch(f *fixture) *movement.BatchProcessor {
	return movement.NewBatchProcessor(f.coordinator, f.validator, 0, logger.Nop(), nil)
}

func ledgerSize(t *testing.T, store *memory.Store, titleID string) int {
	t.Helper()
	records, err := store.Movements().ListByTitle(context.Background(), titleID, nil, nil, 0, 0)
	require.NoError(t, err)
	return len(records)
}

func TestBatchContinueOnError(t *testing.T) {
	f := newFixture(t)
	batch := newBatch(f)
	f.submit(t, f.inbound(100))

	requests := []movement.Request{
		f.inbound(10),
		{TitleID: f.title.ID, WarehouseID: f.w1.ID, Type: "BOGUS", Quantity: 5},
		f.inbound(20),
	}
	opts := movement.DefaultBatchOptions()
	opts.ContinueOnError = true

	res, err := batch.Submit(context.Background(), requests, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRequested)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)

	// Exactly the two passing items reached the ledger (plus the seed inbound).
	assert.Equal(t, 3, ledgerSize(t, f.store, f.title.ID))
	assert.Equal(t, int64(130), f.stock(t, f.w1.ID))
}

func TestBatchValidateFirstAbortsWithZeroCommits(t *testing.T) {
	f := newFixture(t)
	batch := newBatch(f)

	requests := []movement.Request{
		f.inbound(10),
		{TitleID: f.title.ID, WarehouseID: f.w1.ID, Type: "BOGUS", Quantity: 5},
		f.inbound(20),
	}

	res, err := batch.Submit(context.Background(), requests, movement.DefaultBatchOptions())
	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Equal(t, 3, res.TotalRequested)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 3, res.FailureCount)
	assert.Equal(t, res.TotalRequested, res.SuccessCount+res.FailureCount)

	assert.Equal(t, 0, ledgerSize(t, f.store, f.title.ID))
	assert.Equal(t, int64(0), f.stock(t, f.w1.ID))
}

func TestBatchDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	batch := newBatch(f)

	requests := []movement.Request{f.inbound(10), f.inbound(20)}
	opts := movement.DefaultBatchOptions()
	opts.DryRun = true

	res, err := batch.Submit(context.Background(), requests, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	for _, item := range res.Results {
		assert.True(t, item.DryRun)
		assert.Empty(t, item.MovementID)
	}

	assert.Equal(t, 0, ledgerSize(t, f.store, f.title.ID))
}

func TestBatchResultsKeepInputOrder(t *testing.T) {
	f := newFixture(t)
	batch := newBatch(f)

	requests := make([]movement.Request, 10)
	for i := range requests {
		requests[i] = f.inbound(int64(i + 1))
	}
	opts := movement.DefaultBatchOptions()
	opts.BatchSize = 3

	res, err := batch.Submit(context.Background(), requests, opts)
	require.NoError(t, err)
	assert.Equal(t, 10, res.SuccessCount)
	require.Len(t, res.Results, 10)
	for i, item := range res.Results {
		assert.Equal(t, i, item.Index)
		assert.NotEmpty(t, item.MovementID)
	}

	// 1+2+...+10
	assert.Equal(t, int64(55), f.stock(t, f.w1.ID))
}

func TestBatchConfiguredDefaultSizeBoundsChunks(t *testing.T) {
	f := newFixture(t)
	batch := movement.NewBatchProcessor(f.coordinator, f.validator, 2, logger.Nop(), nil)

	// Item 0 fails in its chunk; with the constructor default of 2 the second
	// chunk never starts, which a size-50 default would have committed.
	requests := []movement.Request{
		f.sale(5),
		f.inbound(10),
		f.inbound(20),
		f.inbound(40),
	}
	opts := movement.BatchOptions{ValidateFirst: false}

	res, err := batch.Submit(context.Background(), requests, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 3, res.FailureCount)
	assert.Equal(t, int64(10), f.stock(t, f.w1.ID))
}

func TestBatchStopsAfterCommitFailureWithoutContinue(t *testing.T) {
	f := newFixture(t)
	batch := newBatch(f)
	f.submit(t, f.inbound(10))

	// Item 0 consumes all stock, item 1 then fails in-transaction, item 2 in
	// the next chunk must be skipped.
	requests := []movement.Request{
		f.sale(10),
		f.sale(10),
		f.inbound(5),
	}
	opts := movement.BatchOptions{ValidateFirst: false, BatchSize: 2}

	res, err := batch.Submit(context.Background(), requests, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRequested)
	assert.Equal(t, res.TotalRequested, res.SuccessCount+res.FailureCount)
	assert.GreaterOrEqual(t, res.FailureCount, 1)
}
