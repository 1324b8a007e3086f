package movement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/pkg/logger"
)

func newReversal(f *fixture) *movement.Reversal {
	return movement.NewReversal(f.store.Movements(), f.coordinator, logger.Nop())
}

func TestReverseOutboundRestoresStock(t *testing.T) {
	f := newFixture(t)
	rev := newReversal(f)
	f.submit(t, f.inbound(100))
	sale := f.submit(t, f.sale(30))
	require.Equal(t, int64(70), f.stock(t, f.w1.ID))

	res, err := rev.Reverse(context.Background(), sale.Record.ID, "customer return", "supervisor", true)
	require.NoError(t, err)
	require.NotNil(t, res.Compensating)

	// Same type, negated signed quantity; the original stays on the ledger.
	assert.Equal(t, sale.Record.Type, res.Compensating.Type)
	assert.Equal(t, -sale.Record.Quantity, res.Compensating.Quantity)
	assert.Contains(t, res.Compensating.Notes, sale.Record.ID)
	assert.Contains(t, res.Compensating.Notes, "customer return")
	assert.Equal(t, int64(100), f.stock(t, f.w1.ID))

	original, err := f.store.Movements().GetByID(context.Background(), sale.Record.ID)
	require.NoError(t, err)
	require.NotNil(t, original)
	assert.Equal(t, int64(-30), original.Quantity)
}

func TestReverseInboundRequiresSufficientStock(t *testing.T) {
	f := newFixture(t)
	rev := newReversal(f)
	inbound := f.submit(t, f.inbound(100))
	f.submit(t, f.sale(80))
	require.Equal(t, int64(20), f.stock(t, f.w1.ID))

	// Reversing the inbound would remove 100 from a stock of 20.
	_, err := rev.Reverse(context.Background(), inbound.Record.ID, "printer recall", "supervisor", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(20), f.stock(t, f.w1.ID))
}

func TestReverseTransferSwapsWarehousePair(t *testing.T) {
	f := newFixture(t)
	rev := newReversal(f)
	f.submit(t, f.inbound(100))
	transfer := f.submit(t, f.transfer(40))
	require.Equal(t, int64(60), f.stock(t, f.w1.ID))
	require.Equal(t, int64(40), f.stock(t, f.w2.ID))

	res, err := rev.Reverse(context.Background(), transfer.Record.ID, "sent to wrong site", "supervisor", true)
	require.NoError(t, err)
	require.NotNil(t, res.Compensating)

	assert.Equal(t, f.w2.ID, *res.Compensating.SourceWarehouseID)
	assert.Equal(t, f.w1.ID, *res.Compensating.DestinationWarehouseID)
	assert.Equal(t, int64(100), f.stock(t, f.w1.ID))
	assert.Equal(t, int64(0), f.stock(t, f.w2.ID))
}

func TestReversePreviewCommitsNothing(t *testing.T) {
	f := newFixture(t)
	rev := newReversal(f)
	f.submit(t, f.inbound(100))
	sale := f.submit(t, f.sale(30))

	res, err := rev.Preview(context.Background(), sale.Record.ID, "checking")
	require.NoError(t, err)
	require.NotNil(t, res.Planned)
	assert.Nil(t, res.Compensating)
	assert.Equal(t, int64(30), res.Planned.Quantity)

	assert.Equal(t, int64(70), f.stock(t, f.w1.ID))
	assert.Equal(t, 2, ledgerSize(t, f.store, f.title.ID))
}

func TestReverseUnknownMovement(t *testing.T) {
	f := newFixture(t)
	rev := newReversal(f)

	_, err := rev.Reverse(context.Background(), "11111111-1111-1111-1111-111111111111", "", "supervisor", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReverseWithoutCompensatingOnlyVerifies(t *testing.T) {
	f := newFixture(t)
	rev := newReversal(f)
	f.submit(t, f.inbound(100))
	sale := f.submit(t, f.sale(30))

	res, err := rev.Reverse(context.Background(), sale.Record.ID, "audit check", "supervisor", false)
	require.NoError(t, err)
	assert.Nil(t, res.Compensating)
	assert.Equal(t, int64(70), f.stock(t, f.w1.ID))
}
