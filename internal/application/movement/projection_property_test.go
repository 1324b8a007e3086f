package movement_test

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// The projection must always equal the replay-sum of signed impacts of every
// ledger record for its key, no matter which movements were accepted or
// rejected along the way.
func TestProjectionMatchesLedgerReplay(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()

		types := []entity.MovementType{
			entity.MovementTypePrintReceived,
			entity.MovementTypeReprint,
			entity.MovementTypeOnlineSales,
			entity.MovementTypeUKTradeSales,
			entity.MovementTypePulped,
			entity.MovementTypeFreeCopies,
			entity.MovementTypeStockAdjustment,
			entity.MovementTypeWarehouseTransfer,
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			typ := rapid.SampledFrom(types).Draw(rt, "type")
			qty := int64(rapid.IntRange(1, 50).Draw(rt, "qty"))

			req := movement.Request{
				TitleID:     f.title.ID,
				WarehouseID: f.w1.ID,
				Type:        typ,
				Quantity:    qty,
				CreatedBy:   "property",
			}
			switch typ {
			case entity.MovementTypeStockAdjustment:
				if rapid.Bool().Draw(rt, "negative") {
					req.Quantity = -qty
				}
				req.Notes = "generated correction entry"
			case entity.MovementTypeWarehouseTransfer:
				req.WarehouseID = ""
				req.SourceWarehouseID = f.w1.ID
				req.DestinationWarehouseID = f.w2.ID
				if rapid.Bool().Draw(rt, "reverseDirection") {
					req.SourceWarehouseID, req.DestinationWarehouseID = f.w2.ID, f.w1.ID
				}
			}

			// Rejections (insufficient stock and the like) are part of the
			// property: rejected movements must leave no trace.
			_, _ = f.coordinator.Submit(ctx, req)
		}

		records, err := f.store.Movements().ListByTitle(ctx, f.title.ID, nil, nil, 0, 0)
		if err != nil {
			rt.Fatalf("list ledger: %v", err)
		}

		for _, warehouseID := range []string{f.w1.ID, f.w2.ID} {
			var replay int64
			for _, rec := range records {
				replay += rec.ImpactOn(warehouseID)
			}
			proj, err := f.store.Projections().Get(ctx, f.title.ID, warehouseID)
			if err != nil {
				rt.Fatalf("get projection: %v", err)
			}
			if proj.CurrentStock != replay {
				rt.Fatalf("projection %d diverged from ledger replay %d for warehouse %s",
					proj.CurrentStock, replay, warehouseID)
			}
			if proj.CurrentStock < 0 {
				rt.Fatalf("projection went negative: %d", proj.CurrentStock)
			}
		}
	})
}
