package movement

import (
	"context"

	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

// TxRunner executes a function inside one store transaction, handing it
// repositories bound to that transaction. Guarantees that the ledger append
// and the projection update commit or roll back as one unit.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movements repository.MovementRepository,
		projections repository.ProjectionRepository,
	) error) error
}

// Notifier is told about committed movements. Delivery failures must never
// roll back the commit; the coordinator logs and moves on.
type Notifier interface {
	MovementCommitted(ctx context.Context, record *entity.MovementRecord)
}

// Auditor receives structured action records. Its errors are tolerated.
type Auditor interface {
	Record(ctx context.Context, action, actor string, detail map[string]any)
}
