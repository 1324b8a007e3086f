package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Title is a read-only lookup of a published title. CRUD lives with an
// external collaborator; the movement engine only checks existence and reads
// the recommended retail price for risk scoring.
type Title struct {
	ID        string
	ISBN      string
	Name      string
	RRP       decimal.Decimal
	Active    bool
	CreatedAt time.Time
}
