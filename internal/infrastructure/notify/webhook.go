// Package notify delivers post-commit movement events to an external webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/pkg/logger"
)

var _ movement.Notifier = (*Webhook)(nil)

// Webhook POSTs committed movements as JSON to a configured URL. Delivery is
// best effort; failures are logged and never surface to the caller.
type Webhook struct {
	url    string
	client *http.Client
	log    *logger.Logger
}

// NewWebhook builds the notifier. A zero timeout defaults to 5s.
func NewWebhook(url string, timeout time.Duration, log *logger.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log.Component("webhook"),
	}
}

type movementEvent struct {
	Event       string                 `json:"event"`
	OccurredAt  time.Time              `json:"occurred_at"`
	MovementID  string                 `json:"movement_id"`
	TitleID     string                 `json:"title_id"`
	WarehouseID string                 `json:"warehouse_id"`
	Type        entity.MovementType    `json:"type"`
	Quantity    int64                  `json:"quantity"`
	Record      *entity.MovementRecord `json:"record"`
}

// MovementCommitted delivers the event. Called after the transaction has
// committed, so a failed delivery only loses the notification.
func (w *Webhook) MovementCommitted(ctx context.Context, record *entity.MovementRecord) {
	if w.url == "" {
		return
	}
	body, err := json.Marshal(movementEvent{
		Event:       "movement.committed",
		OccurredAt:  time.Now(),
		MovementID:  record.ID,
		TitleID:     record.TitleID,
		WarehouseID: record.WarehouseID,
		Type:        record.Type,
		Quantity:    record.Quantity,
		Record:      record,
	})
	if err != nil {
		w.log.Error().Err(err).Str("movement_id", record.ID).Msg("marshal webhook event")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.Error().Err(err).Str("movement_id", record.ID).Msg("build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn().Err(err).Str("movement_id", record.ID).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.log.Warn().Int("status", resp.StatusCode).Str("movement_id", record.ID).Msg("webhook delivery rejected")
	}
}
