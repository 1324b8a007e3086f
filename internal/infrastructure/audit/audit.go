// Package audit writes the append-only action trail as structured log events.
package audit

import (
	"context"

	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/pkg/logger"
)

var _ movement.Auditor = (*Log)(nil)

// Log records audited actions through the structured logger, tagged so the
// trail can be filtered out of the application log downstream.
type Log struct {
	log *logger.Logger
}

// NewLog builds the auditor.
func NewLog(log *logger.Logger) *Log {
	return &Log{log: log.Component("audit")}
}

// Record emits one audit event. Never fails.
func (l *Log) Record(_ context.Context, action, actor string, detail map[string]any) {
	l.log.Info().
		Str("action", action).
		Str("actor", actor).
		Fields(detail).
		Msg("audit")
}
