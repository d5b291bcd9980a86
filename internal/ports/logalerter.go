package ports

import (
	"context"

	"github.com/rs/zerolog"
)

// LogAlerter is an Alerter that writes to a structured logger instead of
// paging anyone — a reference implementation for the Alerter port, which
// spec.md §1 treats as an external collaborator.
type LogAlerter struct {
	log zerolog.Logger
}

// NewLogAlerter wraps a zerolog.Logger as an Alerter.
func NewLogAlerter(log zerolog.Logger) *LogAlerter {
	return &LogAlerter{log: log}
}

func (a *LogAlerter) Notify(ctx context.Context, severity AlertSeverity, subject string, details map[string]any) {
	event := a.log.Info()
	switch severity {
	case SeverityWarning:
		event = a.log.Warn()
	case SeverityCritical:
		event = a.log.Error()
	}
	event.Str("subject", subject).Interface("details", details).Msg("alert")
}
