package telegram

import (
	"context"
	"log/slog"
)

// DryRun is a transport that logs instead of sending. It backs local runs
// and demos where no real bot token is available.
type DryRun struct {
	log *slog.Logger
}

func NewDryRun(log *slog.Logger) *DryRun {
	return &DryRun{log: log}
}

func (t *DryRun) Send(_ context.Context, _ string, telegramID int64, message string) error {
	t.log.Info("dry-run send",
		slog.Int64("telegram_id", telegramID),
		slog.Int("message_len", len(message)))
	return nil
}
