package notifications

import (
	"context"
	"log/slog"
)

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	n.log.InfoContext(ctx, "notification."+ev.Type,
		"user_id", ev.UserID,
		"swap_id", ev.SwapID,
		"status", ev.Status,
		"actor_id", ev.ActorID,
	)
	return nil
}
