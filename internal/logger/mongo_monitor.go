package logger

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/event"
)

// NewMongoMonitor reports MongoDB commands to l. Command bodies are never logged.
func NewMongoMonitor(l *slog.Logger) *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(ctx context.Context, e *event.CommandStartedEvent) {
			emit(ctx, l, 3, slog.LevelDebug, "mongo: "+e.CommandName,
				slog.String("database", e.DatabaseName),
				slog.Int64("mongo_request_id", e.RequestID))
		},
		Succeeded: func(ctx context.Context, e *event.CommandSucceededEvent) {
			emit(ctx, l, 3, slog.LevelDebug, "mongo: "+e.CommandName+" succeeded",
				slog.Int64("mongo_request_id", e.RequestID),
				slog.Duration("duration", e.Duration))
		},
		Failed: func(ctx context.Context, e *event.CommandFailedEvent) {
			emit(ctx, l, 3, slog.LevelWarn, "mongo: "+e.CommandName+" failed",
				slog.Int64("mongo_request_id", e.RequestID),
				slog.Duration("duration", e.Duration),
				slog.String("failure", e.Failure))
		},
	}
}
