package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// GraphQLPanics implements the graphql-go log.Logger interface on top of slog
type GraphQLPanics struct {
	Logger *slog.Logger
}

func (g GraphQLPanics) LogPanic(ctx context.Context, value interface{}) {
	g.Logger.ErrorContext(ctx, fmt.Sprintf("graphql: panic occurred: %v", value),
		slog.String("stack", string(debug.Stack())))
}
