package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Printf adapts a structured logger to printf-style consumers such as cron.
type Printf struct {
	logger *slog.Logger
}

// New returns a printf logger writing Info records tagged with component.
func New(base *slog.Logger, component string) Printf {
	if base == nil {
		base = slog.Default()
	}
	return Printf{logger: base.With("component", component)}
}

// Printf formats and logs one message.
func (p Printf) Printf(format string, args ...any) {
	p.logger.Log(context.Background(), slog.LevelInfo, strings.TrimSpace(fmt.Sprintf(format, args...)))
}
