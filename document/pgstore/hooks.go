package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/rise-and-shine/docclip/logger"
)

var _ bun.QueryHook = (*debugHook)(nil)

// debugHook logs queries through the module logger. Failed and slow
// queries are always logged; successful ones only in verbose mode.
type debugHook struct {
	log           logger.Logger
	verbose       bool
	slowThreshold time.Duration
}

func newDebugHook(log logger.Logger, verbose bool, slowThreshold time.Duration) *debugHook {
	return &debugHook{log: log, verbose: verbose, slowThreshold: slowThreshold}
}

func (h *debugHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *debugHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)

	noRows := errors.Is(event.Err, sql.ErrNoRows)
	failed := event.Err != nil && !noRows && !errors.Is(event.Err, sql.ErrTxDone)
	slow := h.slowThreshold > 0 && duration >= h.slowThreshold

	if !h.verbose && !failed && !slow {
		return
	}

	entry := h.log.WithContext(ctx).
		With("query", strings.ReplaceAll(event.Query, `"`, "")).
		With("duration", duration.Round(time.Microsecond))

	msg := "[bun] " + event.Operation()
	switch {
	case failed:
		entry.With("error", event.Err).Error(msg)
	case slow:
		entry.Warn(msg)
	default:
		entry.Debug(msg)
	}
}
