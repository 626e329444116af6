// Package poll drives the long-poll loop against the messaging transport.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"exchange-agent/internal/integrations/telegram"
	"exchange-agent/pkg/metrics"
)

const (
	defaultLimit    = 5
	defaultInterval = time.Second
)

// Transport is the inbound side of the messaging transport.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64, limit, timeoutSeconds int) ([]telegram.Update, error)
}

// Dispatcher consumes one raw update. A dispatch error is reported by the
// loop and never stops delivery of later updates.
type Dispatcher interface {
	Dispatch(ctx context.Context, u telegram.Update) error
}

// Loop polls the transport for new updates and dispatches them in sequence
// order. The cursor is owned exclusively by the Loop: it is advanced to
// update id + 1 as soon as an update is read, before the update is
// dispatched, so a crash mid-dispatch never loses later messages.
type Loop struct {
	transport Transport
	dispatch  Dispatcher

	limit          int
	timeoutSeconds int
	interval       time.Duration
	logger         *slog.Logger

	cursor int64
}

func New(transport Transport, dispatch Dispatcher, cursorSeed int64, limit, timeoutSeconds int, interval time.Duration, logger *slog.Logger) (*Loop, error) {
	if transport == nil {
		return nil, errors.New("poll: transport must not be nil")
	}
	if dispatch == nil {
		return nil, errors.New("poll: dispatcher must not be nil")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if timeoutSeconds < 0 {
		timeoutSeconds = 0
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		transport:      transport,
		dispatch:       dispatch,
		limit:          limit,
		timeoutSeconds: timeoutSeconds,
		interval:       interval,
		logger:         logger,
		cursor:         cursorSeed,
	}, nil
}

// Cursor returns the id of the next unseen update.
func (l *Loop) Cursor() int64 {
	return l.cursor
}

// Run polls until ctx is canceled. Transport errors are logged and retried
// at the fixed interval with the cursor untouched; there is no backoff
// growth.
func (l *Loop) Run(ctx context.Context) error {
	for {
		updates, err := l.transport.GetUpdates(ctx, l.cursor, l.limit, l.timeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error("poll request failed", "offset", l.cursor, "err", err)
			metrics.PollErrors.Inc()
		} else {
			l.processBatch(ctx, updates)
		}

		select {
		case <-time.After(l.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// processBatch dispatches updates in delivery order, one at a time. One
// failing turn must never stop delivery to other users.
func (l *Loop) processBatch(ctx context.Context, updates []telegram.Update) {
	for _, u := range updates {
		l.cursor = u.UpdateID + 1

		turnID := uuid.NewString()
		l.logger.Debug("dispatching update", "turn", turnID, "update", u.UpdateID)

		if err := l.dispatch.Dispatch(ctx, u); err != nil {
			l.logger.Error("dispatch failed", "turn", turnID, "update", u.UpdateID, "err", err)
			metrics.UpdatesProcessed.WithLabelValues("error").Inc()
			continue
		}
		metrics.UpdatesProcessed.WithLabelValues("ok").Inc()
	}
}
