// Package handler turns raw transport updates into domain events and feeds
// them to the conversation engine.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"exchange-agent/internal/domain"
	"exchange-agent/internal/integrations/telegram"
)

const unauthorizedText = "You're not authorized to use me!"

// Engine processes one classified inbound event.
type Engine interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// Notifier sends the rejection notice for unauthorized senders.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]string) error
}

// Handler classifies updates, applies the single-admin gate and dispatches
// to the engine. Classification happens here and nowhere else.
type Handler struct {
	engine   Engine
	notifier Notifier
	adminID  int64
	logger   *slog.Logger
}

// NewHandler creates a Handler. adminID 0 disables the authorization gate.
func NewHandler(engine Engine, notifier Notifier, adminID int64, logger *slog.Logger) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("handler: engine must not be nil")
	}
	if notifier == nil {
		return nil, errors.New("handler: notifier must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, notifier: notifier, adminID: adminID, logger: logger}, nil
}

// Dispatch processes one raw update. Updates with no extractable text are
// dropped silently; unauthorized senders get exactly one rejection message
// and no engine dispatch.
func (h *Handler) Dispatch(ctx context.Context, u telegram.Update) error {
	ev, ok := classify(u)
	if !ok {
		return nil
	}

	if h.adminID != 0 && ev.Sender() != h.adminID {
		h.logger.Warn("unauthorized sender", "update", u.UpdateID, "sender", ev.Sender())
		if msg, isMessage := ev.(domain.MessageEvent); isMessage {
			if err := h.notifier.SendMessage(ctx, msg.ChatID, unauthorizedText, nil); err != nil {
				h.logger.Error("rejection send failed", "chat", msg.ChatID, "err", err)
			}
		}
		return nil
	}

	return h.engine.Handle(ctx, ev)
}

// classify maps a raw update onto the event union. It returns false for
// updates that carry nothing the engine can act on.
func classify(u telegram.Update) (domain.Event, bool) {
	switch {
	case u.Message != nil:
		if strings.TrimSpace(u.Message.Text) == "" {
			return nil, false
		}
		senderID := u.Message.Chat.ID
		if u.Message.From != nil {
			senderID = u.Message.From.ID
		}
		return domain.MessageEvent{
			SeqID:    u.UpdateID,
			ChatID:   u.Message.Chat.ID,
			SenderID: senderID,
			Text:     u.Message.Text,
		}, true
	case u.InlineQuery != nil:
		if u.InlineQuery.From == nil || strings.TrimSpace(u.InlineQuery.Query) == "" {
			return nil, false
		}
		return domain.InlineQueryEvent{
			SeqID:    u.UpdateID,
			SenderID: u.InlineQuery.From.ID,
			QueryID:  u.InlineQuery.ID,
			Query:    u.InlineQuery.Query,
		}, true
	default:
		return nil, false
	}
}
