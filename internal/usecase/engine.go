package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"exchange-agent/internal/domain"
	"exchange-agent/pkg/metrics"
)

// SessionStore persists the last selected city per user.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (domain.Session, bool, error)
	Put(ctx context.Context, s domain.Session) error
}

// CityResolver maps a lowercased city name to its directory code.
type CityResolver interface {
	Code(name string) (string, bool)
}

// RateService is the aggregation surface the engine drives.
type RateService interface {
	GetRates(ctx context.Context, cityCode string) (domain.RateBundle, error)
	AnnounceBranches(ctx context.Context, regionID, bankID string, sink BranchSink) error
}

// Sender is the outbound transport surface consumed by the engine. Sends are
// fire-and-forget: a failure is reported through the returned error but never
// retried.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]string) error
	SendVenue(ctx context.Context, chatID int64, title, address string, lat, lon float64) error
	AnswerInlineQuery(ctx context.Context, queryID, title, text string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Engine is the per-user conversation state machine. It consumes one inbound
// event plus the prior session record and emits zero or more outbound
// messages through the Sender.
type Engine struct {
	sessions SessionStore
	cities   CityResolver
	rates    RateService
	sender   Sender
	logger   *slog.Logger

	// spawn runs the deferred branch announcement; replaced in tests to run
	// synchronously.
	spawn func(func())
}

func NewEngine(sessions SessionStore, cities CityResolver, rates RateService, sender Sender, logger *slog.Logger) (*Engine, error) {
	if sessions == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if cities == nil {
		return nil, errors.New("usecase: city resolver must not be nil")
	}
	if rates == nil {
		return nil, errors.New("usecase: rate service must not be nil")
	}
	if sender == nil {
		return nil, errors.New("usecase: sender must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessions: sessions,
		cities:   cities,
		rates:    rates,
		sender:   sender,
		logger:   logger,
		spawn:    func(f func()) { go f() },
	}, nil
}

// Handle processes exactly one inbound event. The returned error reports an
// internal failure of the turn; it never reflects a failed outbound send.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) error {
	switch t := ev.(type) {
	case domain.MessageEvent:
		return e.handleMessage(ctx, t)
	case domain.InlineQueryEvent:
		return e.handleInline(ctx, t)
	default:
		return newError(ErrorInvalidInput, "unknown_event_shape", nil)
	}
}

func (e *Engine) handleMessage(ctx context.Context, ev domain.MessageEvent) error {
	command, args := parseCommand(ev.Text)
	if command == "" {
		return nil
	}

	if command == "ping" {
		e.send(ctx, ev.ChatID, pongText, nil)
		return nil
	}

	sess, found, err := e.sessions.Get(ctx, ev.SenderID)
	if err != nil {
		// Store failures do not block the turn; proceed as if absent.
		e.logger.Error("session read failed", "user", ev.SenderID, "err", err)
		found = false
	}

	if command == "start" {
		if found {
			e.send(ctx, ev.ChatID, intentPromptText(sess.City), intentKeyboard)
		} else {
			e.send(ctx, ev.ChatID, cityPromptText, nil)
		}
		return nil
	}

	if _, ok := e.cities.Code(command); ok {
		sess = domain.Session{UserID: ev.SenderID, City: command, UpdatedAt: time.Now().UTC()}
		if err := e.sessions.Put(ctx, sess); err != nil {
			e.logger.Error("session write failed", "user", ev.SenderID, "err", err)
		}
		intent := domain.IntentNone
		if len(args) > 0 {
			intent = parseIntent(args[0])
		}
		if intent == domain.IntentNone {
			e.send(ctx, ev.ChatID, intentPromptText(command), intentKeyboard)
			return nil
		}
		return e.fetchAndReply(ctx, ev, command, intent)
	}

	if intent := parseIntent(command); intent != domain.IntentNone && found && sess.City != "" {
		return e.fetchAndReply(ctx, ev, sess.City, intent)
	}

	e.send(ctx, ev.ChatID, helpPromptText, nil)
	return nil
}

func (e *Engine) fetchAndReply(ctx context.Context, ev domain.MessageEvent, city string, intent domain.Intent) error {
	code, ok := e.cities.Code(city)
	if !ok {
		e.send(ctx, ev.ChatID, helpPromptText, nil)
		return nil
	}

	bundle, err := e.rates.GetRates(ctx, code)
	if err != nil {
		// No partial answer on aggregation failure; the user gets silence.
		return err
	}

	e.send(ctx, ev.ChatID, rateReplyText(city, intent, bundle), nil)

	offer := bundle.BestBuy
	if intent == domain.IntentSell {
		offer = bundle.BestSell
	}

	if err := e.sender.SendChatAction(ctx, ev.ChatID, "find_location"); err != nil {
		e.logger.Error("chat action send failed", "chat", ev.ChatID, "err", err)
	}
	e.send(ctx, ev.ChatID, searchingText, nil)

	announceCtx := context.WithoutCancel(ctx)
	chatID := ev.ChatID
	bankID := offer.BankID
	e.spawn(func() {
		sink := &transportBranchSink{sender: e.sender, chatID: chatID}
		if err := e.rates.AnnounceBranches(announceCtx, code, bankID, sink); err != nil {
			e.logger.Error("branch announcement failed", "chat", chatID, "bank", bankID, "err", err)
		}
	})
	return nil
}

func (e *Engine) handleInline(ctx context.Context, ev domain.InlineQueryEvent) error {
	city := strings.ToLower(strings.TrimSpace(ev.Query))
	code, ok := e.cities.Code(city)
	if !ok {
		e.answer(ctx, ev.QueryID, inlineHelpTitle, helpPromptText)
		return nil
	}

	bundle, err := e.rates.GetRates(ctx, code)
	if err != nil {
		return err
	}
	e.answer(ctx, ev.QueryID, inlineReplyTitle(city), inlineReplyText(city, bundle))
	return nil
}

// send delivers a text message, logging and swallowing transport failures.
func (e *Engine) send(ctx context.Context, chatID int64, text string, keyboard [][]string) {
	if err := e.sender.SendMessage(ctx, chatID, text, keyboard); err != nil {
		e.logger.Error("message send failed", "chat", chatID, "err", err)
		metrics.SendFailures.Inc()
	}
}

func (e *Engine) answer(ctx context.Context, queryID, title, text string) {
	if err := e.sender.AnswerInlineQuery(ctx, queryID, title, text); err != nil {
		e.logger.Error("inline answer failed", "query", queryID, "err", err)
		metrics.SendFailures.Inc()
	}
}

// transportBranchSink delivers branch announcements to one chat.
type transportBranchSink struct {
	sender Sender
	chatID int64
}

func (s *transportBranchSink) BranchSummary(ctx context.Context, b domain.Branch) error {
	return s.sender.SendMessage(ctx, s.chatID, branchSummaryText(b), nil)
}

func (s *transportBranchSink) BranchLocation(ctx context.Context, b domain.Branch) error {
	return s.sender.SendVenue(ctx, s.chatID, b.Name, b.Address, b.Latitude, b.Longitude)
}

// parseCommand splits raw text into the lowercased command token and its
// arguments, stripping a leading command marker.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	command := strings.TrimPrefix(strings.ToLower(fields[0]), "/")
	if len(fields) == 1 {
		return command, nil
	}
	return command, fields[1:]
}

func parseIntent(token string) domain.Intent {
	switch strings.ToLower(token) {
	case "buy":
		return domain.IntentBuy
	case "sell":
		return domain.IntentSell
	default:
		return domain.IntentNone
	}
}
