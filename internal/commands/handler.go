package commands

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"burning-text-bot/internal/burning"
	"burning-text-bot/internal/chart"
	"burning-text-bot/lib/helpers"
	"burning-text-bot/lib/translation"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	msgStart      = "Send me some text, and I will generate a burning logo for you!"
	msgTimeout    = "The request timed out. Please try again later."
	msgAPIError   = "API error: %d"
	msgRequest    = "Request failed: %s"
	msgError      = "Error: %s"
	msgUnexpected = "An unexpected error occurred: %s"
	msgStats      = "Burning logos generated: %s\nIn the last hour: %s\nLatest: %s"
	msgNoneYet    = "never"
)

// Handler turns incoming chat messages into burning text replies.
type Handler struct {
	generator Generator
	history   History
	replier   Replier
	observer  Observer
	reporter  ErrorReporter
	now       func() time.Time
}

type Option func(*Handler)

func WithObserver(o Observer) Option {
	return func(h *Handler) { h.observer = o }
}

func WithErrorReporter(r ErrorReporter) Option {
	return func(h *Handler) { h.reporter = r }
}

func NewHandler(g Generator, history History, r Replier, opts ...Option) *Handler {
	h := &Handler{
		generator: g,
		history:   history,
		replier:   r,
		observer:  nopObserver{},
		reporter:  nopReporter{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle processes one message. It never panics and never returns an error:
// every failure ends up as a reply or a log line.
func (h *Handler) Handle(ctx context.Context, m Incoming) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("%v", r)
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, debug.Stack())
			h.reporter.CaptureException(err)
			h.reply(m, translation.Translate(msgUnexpected, err.Error()))
		}
	}()

	switch m.Command {
	case "start":
		h.observer.CommandProcessed()
		h.send(m.ChatID, 0, translation.Translate(msgStart))
		return
	case "stats":
		h.observer.CommandProcessed()
		h.reply(m, h.statsText())
		return
	case "chart":
		h.observer.CommandProcessed()
		h.sendChart(m)
		return
	}

	if m.Text == "" {
		return
	}

	h.observer.MessageHandled(m.ChatID, m.ChatName)
	h.generate(ctx, m)
}

func (h *Handler) generate(ctx context.Context, m Incoming) {
	started := h.now()
	data, err := h.generator.Generate(ctx, m.Text)
	h.observer.GenerationObserved(h.now().Sub(started), failureReason(err))

	if err != nil {
		log.Debugf("generation for chat %d failed: %v", m.ChatID, err)
		if _, ok := burning.AsError(err); !ok {
			log.Errorf("Unexpected generation failure: %v", err)
			h.reporter.CaptureException(err)
		}
		h.reply(m, ReplyText(err))
		return
	}

	if err := h.replier.SendAnimation(m.ChatID, m.MessageID, helpers.AnimationFileName(), data); err != nil {
		log.Errorf("Failed to send animation: %v", err)
	}
}

// ReplyText maps a generation failure to the text shown to the user.
func ReplyText(err error) string {
	e, ok := burning.AsError(err)
	if !ok {
		return translation.Translate(msgUnexpected, err.Error())
	}

	switch e.Kind {
	case burning.KindTimeout:
		return translation.Translate(msgTimeout)
	case burning.KindAPI:
		return translation.Translate(msgAPIError, e.StatusCode)
	case burning.KindRequest:
		return translation.Translate(msgRequest, e.Msg)
	default:
		return translation.Translate(msgError, e.Error())
	}
}

func failureReason(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := burning.AsError(err); ok {
		return e.Kind.String()
	}
	return "unexpected"
}

func (h *Handler) statsText() string {
	now := h.now()
	snapshot := h.history.Stats(now)
	lang := translation.GetLanguage()

	latest := translation.Translate(msgNoneYet)
	if t, ok := helpers.Latest(h.history.Timestamps()); ok {
		latest = helpers.FormatSince(t, now)
	}

	return translation.Translate(msgStats,
		helpers.FormatCount(snapshot.Total, lang),
		helpers.FormatCount(snapshot.Active, lang),
		latest,
	)
}

func (h *Handler) sendChart(m Incoming) {
	now := h.now()
	buckets := chart.HourlyActivity(h.history.Timestamps(), now, chart.ActivityHours)

	data, err := chart.RenderActivity(buckets, now.Location())
	if err != nil {
		log.Errorf("Failed to render activity chart: %v", err)
		h.reply(m, translation.Translate(msgError, err.Error()))
		return
	}

	name := fmt.Sprintf("activity-%s.png", now.Format("20060102-15"))
	if err := h.replier.SendPhoto(m.ChatID, m.MessageID, name, data); err != nil {
		log.Errorf("Failed to send activity chart: %v", err)
	}
}

func (h *Handler) reply(m Incoming, text string) {
	h.send(m.ChatID, m.MessageID, text)
}

func (h *Handler) send(chatID int64, replyTo int, text string) {
	if err := h.replier.SendText(chatID, replyTo, text); err != nil {
		log.Errorf("Failed to send message: %v", err)
	}
}
