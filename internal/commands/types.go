package commands

import (
	"context"
	"time"

	"burning-text-bot/internal/cache"
)

// Incoming is a chat message as the handler sees it.
type Incoming struct {
	ChatID    int64
	ChatName  string
	MessageID int
	Text      string
	// Command is the bot command without the leading slash, empty for plain text.
	Command string
}

// Replier delivers replies back to the chat a message came from.
type Replier interface {
	SendText(chatID int64, replyTo int, text string) error
	SendAnimation(chatID int64, replyTo int, fileName string, data []byte) error
	SendPhoto(chatID int64, replyTo int, fileName string, data []byte) error
}

type Generator interface {
	Generate(ctx context.Context, text string) ([]byte, error)
}

// History is the read side of the generation cache.
type History interface {
	Stats(now time.Time) cache.Snapshot
	Timestamps() []time.Time
}

// Observer is notified about handled messages and generation outcomes.
type Observer interface {
	MessageHandled(chatID int64, chatName string)
	CommandProcessed()
	GenerationObserved(d time.Duration, reason string)
}

// ErrorReporter forwards unexpected failures to an error tracker.
type ErrorReporter interface {
	CaptureException(err error)
}

type nopObserver struct{}

func (nopObserver) MessageHandled(int64, string)             {}
func (nopObserver) CommandProcessed()                        {}
func (nopObserver) GenerationObserved(time.Duration, string) {}

type nopReporter struct{}

func (nopReporter) CaptureException(error) {}
