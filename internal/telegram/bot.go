package telegram

import (
	"context"
	"sync"

	"burning-text-bot/internal/commands"

	"github.com/davecgh/go-spew/spew"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	api.Debug = c.Debug
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		API:    api,
		Config: c,
		sender: api,
	}, nil
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.API.GetUpdatesChan(updatesConfig)
}

// StopReceivingUpdates stops long polling and closes the updates channel.
func (b *Bot) StopReceivingUpdates() {
	b.API.StopReceivingUpdates()
}

// SendText sends a plain text message, as a reply when replyTo is set.
func (b *Bot) SendText(chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	msg.DisableWebPagePreview = true
	_, err := b.sender.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", chatID)
}

func (b *Bot) SendAnimation(chatID int64, replyTo int, fileName string, data []byte) error {
	animation := tgbotapi.NewAnimation(chatID, tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: data,
	})
	animation.ReplyToMessageID = replyTo
	_, err := b.sender.Send(animation)
	return errors.Wrapf(err, "could not send animation %s to chat %d", fileName, chatID)
}

func (b *Bot) SendPhoto(chatID int64, replyTo int, fileName string, data []byte) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: data,
	})
	photo.ReplyToMessageID = replyTo
	_, err := b.sender.Send(photo)
	return errors.Wrapf(err, "could not send photo %s to chat %d", fileName, chatID)
}

// ToIncoming converts a telegram message into the handler's representation.
func ToIncoming(m *tgbotapi.Message) commands.Incoming {
	in := commands.Incoming{
		MessageID: m.MessageID,
		Text:      m.Text,
		Command:   m.Command(),
	}
	if m.Chat != nil {
		in.ChatID = m.Chat.ID
		in.ChatName = m.Chat.Title
	}
	return in
}

// HandleUpdates dispatches every message update to h on its own goroutine
// and returns once updates is closed and all handlers have finished.
// Cancelling ctx does not abort messages that are already being handled.
func HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel, h *commands.Handler) {
	handlerCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	defer wg.Wait()

	for update := range updates {
		if update.Message == nil {
			if log.IsLevelEnabled(log.DebugLevel) {
				log.Debugf("Received non-message update: %s", spew.Sdump(update))
			}
			continue
		}

		in := ToIncoming(update.Message)
		log.Debugf("received message %d from chat %d, command %q", in.MessageID, in.ChatID, in.Command)

		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Handle(handlerCtx, in)
		}()
	}
}
