package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
}

// messageSender is the part of tgbotapi.BotAPI the bot sends through.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot telegram interaction client
type Bot struct {
	API    *tgbotapi.BotAPI
	Config BotConfig
	sender messageSender
}
