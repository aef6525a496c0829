package chat

import (
	"fmt"
	"log"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Bot wraps the Telegram bot: outbound messages for the chat channel
// plus a /start handler that tells a user the chat id an administrator
// needs to link their account.
type Bot struct {
	bot *tele.Bot
}

// New connects the bot with long polling. The token comes from
// BOT_TOKEN; an empty token means the chat channel stays unconfigured.
func New(token string) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("connect chat bot: %w", err)
	}

	bot := &Bot{bot: b}
	b.Handle("/start", bot.handleStart)
	return bot, nil
}

// Start begins polling in the background.
func (b *Bot) Start() {
	log.Println("💬 Chat bot polling started")
	go b.bot.Start()
}

// Stop ends polling.
func (b *Bot) Stop() {
	b.bot.Stop()
}

// SendMessage delivers text to a chat and returns the message id.
func (b *Bot) SendMessage(chatID int64, text string) (int, error) {
	msg, err := b.bot.Send(&tele.Chat{ID: chatID}, text)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// handleStart replies with the chat id so an administrator can bind it
// to a user account.
func (b *Bot) handleStart(c tele.Context) error {
	return c.Send(fmt.Sprintf(
		"Hello! Your chat id is %d. Ask your administrator to link it to your account to receive expiry alerts here.",
		c.Chat().ID))
}
