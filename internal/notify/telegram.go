package notify

import (
	"context"

	tele "gopkg.in/telebot.v3"
)

// TelegramSender sends messages through the bot API with an "open app" button.
type TelegramSender struct {
	bot       *tele.Bot
	webAppURL string
}

// NewTelegramSender wraps an already configured bot.
func NewTelegramSender(bot *tele.Bot, webAppURL string) *TelegramSender {
	return &TelegramSender{bot: bot, webAppURL: webAppURL}
}

func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var opts []interface{}
	if s.webAppURL != "" {
		markup := &tele.ReplyMarkup{}
		markup.Inline(markup.Row(markup.WebApp("Open Sloi", &tele.WebApp{URL: s.webAppURL})))
		opts = append(opts, markup)
	}

	_, err := s.bot.Send(&tele.User{ID: chatID}, text, opts...)
	return err
}
