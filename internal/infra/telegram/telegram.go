package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/labstock/internal/notify"
)

// Chat posts group notifications through the Bot API.
type Chat struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

func New(token string, log *slog.Logger) (*Chat, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info("telegram authorized", "bot", api.Self.UserName)
	return &Chat{api: api, log: log}, nil
}

// API exposes the authorized client for the chat bot.
func (c *Chat) API() *tgbotapi.BotAPI { return c.api }

func (c *Chat) SendText(_ context.Context, chatID int64, text string) error {
	return c.send(tgbotapi.NewMessage(chatID, text))
}

func (c *Chat) SendDocument(_ context.Context, chatID int64, file notify.Attachment, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  file.Name,
		Bytes: file.Data,
	})
	doc.Caption = caption
	return c.send(doc)
}

func (c *Chat) send(msg tgbotapi.Chattable) error {
	if _, err := c.api.Send(msg); err != nil {
		c.log.Error("send failed", "err", err)
		return err
	}
	return nil
}
