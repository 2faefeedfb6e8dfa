// Package bot lets purchasing and quality managers act on documents from Telegram.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/labstock/internal/domain/users"
)

type Bot struct {
	api   *tgbotapi.BotAPI
	log   *slog.Logger
	users Users
	desk  *Desk
}

func New(api *tgbotapi.BotAPI, log *slog.Logger, us Users, desk *Desk) *Bot {
	return &Bot{api: api, log: log, users: us, desk: desk}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				b.onMessage(ctx, upd)
			} else if upd.CallbackQuery != nil {
				b.onCallback(ctx, upd)
			}
		}
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

func (b *Bot) user(ctx context.Context, from *tgbotapi.User) *users.User {
	if from == nil {
		return nil
	}
	u, err := b.users.GetByTelegramID(ctx, from.ID)
	if err != nil {
		b.log.Error("user lookup failed", "telegram_id", from.ID, "err", err)
		return nil
	}
	return u
}

func (b *Bot) onMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	chatID := msg.Chat.ID
	if msg.From == nil {
		return
	}

	u := b.user(ctx, msg.From)
	if u == nil {
		b.send(tgbotapi.NewMessage(chatID,
			fmt.Sprintf("You are not registered. Ask an administrator to link Telegram id %d.", msg.From.ID)))
		return
	}

	switch text := strings.TrimSpace(msg.Text); text {
	case "/start":
		m := tgbotapi.NewMessage(chatID, fmt.Sprintf("Hello, %s.", u.Name))
		m.ReplyMarkup = replyKeyboard(u)
		b.send(m)
	case "/requests", btnRequests:
		b.listRequests(ctx, chatID, u)
	case "/receipts", btnReceipts:
		b.listReceipts(ctx, chatID, u)
	case "/drafts", btnDrafts:
		b.listDrafts(ctx, chatID, u)
	default:
		b.send(tgbotapi.NewMessage(chatID, "Commands: /requests, /receipts, /drafts"))
	}
}

func (b *Bot) listRequests(ctx context.Context, chatID int64, u *users.User) {
	if !u.HasAnyRole(requestViewers...) {
		b.send(tgbotapi.NewMessage(chatID, errForbidden.Error()))
		return
	}
	rs, err := b.desk.OpenRequests(ctx)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, b.desk.userMessage(err)))
		return
	}
	if len(rs) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "No open requests."))
		return
	}
	for _, r := range rs {
		m := tgbotapi.NewMessage(chatID, describeRequest(&r, nil))
		if bs := requestButtonsFor(u, r); len(bs) > 0 {
			m.ReplyMarkup = inlineKeyboard(bs)
		}
		b.send(m)
	}
}

func (b *Bot) listReceipts(ctx context.Context, chatID int64, u *users.User) {
	if !u.HasAnyRole(qualityRoles...) {
		b.send(tgbotapi.NewMessage(chatID, errForbidden.Error()))
		return
	}
	rcs, err := b.desk.PendingReceipts(ctx)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, b.desk.userMessage(err)))
		return
	}
	if len(rcs) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "No receipts waiting for QA."))
		return
	}
	for _, rc := range rcs {
		m := tgbotapi.NewMessage(chatID, describeReceipt(rc))
		m.ReplyMarkup = inlineKeyboard(receiptButtons(rc))
		b.send(m)
	}
}

func (b *Bot) listDrafts(ctx context.Context, chatID int64, u *users.User) {
	if !u.HasAnyRole(receptionRoles...) {
		b.send(tgbotapi.NewMessage(chatID, errForbidden.Error()))
		return
	}
	rcs, err := b.desk.DraftReceipts(ctx)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, b.desk.userMessage(err)))
		return
	}
	if len(rcs) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "No receipts waiting to be received."))
		return
	}
	for _, rc := range rcs {
		m := tgbotapi.NewMessage(chatID, describeReceipt(rc))
		m.ReplyMarkup = inlineKeyboard(receiptButtons(rc))
		b.send(m)
	}
}

func (b *Bot) onCallback(ctx context.Context, upd tgbotapi.Update) {
	cb := upd.CallbackQuery

	u := b.user(ctx, cb.From)
	if u == nil {
		_ = b.answerCallback(cb, "You are not registered.", true)
		return
	}

	text, err := b.desk.Do(ctx, u, cb.Data)
	if err != nil {
		_ = b.answerCallback(cb, b.desk.userMessage(err), true)
		return
	}
	_ = b.answerCallback(cb, "Done", false)
	if cb.Message != nil {
		b.editTextAndClear(cb.Message.Chat.ID, cb.Message.MessageID, text)
	}
}

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) error {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	_, err := b.api.Request(resp)
	return err
}

func (b *Bot) editTextAndClear(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID, messageID, text,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	b.send(edit)
}
