package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/labstock/internal/domain/users"
)

const (
	btnRequests = "Open requests"
	btnReceipts = "Receipts to inspect"
	btnDrafts   = "Receipts to receive"
)

func inlineKeyboard(bs []button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(bs))
	for _, b := range bs {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// replyKeyboard is the bottom panel, by role.
func replyKeyboard(u *users.User) tgbotapi.ReplyKeyboardMarkup {
	var row []tgbotapi.KeyboardButton
	if u.HasAnyRole(requestViewers...) {
		row = append(row, tgbotapi.NewKeyboardButton(btnRequests))
	}
	if u.HasAnyRole(receptionRoles...) {
		row = append(row, tgbotapi.NewKeyboardButton(btnDrafts))
	}
	if u.HasAnyRole(qualityRoles...) {
		row = append(row, tgbotapi.NewKeyboardButton(btnReceipts))
	}
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard:       [][]tgbotapi.KeyboardButton{row},
	}
}
