package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the channel uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts to a channel given either as a numeric chat id or as an
// @username.
type Telegram struct {
	bot      Sender
	chatID   int64
	username string
}

func NewTelegram(bot Sender, target string) *Telegram {
	t := &Telegram{bot: bot}
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		t.chatID = id
	} else {
		t.username = target
	}
	return t
}

func (t *Telegram) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sent, err := t.bot.Send(t.chattable(msg))
	if err != nil {
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) && strings.Contains(strings.ToLower(tgErr.Message), "can't parse entities") {
			return fmt.Errorf("%w: %s", ErrBadFormatting, tgErr.Message)
		}
		return fmt.Errorf("telegram: %w", err)
	}

	slog.Debug("Message sent", "message_id", sent.MessageID, "photo", msg.ImageURL != "")
	return nil
}

func (t *Telegram) chattable(msg Message) tgbotapi.Chattable {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(msg.ButtonText, msg.ButtonURL),
		),
	)

	parseMode := ""
	if msg.Markdown {
		parseMode = tgbotapi.ModeMarkdown
	}

	if msg.ImageURL != "" {
		var photo tgbotapi.PhotoConfig
		if t.username != "" {
			photo = tgbotapi.NewPhotoToChannel(t.username, tgbotapi.FileURL(msg.ImageURL))
		} else {
			photo = tgbotapi.NewPhoto(t.chatID, tgbotapi.FileURL(msg.ImageURL))
		}
		photo.Caption = msg.Text
		photo.ParseMode = parseMode
		photo.ReplyMarkup = keyboard
		return photo
	}

	var message tgbotapi.MessageConfig
	if t.username != "" {
		message = tgbotapi.NewMessageToChannel(t.username, msg.Text)
	} else {
		message = tgbotapi.NewMessage(t.chatID, msg.Text)
	}
	message.ParseMode = parseMode
	message.DisableWebPagePreview = true
	message.ReplyMarkup = keyboard
	return message
}
