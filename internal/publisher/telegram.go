package publisher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ryosukesatoh/channel-digest/internal/summarizer"
)

// telegramMaxMsgLen stays under the Bot API's 4096 character limit.
const telegramMaxMsgLen = 4000

// Sender is the part of the bot API used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramPublisher posts the digest to one chat through the Bot API.
type TelegramPublisher struct {
	bot         Sender
	destination string
	parseMode   string
}

// NewTelegramPublisher targets destination, a numeric chat id or a
// channel username with or without the leading @.
func NewTelegramPublisher(bot Sender, destination, parseMode string) *TelegramPublisher {
	return &TelegramPublisher{
		bot:         bot,
		destination: strings.TrimSpace(destination),
		parseMode:   parseMode,
	}
}

func (p *TelegramPublisher) Publish(ctx context.Context, digest *summarizer.Digest) error {
	chunks := splitMessage(digest.Body, telegramMaxMsgLen)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return &DeliveryError{Err: err}
		}
		msg := p.newMessage(chunk)
		msg.ParseMode = p.parseMode
		if _, err := p.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram: chunk %d/%d: %w", i+1, len(chunks), asDeliveryError(err))
		}
	}
	return nil
}

func (p *TelegramPublisher) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(p.destination, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	username := p.destination
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	return tgbotapi.NewMessageToChannel(username, text)
}

func asDeliveryError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &DeliveryError{Status: apiErr.Code, Body: apiErr.Message, Err: err}
	}
	return &DeliveryError{Err: err}
}
