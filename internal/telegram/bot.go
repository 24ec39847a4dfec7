package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/channel-digest/internal/retry"
)

// Connect authenticates a bot handle against the Bot API, retrying
// transient failures. Requests made through the handle are bounded by
// timeout.
func Connect(ctx context.Context, token string, timeout time.Duration, cfg retry.Config, logger zerolog.Logger) (*tgbotapi.BotAPI, error) {
	return connect(ctx, token, tgbotapi.APIEndpoint, timeout, cfg, logger)
}

func connect(ctx context.Context, token, endpoint string, timeout time.Duration, cfg retry.Config, logger zerolog.Logger) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: timeout}
	if cfg.Retryable == nil {
		cfg.Retryable = retryableAPIError
	}

	var bot *tgbotapi.BotAPI
	err := retry.WithBackoff(ctx, cfg, func(ctx context.Context) error {
		var err error
		bot, err = tgbotapi.NewBotAPIWithClient(token, endpoint, client)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram connect attempt failed")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}

	logger.Info().
		Str("username", bot.Self.UserName).
		Int64("id", bot.Self.ID).
		Msg("telegram bot connected")
	return bot, nil
}

// retryableAPIError rejects Bot API refusals such as a revoked token and
// falls back to message classification for transport errors.
func retryableAPIError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return retry.HTTPStatusRetryable(apiErr.Code)
	}
	return retry.IsTransient(err)
}
