package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ryosukesatoh/channel-digest/internal/ingest"
)

// Updater is the long-polling half of the bot API.
type Updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ChannelSource turns channel posts from the subscribed channels into
// ingestion events. The bot only sees posts of channels it is a member of.
type ChannelSource struct {
	bot         Updater
	channels    map[string]struct{}
	pollTimeout int
	logger      zerolog.Logger
}

// NewChannelSource subscribes to channels, given as bare usernames.
func NewChannelSource(bot Updater, channels []string, pollTimeout int, logger zerolog.Logger) *ChannelSource {
	return &ChannelSource{
		bot: bot,
		channels: lo.SliceToMap(channels, func(ch string) (string, struct{}) {
			return strings.ToLower(ch), struct{}{}
		}),
		pollTimeout: pollTimeout,
		logger:      logger.With().Str("component", "telegram").Logger(),
	}
}

// Events streams posts until ctx is done, then stops polling and closes
// the returned channel.
func (s *ChannelSource) Events(ctx context.Context) <-chan ingest.Event {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = s.pollTimeout
	u.AllowedUpdates = []string{"channel_post"}
	updates := s.bot.GetUpdatesChan(u)

	out := make(chan ingest.Event)
	go func() {
		defer close(out)
		s.logger.Info().Strs("channels", lo.Keys(s.channels)).Msg("telegram polling started")
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("telegram polling stopping")
				s.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				ev, keep := s.toEvent(update)
				if !keep {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
				}
			}
		}
	}()
	return out
}

func (s *ChannelSource) toEvent(update tgbotapi.Update) (ingest.Event, bool) {
	post := update.ChannelPost
	if post == nil {
		return ingest.Event{}, false
	}

	text := post.Text
	if text == "" {
		text = post.Caption
	}
	if post.Chat == nil {
		// Without chat metadata the subscription cannot be checked; keep
		// the post and let the listener record it under the sentinel.
		s.logger.Warn().Int("update_id", update.UpdateID).Msg("channel post without chat metadata")
		return ingest.Event{Text: text}, true
	}

	if _, ok := s.channels[strings.ToLower(post.Chat.UserName)]; !ok {
		return ingest.Event{}, false
	}
	return ingest.Event{
		Chat: &ingest.Chat{
			ID:       post.Chat.ID,
			Username: post.Chat.UserName,
			Title:    post.Chat.Title,
		},
		Text: text,
	}, true
}
