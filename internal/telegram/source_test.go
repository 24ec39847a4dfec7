package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/channel-digest/internal/ingest"
)

type fakeUpdater struct {
	updates chan tgbotapi.Update
	config  tgbotapi.UpdateConfig
	stopped chan struct{}
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{
		updates: make(chan tgbotapi.Update, 8),
		stopped: make(chan struct{}),
	}
}

func (f *fakeUpdater) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.config = config
	return f.updates
}

func (f *fakeUpdater) StopReceivingUpdates() { close(f.stopped) }

func channelPost(id int, username, text, caption string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		ChannelPost: &tgbotapi.Message{
			Chat:    &tgbotapi.Chat{ID: -100 - int64(id), UserName: username, Type: "channel"},
			Text:    text,
			Caption: caption,
		},
	}
}

func receive(t *testing.T, events <-chan ingest.Event) ingest.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return ingest.Event{}
	}
}

func TestEventsFiltersSubscribedChannels(t *testing.T) {
	up := newFakeUpdater()
	src := NewChannelSource(up, []string{"amitsegal", "newsflashhhj"}, 30, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := src.Events(ctx)

	up.updates <- channelPost(1, "someoneelse", "ignored", "")
	up.updates <- tgbotapi.Update{UpdateID: 2, Message: &tgbotapi.Message{Text: "direct message"}}
	up.updates <- channelPost(3, "AmitSegal", "first", "")
	up.updates <- channelPost(4, "newsflashhhj", "", "photo caption")

	ev := receive(t, events)
	require.NotNil(t, ev.Chat)
	assert.Equal(t, "AmitSegal", ev.Chat.Username)
	assert.Equal(t, "first", ev.Text)

	ev = receive(t, events)
	assert.Equal(t, "newsflashhhj", ev.Chat.Username)
	assert.Equal(t, "photo caption", ev.Text)

	assert.Equal(t, 30, up.config.Timeout)
	assert.Equal(t, []string{"channel_post"}, up.config.AllowedUpdates)
}

func TestEventsPassesPostWithoutChat(t *testing.T) {
	up := newFakeUpdater()
	src := NewChannelSource(up, []string{"amitsegal"}, 30, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := src.Events(ctx)

	up.updates <- tgbotapi.Update{UpdateID: 9, ChannelPost: &tgbotapi.Message{Text: "orphan"}}

	ev := receive(t, events)
	assert.Nil(t, ev.Chat)
	assert.Equal(t, "orphan", ev.Text)
}

func TestEventsStopsOnCancel(t *testing.T) {
	up := newFakeUpdater()
	src := NewChannelSource(up, []string{"amitsegal"}, 30, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	events := src.Events(ctx)
	cancel()

	select {
	case <-up.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("polling was not stopped")
	}
	_, ok := <-events
	assert.False(t, ok, "events channel should be closed")
}
