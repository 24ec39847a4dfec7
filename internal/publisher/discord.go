package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ryosukesatoh/channel-digest/internal/summarizer"
)

// discordMaxContentLen is the webhook limit for message content.
const discordMaxContentLen = 2000

type discordWebhookPayload struct {
	Content string `json:"content"`
}

// DiscordPublisher publishes digests to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{},
	}
}

// Publish posts the digest body, split to fit the content limit.
func (d *DiscordPublisher) Publish(ctx context.Context, digest *summarizer.Digest) error {
	chunks := splitMessage(digest.Body, discordMaxContentLen)
	for i, chunk := range chunks {
		if err := d.sendWebhook(ctx, chunk); err != nil {
			return fmt.Errorf("discord: chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// sendWebhook posts one message to the Discord webhook.
func (d *DiscordPublisher) sendWebhook(ctx context.Context, content string) error {
	body, err := json.Marshal(discordWebhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}
