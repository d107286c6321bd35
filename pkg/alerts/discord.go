package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultDiscordAPI is the Discord REST base URL.
const DefaultDiscordAPI = "https://discord.com/api/v10"

// Discord caps message content at 2000 characters.
const discordMaxContent = 2000

// DiscordNotifier posts alerts to a Discord channel, either as a bot through
// the REST API or through a channel webhook.
type DiscordNotifier struct {
	apiURL     string
	token      string
	channelID  string
	webhookURL string
	client     *http.Client
}

// NewDiscordBotNotifier creates a notifier that posts as a bot user.
func NewDiscordBotNotifier(apiURL, token, channelID string) *DiscordNotifier {
	if apiURL == "" {
		apiURL = DefaultDiscordAPI
	}
	return &DiscordNotifier{
		apiURL:    strings.TrimSuffix(apiURL, "/"),
		token:     token,
		channelID: channelID,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewDiscordWebhookNotifier creates a notifier that posts to a channel webhook.
func NewDiscordWebhookNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) Send(ctx context.Context, alert Alert) error {
	content := alert.Message
	if runes := []rune(content); len(runes) > discordMaxContent {
		content = string(runes[:discordMaxContent])
	}

	body, err := json.Marshal(discordMessage{Content: content})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	url := d.webhookURL
	if url == "" {
		url = fmt.Sprintf("%s/channels/%s/messages", d.apiURL, d.channelID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	d.authorize(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	return nil
}

// Verify checks that the configured channel exists and belongs to a guild.
// In webhook mode it checks that the webhook resolves.
func (d *DiscordNotifier) Verify(ctx context.Context) error {
	url := d.webhookURL
	if url == "" {
		if d.token == "" || d.channelID == "" {
			return errors.New("discord token and channel id are required")
		}
		url = fmt.Sprintf("%s/channels/%s", d.apiURL, d.channelID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	d.authorize(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch discord channel: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	if d.webhookURL != "" {
		return nil
	}

	var ch discordChannel
	if err := json.NewDecoder(resp.Body).Decode(&ch); err != nil {
		return fmt.Errorf("decode discord channel: %w", err)
	}
	if ch.GuildID == "" {
		return fmt.Errorf("discord channel %s is not a guild channel", d.channelID)
	}
	return nil
}

func (d *DiscordNotifier) authorize(req *http.Request) {
	if d.webhookURL == "" && d.token != "" {
		req.Header.Set("Authorization", "Bot "+d.token)
	}
}

type discordMessage struct {
	Content string `json:"content"`
}

type discordChannel struct {
	ID      string `json:"id"`
	Type    int    `json:"type"`
	GuildID string `json:"guild_id"`
}
