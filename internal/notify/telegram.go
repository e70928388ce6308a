// Package notify delivers operator alerts over the Telegram Bot API.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notifier posts orchestrator alerts to one Telegram chat. The zero-value
// disabled notifier swallows every send, so callers never need to branch on
// configuration.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // overridable for testing; defaults to Telegram API
}

// NewNotifier creates a Notifier. Alerts are enabled only when both botToken
// and chatID are configured.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    botToken != "" && chatID != "",
	}
}

// Enabled reports whether the notifier will actually deliver alerts.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts one HTML-formatted message to the configured chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.enabled {
		return nil
	}

	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	}
	form := url.Values{
		"chat_id":    {n.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, apiErr.Description)
	}
	return nil
}

// NotifyBlockerDigest sends a pre-rendered critical-blocker digest.
func (n *Notifier) NotifyBlockerDigest(ctx context.Context, textHTML string) error {
	return n.Send(ctx, textHTML)
}

// NotifyPromotion sends a promotion decision alert.
func (n *Notifier) NotifyPromotion(ctx context.Context, botName, fromStage, toStage string) error {
	msg := fmt.Sprintf("<b>Promotion</b>\nBot: <code>%s</code>\nStage: %s -> %s", botName, fromStage, toStage)
	return n.Send(ctx, msg)
}

// NotifyFreeze sends a promotion freeze alert.
func (n *Notifier) NotifyFreeze(ctx context.Context, botName, reason string) error {
	msg := fmt.Sprintf("<b>Promotion Frozen</b>\nBot: <code>%s</code>\nReason: %s", botName, reason)
	return n.Send(ctx, msg)
}
