package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"FundingSentinel/internal/telegram"

	tb "gopkg.in/tucnak/telebot.v2"
)

// TelegramChannel pushes notifications to the configured chat.
type TelegramChannel struct {
	bot    *tb.Bot
	chatID string
}

// NewTelegramChannel creates a send-only bot client; no request is made until
// the first notification. apiURL may be empty for the public Bot API.
func NewTelegramChannel(botToken, chatID, apiURL, proxyURL string) (*TelegramChannel, error) {
	s := telegram.Settings(botToken, apiURL, proxyURL)
	s.Offline = true
	bot, err := tb.NewBot(s)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", telegram.Redact(err, botToken))
	}
	return &TelegramChannel{bot: bot, chatID: chatID}, nil
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Send(_ context.Context, title, body string) error {
	return telegram.Send(t.bot, t.chatID, chatText(title, body))
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
