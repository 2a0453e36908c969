package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"
)

const clientTimeout = 60 * time.Second

// Settings returns the telebot settings shared by the command session and the
// push channel. apiURL may be empty for the public Bot API.
func Settings(token, apiURL, proxyURL string) tb.Settings {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return tb.Settings{
		URL:    apiURL,
		Token:  token,
		Client: &http.Client{Timeout: clientTimeout, Transport: transport},
	}
}

// Send delivers text to chatID with Markdown, falling back to plain text when
// Telegram rejects the markup. Returned errors never contain the token.
func Send(bot *tb.Bot, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id: %w", err)
	}
	to := &tb.Chat{ID: id}

	if _, err := bot.Send(to, text, tb.ModeMarkdown); err != nil {
		log.WithError(Redact(err, bot.Token)).Debug("Markdown send failed, retrying as plain text")
		if _, err := bot.Send(to, text); err != nil {
			return fmt.Errorf("send message: %w", Redact(err, bot.Token))
		}
	}
	return nil
}

// Redact strips the bot token, which Telegram embeds in every request URL.
func Redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "***"))
}
