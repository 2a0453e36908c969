package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FundingSentinel/internal/telegram"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"
)

// Transport is the chat network boundary. Listen blocks, delivering each incoming
// text message to handle, until ctx is done or the connection fails.
type Transport interface {
	Connect(ctx context.Context) error
	Listen(ctx context.Context, handle func(ctx context.Context, chatID, text string)) error
	Send(ctx context.Context, chatID, text string) error
	Close() error
}

var errNotConnected = errors.New("telegram: not connected")

const pollingTimeout = 30 * time.Second

var menu = []tb.Command{
	{Text: "/start", Description: "Start the bot and show help"},
	{Text: "/status", Description: "Show overall funding status"},
	{Text: "/active", Description: "Show active loans"},
	{Text: "/offered", Description: "Show offered funds"},
	{Text: "/inactive", Description: "Show inactive funds"},
	{Text: "/rates", Description: "Show current market lending rates"},
	{Text: "/help", Description: "Show help message"},
}

// TelebotTransport talks to the Telegram Bot API through long polling.
type TelebotTransport struct {
	token string
	proxy string

	mu   sync.Mutex
	bot  *tb.Bot
	errs chan error
}

func NewTelebotTransport(token, proxyURL string) *TelebotTransport {
	return &TelebotTransport{token: token, proxy: proxyURL}
}

// Connect creates a bot client, which verifies the token with getMe, and
// registers the command menu.
func (t *TelebotTransport) Connect(_ context.Context) error {
	errs := make(chan error, 1)
	settings := telegram.Settings(t.token, "", t.proxy)
	settings.Poller = &tb.LongPoller{Timeout: pollingTimeout}
	settings.Reporter = func(err error) {
		select {
		case errs <- t.redact(err):
		default:
		}
	}
	bot, err := tb.NewBot(settings)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", t.redact(err))
	}

	if err := bot.SetCommands(menu); err != nil {
		log.WithError(t.redact(err)).Error("Failed to register command menu")
	} else {
		log.Info("Telegram command menu registered successfully")
	}

	t.mu.Lock()
	t.bot, t.errs = bot, errs
	t.mu.Unlock()
	return nil
}

func (t *TelebotTransport) Listen(ctx context.Context, handle func(ctx context.Context, chatID, text string)) error {
	bot, errs := t.current()
	if bot == nil {
		return errNotConnected
	}

	bot.Handle(tb.OnText, func(m *tb.Message) {
		if m.Chat == nil {
			return
		}
		handle(ctx, strconv.FormatInt(m.Chat.ID, 10), m.Text)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errs:
	}
	// Stop hands off to the running Start loop, so it must only be called while
	// Start is running.
	bot.Stop()
	<-done
	return err
}

// Send delivers text with Markdown, falling back to plain text when Telegram
// rejects the markup.
func (t *TelebotTransport) Send(_ context.Context, chatID, text string) error {
	bot, _ := t.current()
	if bot == nil {
		return errNotConnected
	}
	return telegram.Send(bot, chatID, text)
}

func (t *TelebotTransport) Close() error {
	t.mu.Lock()
	t.bot, t.errs = nil, nil
	t.mu.Unlock()
	return nil
}

func (t *TelebotTransport) current() (*tb.Bot, chan error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bot, t.errs
}

func (t *TelebotTransport) redact(err error) error {
	return telegram.Redact(err, t.token)
}
