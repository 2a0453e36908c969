package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"FundingSentinel/internal/metrics"

	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
)

const (
	startupNotice  = "🤖 Bitfinex Funding Monitor Bot is now online!\nSend /help for available commands."
	farewellNotice = "🔌 Bitfinex Funding Monitor Bot is going offline. Goodbye!"

	farewellTimeout = 10 * time.Second
)

// SessionState is the connection state of the chat session.
type SessionState int32

const (
	Disconnected SessionState = iota
	Connecting
	Listening
)

func (s SessionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Listening:
		return "listening"
	}
	return fmt.Sprintf("session_state(%d)", int32(s))
}

var transitions = map[SessionState][]SessionState{
	Disconnected: {Connecting},
	Connecting:   {Listening, Disconnected},
	Listening:    {Disconnected},
}

// Session keeps the chat front-end connected, reconnecting with exponential
// backoff whenever the connection or the update loop fails.
type Session struct {
	Transport Transport
	Handler   *Commands
	ChatID    string
	Backoff   *backoff.Backoff

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error

	state     atomic.Int32
	announce  sync.Once
	connected atomic.Bool
}

// NewSession creates a session with a 1s..300s doubling backoff.
func NewSession(t Transport, handler *Commands, chatID string) *Session {
	return &Session{
		Transport: t,
		Handler:   handler,
		ChatID:    chatID,
		Backoff: &backoff.Backoff{
			Min:    time.Second,
			Max:    300 * time.Second,
			Factor: 2,
			Jitter: false,
		},
		wait: sleepContext,
	}
}

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

func (s *Session) transition(to SessionState) {
	from := s.State()
	allowed := false
	for _, next := range transitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		panic(fmt.Sprintf("bot session: illegal transition %s -> %s", from, to))
	}
	s.state.Store(int32(to))
	log.WithField("state", to).Debug("Telegram session state changed")
}

// Run connects and serves commands until ctx is cancelled. It always returns nil
// after sending the farewell notice and closing the transport.
func (s *Session) Run(ctx context.Context) error {
	log.Info("Starting Telegram bot polling")
	for ctx.Err() == nil {
		s.transition(Connecting)
		if err := s.Transport.Connect(ctx); err != nil {
			s.transition(Disconnected)
			if ctx.Err() != nil {
				break
			}
			s.retry(ctx, fmt.Errorf("connect: %w", err))
			continue
		}

		s.Backoff.Reset()
		s.connected.Store(true)
		s.transition(Listening)
		log.Info("Telegram bot connected")
		s.announce.Do(func() { s.notify(ctx, startupNotice) })

		err := s.Transport.Listen(ctx, s.handle)
		s.transition(Disconnected)
		if ctx.Err() != nil {
			break
		}
		if err == nil {
			err = fmt.Errorf("update loop ended")
		}
		s.retry(ctx, err)
	}

	s.shutdown(ctx)
	log.Info("Telegram bot polling stopped")
	return nil
}

func (s *Session) retry(ctx context.Context, cause error) {
	delay := s.Backoff.Duration()
	metrics.BotReconnects.Inc()
	log.WithError(cause).Errorf("Telegram bot polling error, attempting to reconnect in %s", delay)
	_ = s.wait(ctx, delay)
}

func (s *Session) handle(ctx context.Context, chatID, text string) {
	reply := s.Handler.Handle(ctx, chatID, text)
	if reply == "" {
		return
	}
	if err := s.Transport.Send(ctx, chatID, reply); err != nil {
		log.WithError(err).Error("Failed to send Telegram reply")
	}
}

func (s *Session) notify(ctx context.Context, text string) {
	if err := s.Transport.Send(ctx, s.ChatID, text); err != nil {
		log.WithError(err).Error("Failed to send Telegram notice")
	}
}

func (s *Session) shutdown(ctx context.Context) {
	if s.connected.Load() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), farewellTimeout)
		s.notify(fctx, farewellNotice)
		cancel()
	}
	if err := s.Transport.Close(); err != nil {
		log.WithError(err).Warn("Error closing Telegram transport")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
