package notifier

import (
	"context"
	"sync"
	"sync/atomic"

	"FundingSentinel/internal/metrics"
	"FundingSentinel/internal/model"

	log "github.com/sirupsen/logrus"
)

// Channel delivers a rendered notification to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, body string) error
}

// Dispatcher fans a notification out to every configured channel.
type Dispatcher struct {
	channels []Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

// Names lists the enabled channels.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		ch := ch
		names = append(names, ch.Name())
	}
	return names
}

// Dispatch sends to all channels concurrently and returns how many accepted the
// message. A failing channel is logged and does not affect the others; nothing
// is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, title, body string) int {
	var (
		sent atomic.Int64
		wg   sync.WaitGroup
	)
	for _, ch := range d.channels {
		ch := ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ch.Send(ctx, title, body); err != nil {
				metrics.NotificationsSent.WithLabelValues(ch.Name(), "error").Inc()
				log.WithError(err).WithField("channel", ch.Name()).Error("Failed to send notification")
				return
			}
			metrics.NotificationsSent.WithLabelValues(ch.Name(), "ok").Inc()
			log.WithField("channel", ch.Name()).Info("Notification sent")
			sent.Add(1)
		}()
	}
	wg.Wait()
	return int(sent.Load())
}

// Notify renders the event and dispatches it. It returns false when the event
// produced no message.
func (d *Dispatcher) Notify(ctx context.Context, ev model.ChangeEvent) (sent int, rendered bool) {
	title, body, ok := RenderMessage(ev)
	if !ok {
		return 0, false
	}
	return d.Dispatch(ctx, title, body), true
}
