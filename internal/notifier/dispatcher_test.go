package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"FundingSentinel/internal/model"

	"github.com/stretchr/testify/assert"
)

type recordingChannel struct {
	name string
	err  error

	mu    sync.Mutex
	calls []string
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, title, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, title+"|"+body)
	return c.err
}

func TestDispatch_IsolatesFailures(t *testing.T) {
	good := &recordingChannel{name: "good"}
	bad := &recordingChannel{name: "bad", err: errors.New("smtp: connection refused")}
	other := &recordingChannel{name: "other"}

	d := NewDispatcher(bad, good, other)
	assert.Equal(t, 2, d.Dispatch(context.Background(), "t", "b"))
	assert.Len(t, bad.calls, 1)
	assert.Equal(t, []string{"t|b"}, good.calls)
	assert.Equal(t, []string{"t|b"}, other.calls)
	assert.Equal(t, []string{"bad", "good", "other"}, d.Names())
}

func TestDispatch_AllFail(t *testing.T) {
	d := NewDispatcher(&recordingChannel{name: "a", err: errors.New("x")})
	assert.Zero(t, d.Dispatch(context.Background(), "t", "b"))
	assert.Zero(t, NewDispatcher().Dispatch(context.Background(), "t", "b"))
}

func TestNotify(t *testing.T) {
	ch := &recordingChannel{name: "c"}
	d := NewDispatcher(ch)

	sent, rendered := d.Notify(context.Background(), model.ChangeEvent{Currency: "BTC", Kind: model.ChangeFirstSeen})
	assert.False(t, rendered)
	assert.Zero(t, sent)
	assert.Empty(t, ch.calls)

	sent, rendered = d.Notify(context.Background(), model.ChangeEvent{
		Currency: "BTC",
		Kind:     model.ChangeStatusTransition,
		Previous: model.FundingStatus{LendingStatus: model.StatusOffered},
		Current:  model.FundingStatus{LendingStatus: model.StatusInactive},
	})
	assert.True(t, rendered)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"Bitfinex BTC Lending Status Change|BTC: Lending cancelled"}, ch.calls)
}
