package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FundingSentinel/internal/collector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID string
	text   string
}

type fakeTransport struct {
	mu          sync.Mutex
	connectErrs []error
	connects    int
	listen      func(ctx context.Context, handle func(ctx context.Context, chatID, text string)) error
	sent        []sentMessage
	closed      bool
}

func (f *fakeTransport) Connect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) == 0 {
		return nil
	}
	err := f.connectErrs[0]
	f.connectErrs = f.connectErrs[1:]
	return err
}

func (f *fakeTransport) Listen(ctx context.Context, handle func(ctx context.Context, chatID, text string)) error {
	return f.listen(ctx, handle)
}

func (f *fakeTransport) Send(_ context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func newTestSession(t *fakeTransport) (*Session, *[]time.Duration) {
	s := NewSession(t, newCommands(fixtureFetcher()), ownerChat)
	var waits []time.Duration
	s.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return s, &waits
}

func TestSession_BackoffDoublesUpToCap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failures := make([]error, 11)
	for i := range failures {
		failures[i] = errors.New("dial tcp: i/o timeout")
	}
	tr := &fakeTransport{
		connectErrs: failures,
		listen: func(ctx context.Context, _ func(context.Context, string, string)) error {
			cancel()
			<-ctx.Done()
			return nil
		},
	}
	s, waits := newTestSession(tr)

	require.NoError(t, s.Run(ctx))

	want := []time.Duration{1, 2, 4, 8, 16, 32, 64, 128, 256, 300, 300}
	for i := range want {
		want[i] *= time.Second
	}
	assert.Equal(t, want, *waits)
	assert.Equal(t, 12, tr.connects)
	assert.Equal(t, Disconnected, s.State())
	assert.True(t, tr.closed)
	assert.Equal(t, []sentMessage{
		{chatID: ownerChat, text: startupNotice},
		{chatID: ownerChat, text: farewellNotice},
	}, tr.messages())
}

func TestSession_ResetsBackoffAfterConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listens := 0
	tr := &fakeTransport{
		listen: func(ctx context.Context, _ func(context.Context, string, string)) error {
			listens++
			if listens < 3 {
				return errors.New("telegram: Conflict: terminated by other getUpdates request")
			}
			cancel()
			return ctx.Err()
		},
	}
	s, waits := newTestSession(tr)

	require.NoError(t, s.Run(ctx))

	assert.Equal(t, []time.Duration{time.Second, time.Second}, *waits)
	assert.Equal(t, 3, tr.connects)

	// The online notice goes out once, not on every reconnect.
	assert.Equal(t, []sentMessage{
		{chatID: ownerChat, text: startupNotice},
		{chatID: ownerChat, text: farewellNotice},
	}, tr.messages())
}

func TestSession_RoutesCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &fakeTransport{
		listen: func(ctx context.Context, handle func(context.Context, string, string)) error {
			handle(ctx, ownerChat, "/help")
			handle(ctx, ownerChat, "thanks")
			handle(ctx, "777", "/status")
			cancel()
			return nil
		},
	}
	s, _ := newTestSession(tr)

	require.NoError(t, s.Run(ctx))

	msgs := tr.messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, sentMessage{chatID: ownerChat, text: helpText}, msgs[1])
	assert.Equal(t, sentMessage{chatID: "777", text: unauthorizedReply}, msgs[2])
	assert.Equal(t, farewellNotice, msgs[3].text)
}

func TestSession_NoFarewellWhenNeverConnected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	tr := &fakeTransport{connectErrs: []error{errors.New("unauthorized")}}
	s := NewSession(tr, NewCommands(collector.NewCollector(&collector.MockFetcher{}, nil), ownerChat), ownerChat)
	s.wait = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop")
	}
	assert.Empty(t, tr.messages())
	assert.True(t, tr.closed)
	assert.Equal(t, Disconnected, s.State())
}

func TestSession_IllegalTransitionPanics(t *testing.T) {
	s := NewSession(&fakeTransport{}, nil, ownerChat)
	assert.Panics(t, func() { s.transition(Listening) })
	assert.Equal(t, "connecting", Connecting.String())
}
