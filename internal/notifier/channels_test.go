package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramChannel_Send(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "Markdown", payload["parse_mode"])
		texts = append(texts, payload["text"])
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer srv.Close()

	ch, err := NewTelegramChannel("123:abc", "42", srv.URL, "")
	require.NoError(t, err)
	require.NoError(t, ch.Send(context.Background(), "Title", "body_text"))
	assert.Equal(t, []string{"*Title*\nbody_text"}, texts)
}

func TestTelegramChannel_ErrorHidesToken(t *testing.T) {
	ch, err := NewTelegramChannel("123:secret-token", "42", "http://127.0.0.1:1", "")
	require.NoError(t, err)
	err = ch.Send(context.Background(), "t", "b")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestWebhookChannels_Payloads(t *testing.T) {
	var got map[string]any
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = nil
		header = r.Header.Get("X-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	ctx := context.Background()

	require.NoError(t, NewDiscordChannel(srv.URL, "").Send(ctx, "T", "B"))
	assert.Equal(t, "**T**\nB", got["content"])

	require.NoError(t, NewSlackChannel(srv.URL, "").Send(ctx, "T", "B"))
	assert.Equal(t, "*T*\nB", got["text"])

	hook := NewJSONWebhookChannel(srv.URL, map[string]string{"X-Token": "t0k"}, "")
	require.NoError(t, hook.Send(ctx, "T", "B"))
	assert.Equal(t, "T", got["title"])
	assert.Equal(t, "B", got["message"])
	assert.NotEmpty(t, got["timestamp"])
	assert.Equal(t, "t0k", header)
	assert.Equal(t, "webhook", hook.Name())
}

func TestWebhookChannel_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewSlackChannel(srv.URL, "").Send(context.Background(), "T", "B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestEmailChannel(t *testing.T) {
	ch := NewEmailChannel(EmailParams{
		To:       "a@example.com, b@example.com",
		From:     "sentinel@example.com",
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user",
		Password: "pass",
	})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	ch.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.NotNil(t, a)
		assert.Equal(t, "sentinel@example.com", from)
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, ch.Send(context.Background(), "Bitfinex USD Lending Status Change", "line1\nline2"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Bitfinex USD Lending Status Change\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nline1\r\nline2\r\n"))

	ch.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("535 auth failed") }
	assert.ErrorContains(t, ch.Send(context.Background(), "t", "b"), "535")
}

func TestDesktopChannel(t *testing.T) {
	ch := NewDesktopChannel()
	var got [2]string
	ch.notify = func(title, message, _ string) error {
		got = [2]string{title, message}
		return nil
	}
	require.NoError(t, ch.Send(context.Background(), "T", "B"))
	assert.Equal(t, [2]string{"T", "B"}, got)

	ch.notify = func(string, string, string) error { return errors.New("no dbus") }
	assert.Error(t, ch.Send(context.Background(), "T", "B"))
}
