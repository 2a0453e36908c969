package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// EmailParams configures an EmailChannel.
type EmailParams struct {
	To       string
	From     string
	Host     string
	Port     int
	Username string
	Password string
}

// EmailChannel sends plain-text mail over SMTP. smtp.SendMail upgrades to TLS
// when the server offers STARTTLS.
type EmailChannel struct {
	params   EmailParams
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailChannel(p EmailParams) *EmailChannel {
	return &EmailChannel{params: p, sendMail: smtp.SendMail}
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Send(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if e.params.Username != "" {
		auth = smtp.PlainAuth("", e.params.Username, e.params.Password, e.params.Host)
	}
	addr := net.JoinHostPort(e.params.Host, strconv.Itoa(e.params.Port))
	to := recipients(e.params.To)
	if err := e.sendMail(addr, auth, e.params.From, to, e.buildMessage(title, body)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (e *EmailChannel) buildMessage(title, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.params.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients(e.params.To), ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", title)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func recipients(list string) []string {
	var out []string
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
