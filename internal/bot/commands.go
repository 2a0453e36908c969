package bot

import (
	"context"
	"fmt"
	"strings"

	"FundingSentinel/internal/metrics"
	"FundingSentinel/internal/model"

	log "github.com/sirupsen/logrus"
)

const (
	unauthorizedReply = "Unauthorized access denied."

	maxReplyLen      = 4000
	truncatedReplyAt = 3950
	truncatedSuffix  = "...\n\n(Message truncated due to length)"
)

// StatusSource reads live funding data. *collector.Collector implements it.
type StatusSource interface {
	Collect(ctx context.Context) (model.Snapshot, error)
	MarketRates(ctx context.Context, currencies []model.CurrencyCode) map[model.CurrencyCode]model.Ticker
}

// Commands answers chat commands for the single authorized chat.
type Commands struct {
	Source StatusSource
	ChatID string
}

func NewCommands(source StatusSource, chatID string) *Commands {
	return &Commands{Source: source, ChatID: chatID}
}

// Handle returns the reply for text sent from chatID, or "" when there is
// nothing to answer. Chats other than the configured one are rejected before
// any data is read.
func (c *Commands) Handle(ctx context.Context, chatID, text string) string {
	if chatID != c.ChatID {
		log.Warnf("Unauthorized access attempt from chat ID: %s", chatID)
		metrics.BotCommands.WithLabelValues("unauthorized", "rejected").Inc()
		return unauthorizedReply
	}

	cmd, args, ok := parseCommand(text)
	if !ok {
		return ""
	}

	var (
		reply string
		err   error
	)
	switch cmd {
	case "/start", "/help":
		reply = helpText
	case "/status":
		if len(args) > 0 {
			reply, err = c.currencyStatus(ctx, strings.ToUpper(args[0]))
		} else {
			reply, err = c.overallStatus(ctx)
		}
		err = wrapReplyErr("Error getting funding status", err)
	case "/active", "/offered", "/inactive":
		status := model.LendingStatus(strings.TrimPrefix(cmd, "/"))
		reply, err = c.filteredStatus(ctx, status)
		err = wrapReplyErr(filterErrorPrefix[status], err)
	case "/rates":
		reply, err = c.marketRates(ctx)
		err = wrapReplyErr("Error getting market rates", err)
	default:
		metrics.BotCommands.WithLabelValues("unknown", "ok").Inc()
		return "Unknown command. Send /help for available commands."
	}

	if err != nil {
		log.WithError(err).WithField("command", cmd).Error("Command failed")
		metrics.BotCommands.WithLabelValues(cmd, "error").Inc()
		return err.Error()
	}
	metrics.BotCommands.WithLabelValues(cmd, "ok").Inc()
	return truncateReply(reply)
}

var filterErrorPrefix = map[model.LendingStatus]string{
	model.StatusActive:   "Error getting active loans",
	model.StatusOffered:  "Error getting offered funds",
	model.StatusInactive: "Error getting inactive funds",
}

// parseCommand splits "/status@SentinelBot usd" into "/status" and ["usd"].
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	return cmd, fields[1:], true
}

func wrapReplyErr(prefix string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", prefix, err)
}

func truncateReply(s string) string {
	r := []rune(s)
	if len(r) <= maxReplyLen {
		return s
	}
	return string(r[:truncatedReplyAt]) + truncatedSuffix
}
