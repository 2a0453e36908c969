package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"FundingSentinel/internal/app"
	"FundingSentinel/internal/bot"
	"FundingSentinel/internal/collector"
	"FundingSentinel/internal/config"
	"FundingSentinel/internal/logging"
	"FundingSentinel/internal/metrics"
	"FundingSentinel/internal/notifier"
	"FundingSentinel/internal/scheduler"
	"FundingSentinel/internal/store"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("FundingSentinel: %v", err)
	}
}

func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			fmt.Fprintln(os.Stderr, "Bitfinex API credentials are not configured.")
			fmt.Fprintln(os.Stderr, "Set BITFINEX_API_KEY and BITFINEX_API_SECRET in the environment or a .env file,")
			fmt.Fprintf(os.Stderr, "or fill in bitfinex.api_key and bitfinex.api_secret in %s.\n", config.Path())
			os.Exit(1)
		}
		return fmt.Errorf("config validation: %w", err)
	}

	closeLog, err := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closeLog()

	log.Info("Starting Bitfinex Funding Monitor")
	log.Debugf("Effective configuration:\n%s", cfg)

	fetcher := collector.NewBitfinexFetcher(collector.BitfinexParams{
		APIKey:         cfg.Bitfinex.APIKey,
		APISecret:      cfg.Bitfinex.APISecret,
		AuthURL:        cfg.Bitfinex.AuthURL,
		PublicURL:      cfg.Bitfinex.PublicURL,
		Proxy:          cfg.Proxy,
		RequestsPerMin: cfg.Bitfinex.RequestsPerMin,
	})
	col := collector.NewCollector(fetcher, cfg.Monitor.Currencies)
	if len(cfg.Monitor.Currencies) > 0 {
		log.Infof("Monitoring currencies: %s", strings.Join(cfg.Monitor.Currencies, ", "))
	}

	chans, err := channels(cfg)
	if err != nil {
		return err
	}
	dispatcher := notifier.NewDispatcher(chans...)
	if names := dispatcher.Names(); len(names) > 0 {
		log.Infof("Notification channels: %s", strings.Join(names, ", "))
	} else {
		log.Warn("No notification channels enabled, changes will only be logged")
	}

	st, err := store.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("Error closing store")
		}
	}()
	log.Infof("Persisting funding status with %s store at %s", cfg.Storage.Driver, cfg.Storage.Path)

	ctx := context.Background()
	a := app.NewApp().WithSignals(ctx)

	sched := scheduler.NewScheduler(col, dispatcher, st, cfg.Interval())
	a.WithService(sched)
	log.Infof("Checking funding status every %s", cfg.Interval())

	if cfg.BotEnabled() {
		transport := bot.NewTelebotTransport(cfg.Telegram.BotToken, cfg.Proxy)
		a.WithService(bot.NewSession(transport, bot.NewCommands(col, cfg.Telegram.ChatID), cfg.Telegram.ChatID))
	} else {
		log.Info("Telegram bot disabled: bot token or chat ID not set")
	}

	if cfg.Metrics.Addr != "" {
		a.WithService(&metrics.Server{Addr: cfg.Metrics.Addr})
	}

	if err := a.Run(ctx); err != nil {
		return err
	}
	log.Info("Monitor stopped")
	return nil
}

func channels(cfg *config.Config) ([]notifier.Channel, error) {
	var out []notifier.Channel
	n := cfg.Notifications

	if cfg.Telegram.Notify {
		tg, err := notifier.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "", cfg.Proxy)
		if err != nil {
			return nil, err
		}
		out = append(out, tg)
	}
	if n.Email.Enabled {
		out = append(out, notifier.NewEmailChannel(notifier.EmailParams{
			To:       n.Email.To,
			From:     n.Email.From,
			Host:     n.Email.SMTPServer,
			Port:     n.Email.SMTPPort,
			Username: n.Email.Username,
			Password: n.Email.Password,
		}))
	}
	if n.Discord.Enabled {
		out = append(out, notifier.NewDiscordChannel(n.Discord.WebhookURL, cfg.Proxy))
	}
	if n.Slack.Enabled {
		out = append(out, notifier.NewSlackChannel(n.Slack.WebhookURL, cfg.Proxy))
	}
	if n.Webhook.Enabled {
		out = append(out, notifier.NewJSONWebhookChannel(n.Webhook.WebhookURL, n.Webhook.Headers, cfg.Proxy))
	}
	if n.Desktop.Enabled {
		out = append(out, notifier.NewDesktopChannel())
	}
	return out, nil
}
