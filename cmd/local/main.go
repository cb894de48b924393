package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"videofinder-bot/internal/app"
	"videofinder-bot/internal/config"
	"videofinder-bot/internal/logger"
	"videofinder-bot/internal/tg"
)

const pollTimeoutSec = 30

var allowedUpdates = []string{"message", "channel_post", "callback_query"}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Path: cfg.Logging.Path})
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("start bot")
	}
	defer a.Close()

	poller := a.Client.WithHTTPClient(&http.Client{Timeout: (pollTimeoutSec + 15) * time.Second})
	if err := poller.DeleteWebhook(ctx, false); err != nil {
		log.Warn().Err(err).Msg("delete webhook")
	}
	poll(ctx, poller, a, log.With().Str("component", "poller").Logger())
	log.Info().Msg("polling stopped")
}

func poll(ctx context.Context, client *tg.Client, a *app.App, log zerolog.Logger) {
	log.Info().Msg("polling started")
	offset := 0
	for ctx.Err() == nil {
		updates, err := client.GetUpdates(ctx, offset, pollTimeoutSec, allowedUpdates)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Warn().Err(err).Msg("get updates")
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if len(updates) > 0 {
			log.Debug().Int("count", len(updates)).Msg("updates received")
		}
		for _, raw := range updates {
			var upd struct {
				UpdateID int `json:"update_id"`
			}
			_ = json.Unmarshal(raw, &upd)
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			if err := a.Bot.HandleUpdate(ctx, raw); err != nil {
				log.Warn().Err(err).Int("update_id", upd.UpdateID).Msg("handle update")
			}
		}
	}
}
