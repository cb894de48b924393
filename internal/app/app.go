// Package app wires configuration into a running bot for both the webhook
// server and the local polling runner.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	handler "videofinder-bot/api"
	"videofinder-bot/internal/config"
	"videofinder-bot/internal/session"
	"videofinder-bot/internal/storage"
	"videofinder-bot/internal/tg"
)

// App owns the bot and the connections behind it.
type App struct {
	Bot    *handler.Bot
	Client *tg.Client
	Store  storage.Store

	closers []func() error
}

// OpenStore opens the configured metadata store.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	return storage.Open(ctx, storage.Options{
		Driver:        cfg.Driver,
		Path:          cfg.Path,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
}

// OpenSessions opens the configured dialog session store. The returned close
// function is never nil.
func OpenSessions(ctx context.Context, cfg config.SessionConfig) (session.Store, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		return session.NewMemory(), func() error { return nil }, nil
	case "redis":
		r, err := session.NewRedis(ctx, cfg.RedisAddr, cfg.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return r, r.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}

func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	sessions, closeSessions, err := OpenSessions(ctx, cfg.Session)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	client := tg.NewClientWithBase(cfg.Bot.APIBase, cfg.Bot.Token)
	bot := handler.New(handler.Deps{
		Client:        client,
		Store:         store,
		Sessions:      sessions,
		ChannelID:     cfg.Bot.ChannelID,
		AdminChatID:   cfg.Bot.AdminChatID,
		WebhookSecret: cfg.Bot.WebhookSecret,
		Logger:        logger,
	})
	logger.Info().
		Str("storage", cfg.Storage.Driver).
		Str("sessions", cfg.Session.Driver).
		Int64("channel_id", cfg.Bot.ChannelID).
		Msg("bot ready")

	return &App{
		Bot:     bot,
		Client:  client,
		Store:   store,
		closers: []func() error{closeSessions, store.Close},
	}, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
