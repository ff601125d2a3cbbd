package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ticketbooth/internal/api"
	"github.com/iliyamo/ticketbooth/internal/booking"
	"github.com/iliyamo/ticketbooth/internal/config"
	"github.com/iliyamo/ticketbooth/internal/model"
	"github.com/iliyamo/ticketbooth/internal/notify"
	"github.com/iliyamo/ticketbooth/internal/session"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	out     io.Writer
	store   session.Store
	client  *api.Client
	builder *booking.Builder
	rdb     *redis.Client
	events  booking.EventSink
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, log zerolog.Logger, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, log: log, out: out}
	cacheCfg := config.LoadCacheConfig()

	if cfg.SessionStore == "redis" || cacheCfg.Enabled {
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		a.closers = append(a.closers, rdb.Close)
	}

	store, err := openStore(ctx, cfg, a.rdb, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	transport := api.NewCacheTransport(cacheCfg, a.rdb, http.DefaultTransport)
	client, err := api.NewClient(cfg.APIBaseURL,
		api.WithTransport(transport),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithTokenSource(store),
		api.WithLogger(log),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client

	var fallback map[model.TierName]int64
	if cfg.TierIDFallback {
		fallback = booking.LegacyTierIDs
	}
	a.builder = booking.NewBuilder(cfg.PaymentSource, fallback, log)

	a.events = notify.Nop{}
	if cfg.RabbitURL != "" {
		pub, err := notify.NewPublisher(cfg.RabbitURL, cfg.BookingExchange, log)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable; booking events disabled")
		} else {
			a.events = pub
			a.closers = append(a.closers, pub.Close)
		}
	}
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client, log zerolog.Logger) (session.Store, error) {
	switch cfg.SessionStore {
	case "memory":
		return session.NewMemory(), nil
	case "redis":
		return session.OpenRedis(ctx, rdb, session.RedisOptions{}, log)
	case "file":
		return session.OpenFile(cfg.SessionFile, log)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Debug().Err(err).Msg("close")
		}
	}
	a.closers = nil
}

// identity returns the logged-in user or an error telling them to log in.
func (a *app) identity() (*model.Identity, error) {
	id := a.store.Current()
	if id == nil {
		return nil, fmt.Errorf("not logged in; run: ticketbooth login -email you@example.com")
	}
	return id, nil
}
