// Command fakeapi serves an in-memory Ticketbooth API seeded with demo
// events, for local development of the ticketbooth client.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticketbooth/internal/config"
	"github.com/iliyamo/ticketbooth/internal/fakeapi"
	"github.com/iliyamo/ticketbooth/internal/logging"
)

func main() {
	cfg, err := config.LoadFakeAPI()
	if err != nil {
		boot := logging.Default("dev", "info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.Default(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rl := config.LoadRateLimitConfig()
	var rdb *redis.Client
	if rl.Enabled {
		rdb, err = config.NewRedisClient(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable; booking rate limit disabled")
		} else {
			defer rdb.Close()
		}
	}

	srv := fakeapi.New(fakeapi.Options{
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   time.Duration(cfg.AccessTTLMin) * time.Minute,
		BcryptCost: cfg.BcryptCost,
		RateLimit:  rl,
		Redis:      rdb,
	})
	if err := srv.Seed(); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).
			Str("demo_user", fakeapi.SeedUserEmail).Msg("fakeapi listening")
		if err := srv.Echo().Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Echo().Shutdown(shutdown); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
