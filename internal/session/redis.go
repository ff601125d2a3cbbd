package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// Default Redis names.  The channel carries no payload worth trusting;
// receivers re-read the key.
const (
	DefaultRedisKey     = "ticketbooth:auth"
	DefaultRedisChannel = "ticketbooth:auth:changed"
)

// RedisOptions names the key and channel a RedisStore uses.  Zero values
// select the defaults.
type RedisOptions struct {
	Key     string
	Channel string
	TTL     time.Duration // 0 keeps the key until Clear
}

// RedisStore shares one session between processes.  Save and Clear
// publish on a channel; every store listening on it reloads the key and
// notifies its own subscribers.
type RedisStore struct {
	cell
	rdb  *redis.Client
	opts RedisOptions
	log  zerolog.Logger

	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// OpenRedis loads the current session from rdb and starts listening for
// changes from other processes.
func OpenRedis(ctx context.Context, rdb *redis.Client, opts RedisOptions, log zerolog.Logger) (*RedisStore, error) {
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}
	if opts.Channel == "" {
		opts.Channel = DefaultRedisChannel
	}
	s := &RedisStore{rdb: rdb, opts: opts, log: log}
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	ps := rdb.Subscribe(ctx, opts.Channel)
	// Wait for the subscription so no change published after Open is lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("session: subscribe %s: %w", opts.Channel, err)
	}
	lctx, cancel := context.WithCancel(context.Background())
	s.pubsub, s.cancel, s.done = ps, cancel, make(chan struct{})
	go s.listen(lctx)
	return s, nil
}

func (s *RedisStore) load(ctx context.Context) error {
	b, err := s.rdb.Get(ctx, s.opts.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.replace(model.AuthState{}, false)
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: get %s: %w", s.opts.Key, err)
	}
	var st model.AuthState
	if err := json.Unmarshal(b, &st); err != nil {
		s.log.Warn().Err(err).Str("key", s.opts.Key).Msg("ignoring unreadable session value")
		s.replace(model.AuthState{}, false)
		return nil
	}
	s.replace(st, st.User.ID != 0)
	return nil
}

func (s *RedisStore) listen(ctx context.Context) {
	defer close(s.done)
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := s.load(rctx); err != nil {
				s.log.Warn().Err(err).Msg("session reload after change notification failed")
			}
			cancel()
		}
	}
}

func (s *RedisStore) Save(ctx context.Context, st model.AuthState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.rdb.Set(ctx, s.opts.Key, b, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("session: set %s: %w", s.opts.Key, err)
	}
	s.replace(st, true)
	s.notify(ctx)
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.opts.Key).Err(); err != nil {
		return fmt.Errorf("session: del %s: %w", s.opts.Key, err)
	}
	s.replace(model.AuthState{}, false)
	s.notify(ctx)
	return nil
}

// notify tells other processes to reload.  The write already succeeded,
// so a publish failure is only logged.
func (s *RedisStore) notify(ctx context.Context) {
	if err := s.rdb.Publish(ctx, s.opts.Channel, "changed").Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", s.opts.Channel).Msg("session change publish failed")
	}
}

// Close stops listening.  The Redis client is owned by the caller.
func (s *RedisStore) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	err := s.pubsub.Close()
	<-s.done
	s.cancel = nil
	return err
}
