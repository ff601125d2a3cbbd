package session

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// RedisStoreSuite needs a reachable Redis; set REDIS_ADDR to run it.
type RedisStoreSuite struct {
	suite.Suite
	rdb  *redis.Client
	opts RedisOptions
}

func TestRedisStoreSuite(t *testing.T) {
	if os.Getenv("REDIS_ADDR") == "" {
		t.Skip("REDIS_ADDR not set")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.rdb = redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDR")})
	s.Require().NoError(s.rdb.Ping(context.Background()).Err())
}

func (s *RedisStoreSuite) TearDownSuite() {
	_ = s.rdb.Close()
}

func (s *RedisStoreSuite) SetupTest() {
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	s.opts = RedisOptions{Key: "ticketbooth-test:auth:" + suffix, Channel: "ticketbooth-test:changed:" + suffix}
}

func (s *RedisStoreSuite) TearDownTest() {
	_ = s.rdb.Del(context.Background(), s.opts.Key).Err()
}

func (s *RedisStoreSuite) open() *RedisStore {
	st, err := OpenRedis(context.Background(), s.rdb, s.opts, zerolog.Nop())
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = st.Close() })
	return st
}

func (s *RedisStoreSuite) TestSaveIsVisibleToAnotherStore() {
	a, b := s.open(), s.open()
	changed := make(chan *model.Identity, 2)
	b.Subscribe(func(id *model.Identity) { changed <- id })

	s.Require().NoError(a.Save(context.Background(), authState(s.T(), time.Now().Add(time.Hour))))
	select {
	case id := <-changed:
		s.Require().NotNil(id)
		s.Equal("Ada Lovelace", id.DisplayName())
	case <-time.After(3 * time.Second):
		s.Fail("no change notification")
	}
	s.EqualValues(7, b.Current().UserID)

	s.Require().NoError(a.Clear(context.Background()))
	select {
	case id := <-changed:
		s.Nil(id)
	case <-time.After(3 * time.Second):
		s.Fail("no clear notification")
	}
}

func (s *RedisStoreSuite) TestOpenLoadsExisting() {
	a := s.open()
	s.Require().NoError(a.Save(context.Background(), authState(s.T(), time.Now().Add(time.Hour))))
	b := s.open()
	s.NotNil(b.Current())
}
