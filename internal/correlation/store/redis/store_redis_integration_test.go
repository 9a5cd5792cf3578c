//go:build integration

package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycbridge/internal/correlation/models"
	corrredis "kycbridge/internal/correlation/store/redis"
	"kycbridge/pkg/platform/sentinel"
	"kycbridge/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *corrredis.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = corrredis.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestPutResolveAttach() {
	ctx := context.Background()
	rec := &models.Record{Token: "tok-1", RecipientHandle: "+5511999990000"}
	s.Require().NoError(s.store.Put(ctx, rec, time.Hour))

	s.Require().NoError(s.store.AttachSession(ctx, "tok-1", "sess-1"))

	got, err := s.store.Resolve(ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal("+5511999990000", got.RecipientHandle)
	s.Equal("sess-1", got.SessionID)

	ttl, err := s.redis.Client.TTL(ctx, "corr:tok:tok-1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 59*time.Minute, "attach keeps the original ttl")
}

func (s *RedisStoreSuite) TestResolveMissing() {
	_, err := s.store.Resolve(context.Background(), "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.AttachSession(context.Background(), "nope", "sess"), sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestMarkHandledExactlyOnce() {
	ctx := context.Background()
	key := models.HandledKey{Token: "tok", SessionID: "sess", Status: "approved"}
	const goroutines = 20

	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.MarkHandled(ctx, key, time.Hour)
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
}

func (s *RedisStoreSuite) TestReleaseHandledAllowsReclaim() {
	ctx := context.Background()
	key := models.HandledKey{Token: "tok-release", SessionID: "sess", Status: "approved"}

	first, err := s.store.MarkHandled(ctx, key, time.Hour)
	s.Require().NoError(err)
	s.True(first)

	s.Require().NoError(s.store.ReleaseHandled(ctx, key))
	again, err := s.store.MarkHandled(ctx, key, time.Hour)
	s.Require().NoError(err)
	s.True(again)

	s.NoError(s.store.ReleaseHandled(ctx, models.HandledKey{Token: "never-claimed"}))
}
