//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycbridge/internal/correlation/models"
	corrpg "kycbridge/internal/correlation/store/postgres"
	"kycbridge/pkg/platform/sentinel"
	"kycbridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *corrpg.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = corrpg.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "correlation_records", "handled_decisions")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestPutResolveAttach() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, &models.Record{Token: "tok-1", RecipientHandle: "+5511999990000"}, time.Hour))
	s.Require().NoError(s.store.AttachSession(ctx, "tok-1", "sess-1"))

	got, err := s.store.Resolve(ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal("+5511999990000", got.RecipientHandle)
	s.Equal("sess-1", got.SessionID)
}

func (s *PostgresStoreSuite) TestExpiredRecordsArePurged() {
	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)
	s.Require().NoError(s.store.Put(ctx, &models.Record{Token: "old", RecipientHandle: "+5511", CreatedAt: old}, time.Hour))

	_, err := s.store.Resolve(ctx, "old")
	s.ErrorIs(err, sentinel.ErrNotFound)

	removed, err := s.store.Purge(ctx, time.Now())
	s.Require().NoError(err)
	s.Equal(1, removed)
}

func (s *PostgresStoreSuite) TestMarkHandledExactlyOnce() {
	ctx := context.Background()
	key := models.HandledKey{Token: "tok", Status: "approved"}
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

func (s *PostgresStoreSuite) TestReleaseHandledAllowsReclaim() {
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
