package correlation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycbridge/internal/correlation"
	"kycbridge/internal/correlation/models"
	"kycbridge/internal/correlation/store/memory"
)

func TestSweeperRemovesExpiredRecords(t *testing.T) {
	ctx := context.Background()
	created := time.Now().Add(-2 * time.Hour)
	store := memory.New()
	require.NoError(t, store.Put(ctx, &models.Record{Token: "old", RecipientHandle: "+551100000000", CreatedAt: created}, time.Hour))
	require.NoError(t, store.Put(ctx, &models.Record{Token: "new", RecipientHandle: "+551100000001"}, time.Hour))

	sweeper := correlation.NewSweeper(store, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, 1, sweeper.SweepOnce(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestSweeperStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := correlation.NewSweeper(memory.New(), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
