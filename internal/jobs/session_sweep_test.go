package jobs

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(context.Context) (int64, error) {
	s.calls.Add(1)
	return 1, s.err
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSessionSweepDisabledByDefault(t *testing.T) {
	sweeper := &countingSweeper{}
	done := StartSessionSweepJob(context.Background(), 0, 0, sweeper, discard())
	select {
	case <-done:
	default:
		t.Fatalf("disabled job should report done immediately")
	}
	assert.Zero(t, sweeper.calls.Load())
}

func TestSessionSweepRunsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartSessionSweepJob(ctx, 5*time.Millisecond, time.Second, sweeper, discard())

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not stop after cancel")
	}
}
