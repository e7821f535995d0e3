package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
	idle  atomic.Int64
}

func (c *countingSweeper) Sweep(idle time.Duration) int {
	c.calls.Add(1)
	c.idle.Store(int64(idle))
	return 0
}

func TestStartWorkspaceJanitor_SweepsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sw := &countingSweeper{}
	done := StartWorkspaceJanitor(ctx, sw, 5*time.Millisecond, time.Minute, nil)

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(time.Minute), sw.idle.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestStartWorkspaceJanitor_DisabledInterval(t *testing.T) {
	done := StartWorkspaceJanitor(context.Background(), &countingSweeper{}, 0, time.Minute, nil)
	select {
	case <-done:
	default:
		t.Fatal("expected closed channel")
	}
}
