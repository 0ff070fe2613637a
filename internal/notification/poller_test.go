package notification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context) ([]Notification, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return unread(2), nil
}

func TestPollerRefreshesImmediatelyAndOnTick(t *testing.T) {
	r := &countingRefresher{}
	p := NewPoller(r, 10*time.Millisecond, nil)

	var seen atomic.Int32
	p.OnRefresh = func(items []Notification) {
		assert.Len(t, items, 2)
		seen.Add(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	stopped := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, r.calls.Load(), "no refresh after teardown")
	assert.Equal(t, stopped, seen.Load())
}

func TestPollerKeepsGoingAfterErrors(t *testing.T) {
	r := &countingRefresher{err: errors.New("timeout")}
	p := NewPoller(r, 5*time.Millisecond, nil)
	p.OnRefresh = func([]Notification) { t.Error("OnRefresh called on failure") }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestNewPollerDefaultsInterval(t *testing.T) {
	p := NewPoller(&countingRefresher{}, 0, nil)
	assert.Equal(t, DefaultPollInterval, p.interval)
}
