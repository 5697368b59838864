package live

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"

	"dartdash/internal/config"
)

type countingRefresher struct{ calls atomic.Int32 }

func (r *countingRefresher) RefreshAll(ctx context.Context) { r.calls.Add(1) }

func newTestWatcher(scope config.Scope) (*Watcher, *countingRefresher) {
	r := &countingRefresher{}
	w := NewWatcher(config.NATS{Subject: "dart.state"}, scope, r, nil)
	w.settle = 10 * time.Millisecond
	return w, r
}

func TestDisabledWithoutURL(t *testing.T) {
	w, _ := newTestWatcher(config.Scope{Host: "h1"})
	assert.False(t, w.Enabled())
	assert.NoError(t, w.Start())
	w.Close()
}

func TestBurstCoalescesIntoOneRefresh(t *testing.T) {
	w, r := newTestWatcher(config.Scope{Host: "h1"})
	defer w.Close()
	for i := 0; i < 5; i++ {
		w.handleMessage(&nats.Msg{Subject: "dart.state", Data: []byte(`{"fqdn":"h1","process":"p1","state":"RUNNING"}`)})
	}
	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestOtherHostIgnored(t *testing.T) {
	w, r := newTestWatcher(config.Scope{Host: "h1"})
	defer w.Close()
	w.handleMessage(&nats.Msg{Data: []byte(`{"fqdn":"h2"}`)})
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, r.calls.Load())
}

func TestUnparseablePayloadStillRefreshes(t *testing.T) {
	w, r := newTestWatcher(config.Scope{Process: "p1"})
	defer w.Close()
	w.handleMessage(&nats.Msg{Data: []byte(`changed`)})
	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRelevant(t *testing.T) {
	w, _ := newTestWatcher(config.Scope{Process: "p1"})
	assert.True(t, w.relevant(Notification{FQDN: "anything", Process: "p1"}))
	assert.False(t, w.relevant(Notification{Process: "p2"}))
	assert.True(t, w.relevant(Notification{}))
}

func TestCloseStopsPendingRefresh(t *testing.T) {
	w, r := newTestWatcher(config.Scope{})
	w.settle = 50 * time.Millisecond
	w.handleMessage(&nats.Msg{})
	w.Close()
	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, r.calls.Load())
}
