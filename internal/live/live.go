// Package live subscribes to backend state-change notifications on NATS
// and turns each relevant one into a silent refresh of every table.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"

	"dartdash/internal/config"
)

// Refresher re-fetches every table without blocking.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

// Notification is the optional payload of a state-change message. Empty
// fields match any scope.
type Notification struct {
	FQDN    string `json:"fqdn"`
	Process string `json:"process"`
	State   string `json:"state"`
}

// defaultSettle coalesces bursts of notifications into one refresh.
const defaultSettle = 250 * time.Millisecond

// Watcher owns the NATS connection and subscription.
type Watcher struct {
	cfg       config.NATS
	scope     config.Scope
	refresher Refresher
	settle    time.Duration
	onEvent   func(Notification)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	nc      *nats.Conn
	sub     *nats.Subscription
	pending *time.Timer
}

// NewWatcher creates a watcher. onEvent, when non-nil, is called for every
// notification that triggers a refresh.
func NewWatcher(cfg config.NATS, scope config.Scope, refresher Refresher, onEvent func(Notification)) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:       cfg,
		scope:     scope,
		refresher: refresher,
		settle:    defaultSettle,
		onEvent:   onEvent,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Enabled reports whether a NATS URL is configured.
func (w *Watcher) Enabled() bool {
	return w.cfg.URL != ""
}

// Start connects and subscribes. It is a no-op when no URL is configured.
func (w *Watcher) Start() error {
	if !w.Enabled() {
		return nil
	}
	var opts []nats.Option
	if w.cfg.User != "" && w.cfg.Password != "" {
		opts = append(opts, nats.UserInfo(w.cfg.User, w.cfg.Password))
	}
	opts = append(opts,
		nats.Name("dartdash"),
		nats.DisconnectHandler(func(nc *nats.Conn) {
			glog.Warningf("[NATS] Disconnected from %s", nc.ConnectedUrl())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			glog.Infof("[NATS] Reconnected to %s", nc.ConnectedUrl())
			// anything may have changed while we were away
			w.refresher.RefreshAll(w.ctx)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			glog.Infof("[NATS] Connection closed: %v", nc.LastError())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			glog.Errorf("[NATS] Error: %v", err)
		}),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
	)

	nc, err := nats.Connect(w.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", w.cfg.URL, err)
	}
	sub, err := nc.Subscribe(w.cfg.Subject, w.handleMessage)
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe to %s: %w", w.cfg.Subject, err)
	}
	w.mu.Lock()
	w.nc, w.sub = nc, sub
	w.mu.Unlock()
	glog.Infof("subscribed to NATS subject %s at %s", w.cfg.Subject, w.cfg.URL)
	return nil
}

func (w *Watcher) handleMessage(msg *nats.Msg) {
	var note Notification
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &note); err != nil {
			glog.V(1).Infof("non-JSON notification on %s, refreshing anyway: %v", msg.Subject, err)
			note = Notification{}
		}
	}
	if !w.relevant(note) {
		glog.V(2).Infof("ignoring notification for %s/%s", note.FQDN, note.Process)
		return
	}
	if w.onEvent != nil {
		w.onEvent(note)
	}
	w.schedule()
}

func (w *Watcher) relevant(note Notification) bool {
	if w.scope.Host != "" && note.FQDN != "" && note.FQDN != w.scope.Host {
		return false
	}
	if w.scope.Host == "" && w.scope.Process != "" && note.Process != "" && note.Process != w.scope.Process {
		return false
	}
	return true
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil || w.pending != nil {
		return
	}
	w.pending = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		w.pending = nil
		w.mu.Unlock()
		if w.ctx.Err() == nil {
			w.refresher.RefreshAll(w.ctx)
		}
	})
}

// Close unsubscribes and closes the connection.
func (w *Watcher) Close() {
	w.cancel()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	if w.sub != nil {
		if err := w.sub.Unsubscribe(); err != nil {
			glog.Warningf("unsubscribe from NATS: %v", err)
		}
		w.sub = nil
	}
	if w.nc != nil {
		w.nc.Close()
		w.nc = nil
	}
}
