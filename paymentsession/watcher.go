package paymentsession

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
)

type WatchParams struct {
	PaymentId        string
	OnPaymentSuccess func(amount float64, transactionId string)
	OnPaymentTimeout func()
	OnPaymentFailed  func(reason string)
	OnConnected      func()
	OnStateChange    func(state models.ConnectionState)
}

func (p WatchParams) callbacks() Callbacks {
	return Callbacks{
		OnSuccess:     p.OnPaymentSuccess,
		OnTimeout:     p.OnPaymentTimeout,
		OnFailed:      p.OnPaymentFailed,
		OnConnected:   p.OnConnected,
		OnStateChange: p.OnStateChange,
	}
}

// Watcher follows at most one payment at a time, the way a QR payment screen does.
type Watcher struct {
	ctx     context.Context
	opts    Options
	mutex   *sync.Mutex
	current atomic.Pointer[Session]
}

func NewWatcher(ctx context.Context, opts Options) *Watcher {
	return &Watcher{
		ctx:   ctx,
		opts:  opts,
		mutex: &sync.Mutex{},
	}
}

// Watch points the watcher at p.PaymentId. For the id already being watched only the
// callbacks are replaced. A different id stops the previous session before the new one
// connects, and an empty id returns the watcher to idle.
func (w *Watcher) Watch(p WatchParams) {
	cb := p.callbacks()

	w.mutex.Lock()
	old := w.current.Load()
	if p.PaymentId != "" && old != nil && old.PaymentId() == p.PaymentId && !old.Stopped() {
		old.SetCallbacks(cb)
		w.mutex.Unlock()
		old.Start()
		return
	}

	var next *Session
	if p.PaymentId != "" {
		s, err := New(w.ctx, p.PaymentId, cb, w.opts)
		if err != nil {
			log.Errorf("cannot watch payment %s: %v", p.PaymentId, err)
		} else {
			next = s
		}
	}
	w.current.Store(next)
	w.mutex.Unlock()

	if old != nil {
		old.Stop()
	}
	if next != nil {
		next.Start()
	}
}

// Session returns the session being watched, or nil when idle.
func (w *Watcher) Session() *Session {
	return w.current.Load()
}

func (w *Watcher) ConnectionState() models.ConnectionState {
	if s := w.current.Load(); s != nil {
		return s.ConnectionState()
	}
	return models.Disconnected
}

func (w *Watcher) IsConnected() bool {
	return w.ConnectionState() == models.Connected
}

func (w *Watcher) Outcome() models.Outcome {
	if s := w.current.Load(); s != nil {
		return s.Outcome()
	}
	return models.Pending
}

// Disconnect stops the current session. Safe to call at any time and more than once.
func (w *Watcher) Disconnect() {
	if s := w.current.Load(); s != nil {
		s.Stop()
	}
}

// Close stops the current session and returns the watcher to idle.
func (w *Watcher) Close() {
	w.Watch(WatchParams{})
}
