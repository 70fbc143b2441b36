package paymentsession

import (
	"sync"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
)

// Callbacks are invoked one at a time, in event order, on a goroutine owned by the
// session. Any field may be nil.
type Callbacks struct {
	OnSuccess     func(amount float64, transactionId string)
	OnTimeout     func()
	OnFailed      func(reason string)
	OnConnected   func()
	OnStateChange func(state models.ConnectionState)
}

// Result is a terminal outcome and the details that came with it.
type Result struct {
	Outcome       models.Outcome
	Amount        float64
	TransactionId string
	Reason        string
}

// SetCallbacks replaces the callback set. Later events use the new set.
func (s *Session) SetCallbacks(cb Callbacks) {
	s.callbacks.Store(&cb)
}

// emit queues fn for the callback goroutine. The stop flag and callback set are
// read again when it runs.
func (s *Session) emit(name string, fn func(cb *Callbacks)) {
	if s.stopping.Load() {
		return
	}
	s.queue.push(func() {
		if s.stopping.Load() {
			return
		}
		cb := s.callbacks.Load()
		if cb == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorf("%s callback panicked: %v", name, r)
			}
		}()
		fn(cb)
	})
}

type callbackQueue struct {
	mutex   *sync.Mutex
	pending []func()
	wake    chan struct{}
}

func newCallbackQueue() *callbackQueue {
	return &callbackQueue{
		mutex: &sync.Mutex{},
		wake:  make(chan struct{}, 1),
	}
}

func (q *callbackQueue) push(fn func()) {
	q.mutex.Lock()
	q.pending = append(q.pending, fn)
	q.mutex.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *callbackQueue) take() []func() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	batch := q.pending
	q.pending = nil
	return batch
}

// run drains the queue until done is closed.
func (q *callbackQueue) run(done <-chan struct{}) {
	for {
		for _, fn := range q.take() {
			fn()
		}
		select {
		case <-q.wake:
		case <-done:
			return
		}
	}
}
