package regestry

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-errors/errors"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/paymentsession"
)

var ErrUnknownPayment = errors.New("payment is not being watched")

type SessionRegestry interface {
	Watch(paymentId string) (models.SessionStatus, error)
	Status(paymentId string) (models.SessionStatus, error)
	Disconnect(paymentId string) error
	Shutdown()
}

// DefaultRetention is how long a finished payment stays available for polling.
const DefaultRetention = 10 * time.Minute

type entry struct {
	session *paymentsession.Session
	// set once the session is stopped or has an outcome; guarded by the registry mutex
	finishedAt time.Time
}

func (e *entry) finished() bool {
	return e.session.Stopped() || e.session.Outcome().IsTerminal()
}

func (e *entry) status() models.SessionStatus {
	st := models.SessionStatus{
		PaymentId:         e.session.PaymentId(),
		ConnectionState:   e.session.ConnectionState(),
		Outcome:           models.Pending,
		ReconnectAttempts: e.session.ReconnectAttempts(),
	}
	if res := e.session.Result(); res != nil {
		st.Outcome = res.Outcome
		switch res.Outcome {
		case models.Success:
			amount := res.Amount
			st.Amount = &amount
			st.TransactionId = res.TransactionId
		case models.Failed:
			st.Error = res.Reason
		}
	}
	return st
}

type sessionRegestryImpl struct {
	mutex     *sync.Mutex
	ctx       context.Context
	opts      paymentsession.Options
	clock     clock.Clock
	retention time.Duration
	sessions  map[string]*entry
}

func NewSessionRegestry(ctx context.Context, opts paymentsession.Options) SessionRegestry {
	return newSessionRegestry(ctx, opts, DefaultRetention)
}

func newSessionRegestry(ctx context.Context, opts paymentsession.Options, retention time.Duration) *sessionRegestryImpl {
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	return &sessionRegestryImpl{
		mutex:     &sync.Mutex{},
		ctx:       ctx,
		opts:      opts,
		clock:     c,
		retention: retention,
		sessions:  map[string]*entry{},
	}
}

// callbacks release the socket as soon as the outcome is known.
func (r *sessionRegestryImpl) callbacks(paymentId string, e *entry) paymentsession.Callbacks {
	done := func() {
		r.markFinished(e)
		e.session.Stop()
	}
	return paymentsession.Callbacks{
		OnSuccess: func(amount float64, transactionId string) {
			log.Infof("payment %s confirmed, transaction %s", paymentId, transactionId)
			done()
		},
		OnFailed: func(reason string) {
			log.Warnf("payment %s failed: %s", paymentId, reason)
			done()
		},
		OnTimeout: func() {
			log.Warnf("payment %s timed out", paymentId)
			done()
		},
	}
}

// Watch starts following paymentId. Watching an id that is live or already has an
// outcome is a no-op; an id whose session was stopped without one gets a fresh session.
func (r *sessionRegestryImpl) Watch(paymentId string) (models.SessionStatus, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sweep()

	if e, ok := r.sessions[paymentId]; ok {
		if !e.session.Stopped() {
			e.session.Start()
			return e.status(), nil
		}
		if e.session.Outcome().IsTerminal() {
			return e.status(), nil
		}
	}

	e := &entry{}
	s, err := paymentsession.New(r.ctx, paymentId, r.callbacks(paymentId, e), r.opts)
	if err != nil {
		return models.SessionStatus{}, err
	}
	e.session = s
	r.sessions[paymentId] = e
	s.Start()

	return e.status(), nil
}

func (r *sessionRegestryImpl) Status(paymentId string) (models.SessionStatus, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sweep()

	e, ok := r.sessions[paymentId]
	if !ok {
		return models.SessionStatus{}, ErrUnknownPayment
	}
	return e.status(), nil
}

// Disconnect stops the session. Its last status stays available until the retention
// period runs out.
func (r *sessionRegestryImpl) Disconnect(paymentId string) error {
	e := r.get(paymentId)
	if e == nil {
		return ErrUnknownPayment
	}
	e.session.Stop()
	r.markFinished(e)
	return nil
}

func (r *sessionRegestryImpl) Shutdown() {
	r.mutex.Lock()
	entries := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.sessions = map[string]*entry{}
	r.mutex.Unlock()

	for _, e := range entries {
		e.session.Stop()
	}
	log.Infof("stopped %d payment sessions", len(entries))
}

func (r *sessionRegestryImpl) markFinished(e *entry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if e.finishedAt.IsZero() {
		e.finishedAt = r.clock.Now()
	}
}

// sweep drops entries finished for longer than the retention period.
// The caller holds the mutex.
func (r *sessionRegestryImpl) sweep() {
	now := r.clock.Now()
	for id, e := range r.sessions {
		if !e.finished() {
			continue
		}
		if e.finishedAt.IsZero() {
			e.finishedAt = now
			continue
		}
		if now.Sub(e.finishedAt) >= r.retention {
			e.session.Stop()
			delete(r.sessions, id)
			log.Debugf("evicted payment %s", id)
		}
	}
}

func (r *sessionRegestryImpl) get(paymentId string) *entry {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.sessions[paymentId]
}
