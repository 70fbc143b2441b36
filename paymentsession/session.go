package paymentsession

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-errors/errors"
	"github.com/rs/xid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/common"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/metrics"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/transport"
)

var ErrEmptyPaymentId = errors.New("payment id is required")

type startEvent struct{}

type dialedEvent struct {
	gen uint64
	err error
}

type frameEvent struct {
	gen  uint64
	data []byte
}

type closedEvent struct {
	gen  uint64
	info transport.CloseInfo
}

// Session tracks one outstanding QR payment over a websocket.
//
// All mutable state is owned by a single goroutine (run). Transport reads, dials and
// timers only post events to it, so ordering between a deferred reconnect and Stop is
// resolved by re-checking the stop flag when the event is handled. Callbacks run in
// order on a second goroutine, which lets them call Stop.
type Session struct {
	paymentId string
	id        string
	opts      Options
	logger    log.Logger
	tracer    trace.Tracer

	callbacks atomic.Pointer[Callbacks]
	queue     *callbackQueue
	connState atomic.Int32
	result    atomic.Pointer[Result]
	attempts  atomic.Int32

	stopping atomic.Bool
	stopOnce sync.Once

	// dialled conns waiting for the loop, keyed by connGen; closed by teardown
	dialMutex *sync.Mutex
	dialed    map[uint64]transport.Conn
	tornDown  bool

	events chan interface{}
	stopCh chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	// owned by run
	conn    transport.Conn
	connGen uint64
	dialing bool
	backoff backoff.BackOff
	sched   *scheduler
	span    trace.Span
}

// New creates a session for paymentId. It does not connect until Start is called.
// Cancelling ctx stops the session.
func New(ctx context.Context, paymentId string, callbacks Callbacks, opts Options) (*Session, error) {
	if paymentId == "" {
		return nil, ErrEmptyPaymentId
	}
	opts = opts.withDefaults()

	s := &Session{
		paymentId: paymentId,
		id:        xid.New().String(),
		opts:      opts,
		tracer:    common.CreateTracer("qrpay/paymentsession"),
		queue:     newCallbackQueue(),
		events:    make(chan interface{}, 64),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		backoff:   opts.NewBackoff(),
		dialMutex: &sync.Mutex{},
		dialed:    map[uint64]transport.Conn{},
	}
	s.logger = opts.Logger
	if s.logger == nil {
		s.logger = log.WithFields(log.Fields{"paymentId": paymentId, "session": s.id})
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.sched = newScheduler(opts.Clock, s.post, func() bool { return !s.stopping.Load() })
	s.SetCallbacks(callbacks)

	metrics.ActiveSessions.Inc()
	go s.run()
	go s.queue.run(s.done)
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()
	return s, nil
}

func (s *Session) PaymentId() string {
	return s.paymentId
}

func (s *Session) ConnectionState() models.ConnectionState {
	return models.ConnectionState(s.connState.Load())
}

func (s *Session) Outcome() models.Outcome {
	if r := s.result.Load(); r != nil {
		return r.Outcome
	}
	return models.Pending
}

// Result returns the terminal outcome with its details, or nil while pending.
func (s *Session) Result() *Result {
	return s.result.Load()
}

func (s *Session) ReconnectAttempts() int {
	return int(s.attempts.Load())
}

func (s *Session) Stopped() bool {
	return s.stopping.Load()
}

// Done is closed once the session has released its connection and timers.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start opens the connection. It is a no-op while a connection is open or being
// dialled, after a terminal outcome and after Stop.
func (s *Session) Start() {
	if s.stopping.Load() {
		return
	}
	s.post(startEvent{})
}

// Stop closes the connection and cancels every timer, then waits for that to finish.
// No reconnection happens afterwards and callbacks that have not started yet are
// dropped. It is idempotent and may be called from a callback.
func (s *Session) Stop() {
	s.stopping.Store(true)
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

func (s *Session) post(ev interface{}) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stopCh:
			s.teardown()
			return
		case ev := <-s.events:
			if s.stopping.Load() {
				continue
			}
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev interface{}) {
	switch e := ev.(type) {
	case startEvent:
		s.handleStart()
	case dialedEvent:
		s.handleDialed(e)
	case frameEvent:
		if e.gen == s.connGen {
			s.dispatch(e.data)
		}
	case closedEvent:
		if e.gen == s.connGen {
			s.handleClosed(e.info)
		}
	case timerEvent:
		if s.sched.current(e) {
			s.handleTimer(e)
		}
	}
}

func (s *Session) handleStart() {
	if s.Outcome().IsTerminal() || s.conn != nil || s.dialing {
		return
	}
	if s.span == nil {
		_, s.span = s.tracer.Start(context.Background(), "payment-session",
			trace.WithAttributes(attribute.String("payment.id", s.paymentId)))
	}
	s.sched.cancelReconnect()
	s.attempts.Store(0)
	s.backoff.Reset()
	s.connect()
}

func (s *Session) connect() {
	if s.dialing {
		return
	}
	s.discardConn()

	endpoint, err := transport.Endpoint(s.opts.BaseURL, s.paymentId)
	if err != nil {
		s.logger.Errorf("cannot build payment socket url: %v", err)
		s.setConnState(models.Disconnected)
		return
	}

	s.setConnState(models.Connecting)
	s.connGen++
	gen := s.connGen
	s.dialing = true

	go func() {
		conn, err := s.opts.Dialer.Dial(s.ctx, endpoint)
		if conn != nil && !s.park(gen, conn) {
			_ = conn.Close(transport.CloseNormalClosure, "")
			return
		}
		s.post(dialedEvent{gen: gen, err: err})
	}()
}

// park hands a dialled conn to the loop. It fails once the session is torn down,
// in which case the caller still owns conn.
func (s *Session) park(gen uint64, conn transport.Conn) bool {
	s.dialMutex.Lock()
	defer s.dialMutex.Unlock()
	if s.tornDown {
		return false
	}
	s.dialed[gen] = conn
	return true
}

func (s *Session) claim(gen uint64) transport.Conn {
	s.dialMutex.Lock()
	defer s.dialMutex.Unlock()
	conn := s.dialed[gen]
	delete(s.dialed, gen)
	return conn
}

// closeParked closes every conn still waiting for the loop and refuses new ones.
func (s *Session) closeParked() {
	s.dialMutex.Lock()
	defer s.dialMutex.Unlock()
	s.tornDown = true
	for gen, conn := range s.dialed {
		_ = conn.Close(transport.CloseNormalClosure, "")
		delete(s.dialed, gen)
	}
}

func (s *Session) handleDialed(e dialedEvent) {
	conn := s.claim(e.gen)
	if e.gen != s.connGen {
		if conn != nil {
			_ = conn.Close(transport.CloseNormalClosure, "")
		}
		return
	}
	s.dialing = false
	if e.err != nil || conn == nil {
		s.logger.Warnf("payment socket dial failed: %v", e.err)
		s.handleClosed(transport.CloseInfoFromError(e.err))
		return
	}

	s.conn = conn
	s.setConnState(models.Connected)
	s.attempts.Store(0)
	s.backoff.Reset()
	s.logger.Infof("payment socket open")

	go s.readLoop(e.gen, conn)
}

func (s *Session) readLoop(gen uint64, conn transport.Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.post(closedEvent{gen: gen, info: transport.CloseInfoFromError(err)})
			return
		}
		if !s.post(frameEvent{gen: gen, data: data}) {
			return
		}
	}
}

func (s *Session) handleClosed(info transport.CloseInfo) {
	if s.conn != nil {
		_ = s.conn.Close(transport.CloseNormalClosure, "")
		s.conn = nil
	}
	s.connGen++
	s.sched.stopKeepalive()
	s.setConnState(models.Disconnected)
	s.logger.Infof("payment socket closed: code=%d reason=%q", info.Code, info.Reason)

	if info.Clean() || s.stopping.Load() || s.Outcome().IsTerminal() {
		return
	}
	attempts := int(s.attempts.Load())
	if attempts >= s.opts.MaxReconnectAttempts {
		s.logger.Warnf("giving up after %d reconnect attempts", attempts)
		return
	}
	delay := s.backoff.NextBackOff()
	if delay == backoff.Stop {
		s.logger.Warnf("reconnect policy stopped after %d attempts", attempts)
		return
	}

	s.sched.scheduleReconnect(delay)
	attempt := s.attempts.Add(1)
	metrics.ReconnectAttempts.Inc()
	if s.span != nil {
		s.span.AddEvent("reconnect-scheduled", trace.WithAttributes(
			attribute.Int("attempt", int(attempt)),
			attribute.Int64("delay_ms", delay.Milliseconds()),
		))
	}
	s.logger.Infof("reconnect attempt %d/%d in %s", attempt, s.opts.MaxReconnectAttempts, delay)
}

func (s *Session) handleTimer(e timerEvent) {
	switch e.kind {
	case reconnectTimer:
		s.sched.reconnectFired()
		if s.stopping.Load() || s.Outcome().IsTerminal() {
			return
		}
		s.connect()
	case keepaliveTimer:
		s.sendPing()
	case timeoutTimer:
		s.logger.Warnf("no payment confirmation within %s", s.opts.PaymentTimeout)
		if s.finish(Result{Outcome: models.TimedOut}, "client") {
			s.emit("OnTimeout", func(cb *Callbacks) {
				if cb.OnTimeout != nil {
					cb.OnTimeout()
				}
			})
		}
		s.discardConn()
	}
}

func (s *Session) sendPing() {
	if s.conn == nil || s.ConnectionState() != models.Connected {
		return
	}
	frame, err := models.PingMessage().Encode()
	if err != nil {
		s.logger.Errorf("encode ping: %v", err)
		return
	}
	if err := s.conn.WriteMessage(frame); err != nil {
		s.logger.Warnf("ping failed: %v", err)
		return
	}
	metrics.PingsSent.Inc()
}

// finish records a terminal outcome together with its details. Only the first caller
// wins; it cancels all timers.
func (s *Session) finish(r Result, source string) bool {
	outcome := r.Outcome
	if !s.result.CompareAndSwap(nil, &r) {
		s.logger.Debugf("ignoring %s from %s, outcome already %s", outcome, source, s.Outcome())
		return false
	}
	s.sched.cancelAll()
	metrics.Outcomes.WithLabelValues(outcome.String(), source).Inc()
	if s.span != nil {
		s.span.SetAttributes(attribute.String("payment.outcome", outcome.String()))
	}
	s.logger.Infof("payment %s (%s)", outcome, source)
	return true
}

// discardConn closes the current connection as an intentional close.
func (s *Session) discardConn() {
	if s.conn == nil {
		return
	}
	_ = s.conn.Close(transport.CloseNormalClosure, "")
	s.conn = nil
	s.connGen++
	s.sched.stopKeepalive()
	s.setConnState(models.Disconnected)
}

func (s *Session) setConnState(state models.ConnectionState) {
	if models.ConnectionState(s.connState.Swap(int32(state))) == state {
		return
	}
	s.emit("OnStateChange", func(cb *Callbacks) {
		if cb.OnStateChange != nil {
			cb.OnStateChange(state)
		}
	})
}

func (s *Session) teardown() {
	s.sched.cancelAll()
	s.cancel()
	s.closeParked()
	s.discardConn()
	s.connGen++
	s.dialing = false
	s.connState.Store(int32(models.Disconnected))
	metrics.ActiveSessions.Dec()
	if s.span != nil {
		s.span.End()
	}
	s.logger.Debugf("session stopped")
}
