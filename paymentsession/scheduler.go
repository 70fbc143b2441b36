package paymentsession

import (
	"time"

	"github.com/benbjohnson/clock"
)

type timerKind int

const (
	keepaliveTimer timerKind = iota
	timeoutTimer
	reconnectTimer
)

func (k timerKind) String() string {
	switch k {
	case keepaliveTimer:
		return "keepalive"
	case timeoutTimer:
		return "timeout"
	case reconnectTimer:
		return "reconnect"
	}
	return "unknown"
}

type timerEvent struct {
	kind timerKind
	gen  uint64
}

// scheduler owns the session timers. It is only touched from the session goroutine;
// the timers themselves fire on other goroutines and report back through post.
// Every arm or cancel bumps the generation of that timer, so a fire that raced a cancel is
// recognised as stale when it reaches the loop.
type scheduler struct {
	clock clock.Clock
	post  func(ev interface{}) bool
	// live is re-checked at the moment a timer fires.
	live func() bool

	gens map[timerKind]uint64

	keepalive     *clock.Ticker
	keepaliveDone chan struct{}
	timeout       *clock.Timer
	reconnect     *clock.Timer
}

func newScheduler(c clock.Clock, post func(ev interface{}) bool, live func() bool) *scheduler {
	return &scheduler{
		clock: c,
		post:  post,
		live:  live,
		gens:  map[timerKind]uint64{},
	}
}

func (s *scheduler) current(ev timerEvent) bool {
	return s.gens[ev.kind] == ev.gen
}

func (s *scheduler) next(kind timerKind) uint64 {
	s.gens[kind]++
	return s.gens[kind]
}

func (s *scheduler) startKeepalive(interval time.Duration) {
	s.stopKeepalive()

	gen := s.next(keepaliveTimer)
	ticker := s.clock.Ticker(interval)
	done := make(chan struct{})
	s.keepalive = ticker
	s.keepaliveDone = done

	go func() {
		for {
			select {
			case <-ticker.C:
				if !s.live() || !s.post(timerEvent{kind: keepaliveTimer, gen: gen}) {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

func (s *scheduler) keepaliveRunning() bool {
	return s.keepalive != nil
}

func (s *scheduler) stopKeepalive() {
	s.next(keepaliveTimer)
	if s.keepalive != nil {
		s.keepalive.Stop()
		close(s.keepaliveDone)
		s.keepalive = nil
		s.keepaliveDone = nil
	}
}

// armTimeout starts the single-shot backstop. It is armed at most once; re-arming
// while pending keeps the original deadline.
func (s *scheduler) armTimeout(d time.Duration) bool {
	if s.timeout != nil {
		return false
	}
	gen := s.next(timeoutTimer)
	s.timeout = s.clock.AfterFunc(d, func() {
		if s.live() {
			s.post(timerEvent{kind: timeoutTimer, gen: gen})
		}
	})
	return true
}

func (s *scheduler) cancelTimeout() {
	s.next(timeoutTimer)
	if s.timeout != nil {
		s.timeout.Stop()
	}
}

func (s *scheduler) scheduleReconnect(d time.Duration) {
	s.cancelReconnect()
	gen := s.next(reconnectTimer)
	s.reconnect = s.clock.AfterFunc(d, func() {
		if s.live() {
			s.post(timerEvent{kind: reconnectTimer, gen: gen})
		}
	})
}

func (s *scheduler) reconnectPending() bool {
	return s.reconnect != nil
}

func (s *scheduler) reconnectFired() {
	s.reconnect = nil
}

func (s *scheduler) cancelReconnect() {
	s.next(reconnectTimer)
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
}

func (s *scheduler) cancelAll() {
	s.stopKeepalive()
	s.cancelTimeout()
	s.cancelReconnect()
}
