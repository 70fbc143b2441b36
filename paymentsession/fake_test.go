package paymentsession

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-errors/errors"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/transport"
)

const testBaseURL = "ws://shop.test"

type readItem struct {
	data []byte
	err  error
}

type fakeConn struct {
	url       string
	reads     chan readItem
	closed    chan struct{}
	closeOnce sync.Once

	mutex     *sync.Mutex
	written   []string
	closeCode int
}

func newFakeConn(url string) *fakeConn {
	return &fakeConn{
		url:    url,
		reads:  make(chan readItem, 32),
		closed: make(chan struct{}),
		mutex:  &sync.Mutex{},
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case item := <-c.reads:
		return item.data, item.err
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	c.written = append(c.written, string(data))
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.mutex.Lock()
		c.closeCode = code
		c.mutex.Unlock()
		close(c.closed)
	})
	return nil
}

// push delivers a server frame.
func (c *fakeConn) push(frame string) {
	c.reads <- readItem{data: []byte(frame)}
}

// drop ends the connection from the server side with the given close code.
func (c *fakeConn) drop(code int) {
	var err error = &websocket.CloseError{Code: code}
	if code == transport.CloseAbnormalClosure {
		err = io.ErrUnexpectedEOF
	}
	c.reads <- readItem{err: err}
}

func (c *fakeConn) pings() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	n := 0
	for _, w := range c.written {
		if w == `{"type":"ping"}` {
			n++
		}
	}
	return n
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) closedWith() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closeCode
}

type fakeDialer struct {
	mutex    *sync.Mutex
	urls     []string
	failures int
	conns    chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		mutex: &sync.Mutex{},
		conns: make(chan *fakeConn, 32),
	}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.mutex.Lock()
	d.urls = append(d.urls, url)
	fail := d.failures > 0
	if fail {
		d.failures--
	}
	d.mutex.Unlock()

	if fail {
		return nil, errors.New("connection refused")
	}
	c := newFakeConn(url)
	d.conns <- c
	return c, nil
}

func (d *fakeDialer) failNext(n int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.failures = n
}

func (d *fakeDialer) dials() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection dialled")
		return nil
	}
}

// gatedDialer holds every dial until release is closed and ignores ctx, like a
// handshake stuck on a slow network.
type gatedDialer struct {
	entered chan struct{}
	release chan struct{}
	conns   chan *fakeConn
}

func newGatedDialer() *gatedDialer {
	return &gatedDialer{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		conns:   make(chan *fakeConn, 1),
	}
}

func (d *gatedDialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.entered <- struct{}{}
	<-d.release
	c := newFakeConn(url)
	d.conns <- c
	return c, nil
}

func (d *gatedDialer) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-d.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("dial never started")
	}
}

type successCall struct {
	amount        float64
	transactionId string
}

type recorder struct {
	mutex     *sync.Mutex
	successes []successCall
	failures  []string
	timeouts  int
	connected int
	states    []models.ConnectionState
}

func newRecorder() *recorder {
	return &recorder{mutex: &sync.Mutex{}}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnSuccess: func(amount float64, transactionId string) {
			r.mutex.Lock()
			defer r.mutex.Unlock()
			r.successes = append(r.successes, successCall{amount, transactionId})
		},
		OnTimeout: func() {
			r.mutex.Lock()
			defer r.mutex.Unlock()
			r.timeouts++
		},
		OnFailed: func(reason string) {
			r.mutex.Lock()
			defer r.mutex.Unlock()
			r.failures = append(r.failures, reason)
		},
		OnConnected: func() {
			r.mutex.Lock()
			defer r.mutex.Unlock()
			r.connected++
		},
		OnStateChange: func(state models.ConnectionState) {
			r.mutex.Lock()
			defer r.mutex.Unlock()
			r.states = append(r.states, state)
		},
	}
}

func (r *recorder) read(fn func(r *recorder)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	fn(r)
}

func (r *recorder) terminalCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.successes) + len(r.failures) + r.timeouts
}

func (r *recorder) connectedCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.connected
}

func (r *recorder) timeoutCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.timeouts
}

func (r *recorder) stateHistory() []models.ConnectionState {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]models.ConnectionState, len(r.states))
	copy(out, r.states)
	return out
}

type fixture struct {
	session *Session
	dialer  *fakeDialer
	clock   *clock.Mock
	rec     *recorder
}

func testOptions(dialer transport.Dialer, mock clock.Clock) Options {
	opts := DefaultOptions(testBaseURL)
	opts.Dialer = dialer
	opts.Clock = mock
	return opts
}

func newFixture(t *testing.T, paymentId string) *fixture {
	t.Helper()
	f := &fixture{
		dialer: newFakeDialer(),
		clock:  clock.NewMock(),
		rec:    newRecorder(),
	}
	s, err := New(context.Background(), paymentId, f.rec.callbacks(), testOptions(f.dialer, f.clock))
	require.NoError(t, err)
	f.session = s
	t.Cleanup(s.Stop)
	return f
}

// connect starts the session and returns the open connection after the connected frame.
func (f *fixture) connect(t *testing.T) *fakeConn {
	t.Helper()
	f.session.Start()
	c := f.dialer.next(t)
	waitFor(t, func() bool { return f.session.ConnectionState() == models.Connected })
	c.push(`{"type":"connected"}`)
	waitFor(t, func() bool { return f.rec.connectedCount() == 1 })
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 2*time.Millisecond)
}
