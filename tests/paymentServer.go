package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// PaymentServer is a scriptable stand-in for the backend payment socket.
type PaymentServer struct {
	*httptest.Server

	mutex       *sync.Mutex
	upgrader    websocket.Upgrader
	connections map[string][]*ServerConn
	arrivals    chan *ServerConn
}

type ServerConn struct {
	PaymentId string

	conn     *websocket.Conn
	mutex    *sync.Mutex
	received []string
	closed   chan struct{}
}

func NewPaymentServer() *PaymentServer {
	s := &PaymentServer{
		mutex:       &sync.Mutex{},
		connections: map[string][]*ServerConn{},
		arrivals:    make(chan *ServerConn, 16),
	}
	router := mux.NewRouter()
	router.HandleFunc("/ws/payment/{paymentId}", s.handlePayment)
	s.Server = httptest.NewServer(router)
	return s
}

// WsBase is the ws:// base url clients should dial.
func (s *PaymentServer) WsBase() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *PaymentServer) handlePayment(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sc := &ServerConn{
		PaymentId: mux.Vars(r)["paymentId"],
		conn:      c,
		mutex:     &sync.Mutex{},
		closed:    make(chan struct{}),
	}
	s.mutex.Lock()
	s.connections[sc.PaymentId] = append(s.connections[sc.PaymentId], sc)
	s.mutex.Unlock()
	s.arrivals <- sc

	go sc.readLoop()
}

// Accept waits for the next client connection.
func (s *PaymentServer) Accept(timeout time.Duration) (*ServerConn, error) {
	select {
	case sc := <-s.arrivals:
		return sc, nil
	case <-time.After(timeout):
		return nil, errors.New("no client connected")
	}
}

func (s *PaymentServer) ConnectionCount(paymentId string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.connections[paymentId])
}

func (sc *ServerConn) readLoop() {
	defer close(sc.closed)
	for {
		_, data, err := sc.conn.ReadMessage()
		if err != nil {
			return
		}
		sc.mutex.Lock()
		sc.received = append(sc.received, string(data))
		sc.mutex.Unlock()
	}
}

func (sc *ServerConn) Send(frame string) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	return sc.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// CloseWith performs a close handshake with the given code.
func (sc *ServerConn) CloseWith(code int) error {
	msg := websocket.FormatCloseMessage(code, "")
	err := sc.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err != nil {
		return err
	}
	return sc.conn.Close()
}

// Drop closes the TCP connection without a close frame.
func (sc *ServerConn) Drop() error {
	return sc.conn.NetConn().Close()
}

func (sc *ServerConn) Received() []string {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	out := make([]string, len(sc.received))
	copy(out, sc.received)
	return out
}

func (sc *ServerConn) Closed() <-chan struct{} {
	return sc.closed
}
