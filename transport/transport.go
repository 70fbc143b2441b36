package transport

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/websocket"
)

const (
	CloseNormalClosure   = websocket.CloseNormalClosure
	CloseGoingAway       = websocket.CloseGoingAway
	CloseAbnormalClosure = websocket.CloseAbnormalClosure
)

var ErrInvalidEndpoint = stderrors.New("invalid websocket endpoint")

// Conn is a bidirectional text-message socket.
// ReadMessage must only be called from one goroutine; Close may be called from any.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close(code int, reason string) error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type CloseInfo struct {
	Code   int
	Reason string
}

// Clean reports a negotiated normal closure. Everything else counts as a dropped connection.
func (c CloseInfo) Clean() bool {
	return c.Code == CloseNormalClosure
}

func CloseInfoFromError(err error) CloseInfo {
	var closeErr *websocket.CloseError
	if stderrors.As(err, &closeErr) {
		return CloseInfo{Code: closeErr.Code, Reason: closeErr.Text}
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return CloseInfo{Code: CloseAbnormalClosure, Reason: reason}
}

// Endpoint derives the per-payment socket url: {base}/ws/payment/{paymentId}.
func Endpoint(base string, paymentId string) (string, error) {
	switch paymentId {
	case "":
		return "", errors.Errorf("%w: empty payment id", ErrInvalidEndpoint)
	case ".", "..":
		// would be collapsed out of the path
		return "", errors.Errorf("%w: invalid payment id %q", ErrInvalidEndpoint, paymentId)
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", errors.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	return u.JoinPath("ws", "payment", url.PathEscape(paymentId)).String(), nil
}

type WebSocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Header           http.Header
}

func NewWebSocketDialer(handshakeTimeout time.Duration, writeTimeout time.Duration) *WebSocketDialer {
	return &WebSocketDialer{
		HandshakeTimeout: handshakeTimeout,
		WriteTimeout:     writeTimeout,
	}
}

func (d *WebSocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	c, resp, err := dialer.DialContext(ctx, endpoint, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Errorf("failed to connect to %s: %v", endpoint, err)
	}
	return &wsConn{conn: c, writeTimeout: d.WriteTimeout}, nil
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close(code int, reason string) error {
	deadline := time.Now().Add(time.Second)
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return c.conn.Close()
}
