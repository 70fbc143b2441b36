package transport

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/tests"
)

func TestEndpoint(t *testing.T) {
	cases := []struct {
		base     string
		id       string
		expected string
	}{
		{"ws://localhost:8000", "pay_123", "ws://localhost:8000/ws/payment/pay_123"},
		{"wss://shop.example.com/", "pay_123", "wss://shop.example.com/ws/payment/pay_123"},
		{"http://localhost:8000", "pay_1", "ws://localhost:8000/ws/payment/pay_1"},
		{"https://api.example.com/v1", "pay_1", "wss://api.example.com/v1/ws/payment/pay_1"},
		{"ws://localhost:8000", "pay 1", "ws://localhost:8000/ws/payment/pay%201"},
		{"ws://localhost:8000", "a/../b", "ws://localhost:8000/ws/payment/a%2F..%2Fb"},
		{"ws://localhost:8000", "...", "ws://localhost:8000/ws/payment/..."},
	}
	for _, c := range cases {
		got, err := Endpoint(c.base, c.id)
		require.NoError(t, err, c.base)
		assert.Equal(t, c.expected, got)
	}
}

func TestEndpointErrors(t *testing.T) {
	for _, c := range []struct{ base, id string }{
		{"ws://localhost:8000", ""},
		{"ws://localhost:8000", "."},
		{"ws://localhost:8000/v1", ".."},
		{"ftp://localhost", "pay_1"},
		{"::not a url", "pay_1"},
		{"ws://", "pay_1"},
	} {
		_, err := Endpoint(c.base, c.id)
		assert.True(t, errors.Is(err, ErrInvalidEndpoint), "%s %q: %v", c.base, c.id, err)
	}
}

func TestCloseInfoFromError(t *testing.T) {
	assert := assert.New(t)

	info := CloseInfoFromError(&websocket.CloseError{Code: CloseNormalClosure, Text: "bye"})
	assert.Equal(CloseInfo{Code: CloseNormalClosure, Reason: "bye"}, info)
	assert.True(info.Clean())

	info = CloseInfoFromError(&websocket.CloseError{Code: CloseGoingAway})
	assert.False(info.Clean())

	info = CloseInfoFromError(io.ErrUnexpectedEOF)
	assert.Equal(CloseAbnormalClosure, info.Code)
	assert.False(info.Clean())
}

func TestWebSocketDialerRoundTrip(t *testing.T) {
	server := tests.NewPaymentServer()
	defer server.Close()

	endpoint, err := Endpoint(server.WsBase(), "pay_123")
	require.NoError(t, err)

	dialer := NewWebSocketDialer(time.Second, time.Second)
	conn, err := dialer.Dial(context.Background(), endpoint)
	require.NoError(t, err)

	sc, err := server.Accept(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pay_123", sc.PaymentId)

	require.NoError(t, sc.Send(`{"type":"connected"}`))
	data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"connected"}`, string(data))

	require.NoError(t, conn.WriteMessage([]byte(`{"type":"ping"}`)))
	assert.Eventually(t, func() bool { return len(sc.Received()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, sc.CloseWith(CloseNormalClosure))
	_, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, CloseInfoFromError(err).Clean())
}

func TestWebSocketDialerDroppedConnectionIsAbnormal(t *testing.T) {
	server := tests.NewPaymentServer()
	defer server.Close()

	endpoint, err := Endpoint(server.WsBase(), "pay_1")
	require.NoError(t, err)
	conn, err := NewWebSocketDialer(time.Second, time.Second).Dial(context.Background(), endpoint)
	require.NoError(t, err)

	sc, err := server.Accept(time.Second)
	require.NoError(t, err)
	require.NoError(t, sc.Drop())

	_, err = conn.ReadMessage()
	require.Error(t, err)
	assert.Equal(t, CloseAbnormalClosure, CloseInfoFromError(err).Code)
}

func TestWebSocketDialerRefused(t *testing.T) {
	server := tests.NewPaymentServer()
	base := server.WsBase()
	server.Close()

	endpoint, err := Endpoint(base, "pay_1")
	require.NoError(t, err)
	_, err = NewWebSocketDialer(time.Second, time.Second).Dial(context.Background(), endpoint)
	assert.Error(t, err)
}
