package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/config"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
)

type backend struct {
	*httptest.Server
	mutex   sync.Mutex
	keys    []string
	auth    []string
	created []models.CreateQRPaymentRequest
}

func newBackend(t *testing.T) *backend {
	b := &backend{}
	router := mux.NewRouter()
	router.HandleFunc("/api/payments/qr", func(w http.ResponseWriter, r *http.Request) {
		b.mutex.Lock()
		defer b.mutex.Unlock()
		b.keys = append(b.keys, r.Header.Get("Idempotency-Key"))
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		req := models.CreateQRPaymentRequest{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.created = append(b.created, req)

		if req.OrderId == "sold-out" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"order already paid"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.QRPayment{
			PaymentId: "pay_123",
			OrderId:   req.OrderId,
			Amount:    req.Amount,
			QRCode:    "00020101021238",
		})
	}).Methods("POST")
	router.HandleFunc("/api/payments/{paymentId}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["paymentId"]
		if id == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.PaymentStatus{PaymentId: id, Status: "PAID", Amount: 500000, TransactionId: "TX1"})
	}).Methods("GET")

	b.Server = httptest.NewServer(router)
	t.Cleanup(b.Close)
	return b
}

func newTestClient(b *backend) *Client {
	return NewClient(config.ApiConfig{BaseUrl: b.URL + "/", Token: "secret", RequestTimeout: 2 * time.Second})
}

func TestCreateQRPayment(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(b)

	payment, err := c.CreateQRPayment(context.Background(), &models.CreateQRPaymentRequest{OrderId: "ord-1", Amount: 500000})
	require.NoError(t, err)
	assert.Equal(t, "pay_123", payment.PaymentId)
	assert.Equal(t, 500000.0, payment.Amount)

	_, err = c.CreateQRPayment(context.Background(), &models.CreateQRPaymentRequest{OrderId: "ord-1", Amount: 500000})
	require.NoError(t, err)

	b.mutex.Lock()
	defer b.mutex.Unlock()
	require.Len(t, b.keys, 2)
	for _, k := range b.keys {
		_, err := uuid.Parse(k)
		assert.NoError(t, err)
	}
	assert.NotEqual(t, b.keys[0], b.keys[1])
	assert.Equal(t, []string{"Bearer secret", "Bearer secret"}, b.auth)
}

func TestCreateQRPaymentAPIError(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(b)

	_, err := c.CreateQRPayment(context.Background(), &models.CreateQRPaymentRequest{OrderId: "sold-out", Amount: 1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "order already paid", apiErr.Message)
}

func TestCreateQRPaymentValidation(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(b)

	_, err := c.CreateQRPayment(context.Background(), &models.CreateQRPaymentRequest{Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = c.CreateQRPayment(context.Background(), &models.CreateQRPaymentRequest{OrderId: "ord-1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	b.mutex.Lock()
	defer b.mutex.Unlock()
	assert.Empty(t, b.created)
}

func TestGetPaymentStatus(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(b)

	status, err := c.GetPaymentStatus(context.Background(), "pay_123")
	require.NoError(t, err)
	assert.Equal(t, &models.PaymentStatus{PaymentId: "pay_123", Status: "PAID", Amount: 500000, TransactionId: "TX1"}, status)

	_, err = c.GetPaymentStatus(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not Found", apiErr.Message)

	_, err = c.GetPaymentStatus(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUnreachableBackend(t *testing.T) {
	c := NewClient(config.ApiConfig{BaseUrl: "http://127.0.0.1:1", RequestTimeout: time.Second})

	_, err := c.GetPaymentStatus(context.Background(), "pay_1")
	require.Error(t, err)
	var apiErr *APIError
	assert.NotErrorAs(t, err, &apiErr)
}
