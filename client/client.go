package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-errors/errors"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/common"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/config"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
)

const (
	qrPaymentsPath = "/api/payments/qr"
	paymentPath    = "/api/payments/{paymentId}"
)

var ErrInvalidRequest = stderrors.New("invalid payment request")

// APIError is returned for any non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment api returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type PaymentClient interface {
	CreateQRPayment(ctx context.Context, req *models.CreateQRPaymentRequest) (*models.QRPayment, error)
	GetPaymentStatus(ctx context.Context, paymentId string) (*models.PaymentStatus, error)
}

type Client struct {
	http   *resty.Client
	tracer trace.Tracer
}

func NewClient(cfg config.ApiConfig) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseUrl, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.RequestTimeout).
		SetLogger(log.WithFields(log.Fields{"component": "payment-api"}))
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}

	return &Client{
		http:   rc,
		tracer: common.CreateTracer("qrpay/client"),
	}
}

// CreateQRPayment asks the backend to issue a QR payment for an order. Each call carries a
// fresh Idempotency-Key.
func (c *Client) CreateQRPayment(ctx context.Context, req *models.CreateQRPaymentRequest) (*models.QRPayment, error) {
	ctx, span := c.tracer.Start(ctx, "create-qr-payment",
		trace.WithAttributes(attribute.String("order.id", req.OrderId)))
	defer span.End()

	if req.OrderId == "" {
		return nil, errors.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	if req.Amount <= 0 {
		return nil, errors.Errorf("%w: amount must be positive, got %v", ErrInvalidRequest, req.Amount)
	}

	payment := &models.QRPayment{}
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(req).
		SetResult(payment).
		SetError(&errorBody{}).
		Post(qrPaymentsPath)
	if err != nil {
		span.RecordError(err)
		return nil, errors.WrapPrefix(err, "create qr payment", 0)
	}
	if err := checkResponse(res); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("payment.id", payment.PaymentId))
	return payment, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, paymentId string) (*models.PaymentStatus, error) {
	if paymentId == "" {
		return nil, errors.Errorf("%w: payment id is required", ErrInvalidRequest)
	}

	status := &models.PaymentStatus{}
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("paymentId", paymentId).
		SetResult(status).
		SetError(&errorBody{}).
		Get(paymentPath)
	if err != nil {
		return nil, errors.WrapPrefix(err, "get payment status", 0)
	}
	if err := checkResponse(res); err != nil {
		return nil, err
	}
	return status, nil
}

func checkResponse(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}

	msg := http.StatusText(res.StatusCode())
	if body, ok := res.Error().(*errorBody); ok {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
	}
	return &APIError{StatusCode: res.StatusCode(), Message: msg}
}
