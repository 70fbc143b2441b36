package controllers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/client"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/common"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/regestry"
)

type PaymentController struct {
	client   client.PaymentClient
	sessions regestry.SessionRegestry
}

func NewPaymentController(client client.PaymentClient, sessions regestry.SessionRegestry) *PaymentController {
	return &PaymentController{
		client:   client,
		sessions: sessions,
	}
}

// CreateQRPayment issues a QR payment through the backend and starts watching it.
// (POST /api/payments/qr)
func (c *PaymentController) CreateQRPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := spanFromRequest(r, "CreateQRPayment")
	defer span.End()

	request := &models.CreateQRPaymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		Respond(w, common.Error(http.StatusBadRequest, "invalid request body"))
		return
	}

	payment, err := c.client.CreateQRPayment(ctx, request)
	if err != nil {
		span.RecordError(err)
		Respond(w, apiError(err))
		return
	}
	span.SetAttributes(attribute.String("payment.id", payment.PaymentId))

	status, err := c.sessions.Watch(payment.PaymentId)
	if err != nil {
		log.Errorf("cannot watch payment %s: %v", payment.PaymentId, err)
		Respond(w, common.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	Respond(w, MessageWithData(http.StatusCreated, &models.QRPaymentResponse{
		Payment: payment,
		Session: status,
	}))
}

// Watch starts watching an already issued payment.
// (POST /api/payments/{paymentId}/watch)
func (c *PaymentController) Watch(w http.ResponseWriter, r *http.Request) {
	paymentId := mux.Vars(r)["paymentId"]

	status, err := c.sessions.Watch(paymentId)
	if err != nil {
		Respond(w, common.Error(http.StatusBadRequest, err.Error()))
		return
	}
	Respond(w, MessageWithData(http.StatusAccepted, status))
}

// (GET /api/payments/{paymentId})
func (c *PaymentController) GetStatus(w http.ResponseWriter, r *http.Request) {
	paymentId := mux.Vars(r)["paymentId"]

	status, err := c.sessions.Status(paymentId)
	if err != nil {
		Respond(w, common.Error(http.StatusNotFound, err.Error()))
		return
	}
	Respond(w, status)
}

// (DELETE /api/payments/{paymentId})
func (c *PaymentController) Disconnect(w http.ResponseWriter, r *http.Request) {
	paymentId := mux.Vars(r)["paymentId"]

	if err := c.sessions.Disconnect(paymentId); err != nil {
		Respond(w, common.Error(http.StatusNotFound, err.Error()))
		return
	}
	Respond(w, Message("disconnected"))
}

// apiError maps backend failures onto the response: 4xx pass through, anything else is a bad gateway.
func apiError(err error) error {
	if stderrors.Is(err, client.ErrInvalidRequest) {
		return common.Error(http.StatusBadRequest, err.Error())
	}
	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return common.Error(apiErr.StatusCode, apiErr.Message)
	}
	return common.Error(http.StatusBadGateway, err.Error())
}
