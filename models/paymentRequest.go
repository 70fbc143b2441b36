package models

import "time"

type CreateQRPaymentRequest struct {
	OrderId     string  `json:"orderId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// QRPayment is issued by the backend before a session starts watching PaymentId.
type QRPayment struct {
	PaymentId string    `json:"paymentId"`
	OrderId   string    `json:"orderId"`
	Amount    float64   `json:"amount"`
	QRCode    string    `json:"qrCode"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PaymentStatus struct {
	PaymentId     string  `json:"paymentId"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount,omitempty"`
	TransactionId string  `json:"transactionId,omitempty"`
}

// SessionStatus is what the UI polls while a QR code is on screen.
type SessionStatus struct {
	PaymentId         string          `json:"paymentId"`
	ConnectionState   ConnectionState `json:"connectionState"`
	Outcome           Outcome         `json:"outcome"`
	ReconnectAttempts int             `json:"reconnectAttempts"`
	Amount            *float64        `json:"amount,omitempty"`
	TransactionId     string          `json:"transactionId,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// QRPaymentResponse pairs the issued QR payment with the session now watching it.
type QRPaymentResponse struct {
	Payment *QRPayment    `json:"payment"`
	Session SessionStatus `json:"session"`
}
