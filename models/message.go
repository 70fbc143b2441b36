package models

import (
	"encoding/json"

	"github.com/go-errors/errors"
)

type MessageType string

const (
	MessageConnected      MessageType = "connected"
	MessagePaymentSuccess MessageType = "payment_success"
	MessagePaymentFailed  MessageType = "payment_failed"
	MessagePaymentTimeout MessageType = "payment_timeout"
	MessagePong           MessageType = "pong"
	MessagePing           MessageType = "ping"
)

// InboundMessage is a server frame. Payload fields are pointers so that
// absent and zero values can be told apart.
type InboundMessage struct {
	Type          MessageType `json:"type"`
	Amount        *float64    `json:"amount,omitempty"`
	TransactionId *string     `json:"transactionId,omitempty"`
	Error         *string     `json:"error,omitempty"`
}

type OutboundMessage struct {
	Type MessageType `json:"type"`
}

func PingMessage() OutboundMessage {
	return OutboundMessage{Type: MessagePing}
}

func (m OutboundMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func DecodeInbound(data []byte) (*InboundMessage, error) {
	msg := &InboundMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, errors.Errorf("malformed frame: %v", err)
	}
	if msg.Type == "" {
		return nil, errors.New("malformed frame: missing type")
	}
	return msg, nil
}

// SuccessDetails returns amount and transaction id when both are present.
func (m *InboundMessage) SuccessDetails() (float64, string, bool) {
	if m.Amount == nil || m.TransactionId == nil {
		return 0, "", false
	}
	return *m.Amount, *m.TransactionId, true
}

func (m *InboundMessage) FailureReason() string {
	if m.Error == nil {
		return "Payment failed"
	}
	return *m.Error
}
