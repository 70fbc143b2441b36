package models

import (
	"strings"

	"github.com/go-errors/errors"
)

type ConnectionState int32

const (
	Disconnected ConnectionState = 0 // Disconnected
	Connecting   ConnectionState = 1 // Connecting
	Connected    ConnectionState = 2 // Connected
)

var connectionStateText = map[ConnectionState]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	Connected:    "connected",
}

func (st ConnectionState) String() string {
	if text, ok := connectionStateText[st]; ok {
		return text
	}
	return "unknown"
}

func (st ConnectionState) MarshalText() ([]byte, error) {
	text, ok := connectionStateText[st]
	if !ok {
		return nil, errors.Errorf("invalid connection state %d", int32(st))
	}
	return []byte(text), nil
}

func (st *ConnectionState) UnmarshalText(b []byte) error {
	for state, text := range connectionStateText {
		if strings.EqualFold(string(b), text) {
			*st = state
			return nil
		}
	}
	return errors.Errorf("string %q is not a valid connection state", string(b))
}

// Outcome is the payment result as seen by the client. Every value except Pending is terminal.
type Outcome int32

const (
	Pending  Outcome = 0
	Success  Outcome = 1
	TimedOut Outcome = 2
	Failed   Outcome = 3
)

var outcomeText = map[Outcome]string{
	Pending:  "pending",
	Success:  "success",
	TimedOut: "timedOut",
	Failed:   "failed",
}

func (o Outcome) IsTerminal() bool {
	return o != Pending
}

func (o Outcome) String() string {
	if text, ok := outcomeText[o]; ok {
		return text
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) {
	text, ok := outcomeText[o]
	if !ok {
		return nil, errors.Errorf("invalid outcome %d", int32(o))
	}
	return []byte(text), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	for outcome, text := range outcomeText {
		if strings.EqualFold(string(b), text) {
			*o = outcome
			return nil
		}
	}
	return errors.Errorf("string %q is not a valid outcome", string(b))
}
