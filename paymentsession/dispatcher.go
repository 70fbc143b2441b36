package paymentsession

import (
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/metrics"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
)

// dispatch decodes one inbound frame and routes it by type.
// Malformed frames are dropped; nothing here can end the session.
func (s *Session) dispatch(data []byte) {
	msg, err := models.DecodeInbound(data)
	if err != nil {
		metrics.MalformedFrames.Inc()
		s.logger.Warnf("dropping frame: %v", err)
		return
	}
	metrics.InboundFrames.WithLabelValues(string(msg.Type)).Inc()

	if s.Outcome().IsTerminal() {
		s.logger.Debugf("ignoring %s after outcome %s", msg.Type, s.Outcome())
		return
	}

	switch msg.Type {
	case models.MessageConnected:
		s.sched.startKeepalive(s.opts.KeepAliveInterval)
		s.sched.armTimeout(s.opts.PaymentTimeout)
		s.emit("OnConnected", func(cb *Callbacks) {
			if cb.OnConnected != nil {
				cb.OnConnected()
			}
		})

	case models.MessagePaymentSuccess:
		amount, transactionId, ok := msg.SuccessDetails()
		if !ok {
			s.logger.Warnf("payment_success without amount or transactionId, ignoring")
			return
		}
		if s.finish(Result{Outcome: models.Success, Amount: amount, TransactionId: transactionId}, "server") {
			s.emit("OnSuccess", func(cb *Callbacks) {
				if cb.OnSuccess != nil {
					cb.OnSuccess(amount, transactionId)
				}
			})
		}

	case models.MessagePaymentFailed:
		reason := msg.FailureReason()
		if s.finish(Result{Outcome: models.Failed, Reason: reason}, "server") {
			s.emit("OnFailed", func(cb *Callbacks) {
				if cb.OnFailed != nil {
					cb.OnFailed(reason)
				}
			})
		}

	case models.MessagePaymentTimeout:
		if s.finish(Result{Outcome: models.TimedOut}, "server") {
			s.emit("OnTimeout", func(cb *Callbacks) {
				if cb.OnTimeout != nil {
					cb.OnTimeout()
				}
			})
		}

	case models.MessagePong:

	default:
		s.logger.Debugf("ignoring unknown frame type %q", msg.Type)
	}
}
