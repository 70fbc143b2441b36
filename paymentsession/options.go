package paymentsession

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v5"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/config"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/transport"
)

const (
	defaultMaxReconnectAttempts = 3
	defaultReconnectStep        = 2 * time.Second
	defaultKeepAliveInterval    = 25 * time.Second
	defaultPaymentTimeout       = 5 * time.Minute
	defaultHandshakeTimeout     = 10 * time.Second
	defaultWriteTimeout         = 10 * time.Second
)

type Options struct {
	// BaseURL is the backend websocket base, e.g. wss://api.example.com.
	BaseURL string
	Dialer  transport.Dialer
	Clock   clock.Clock

	// MaxReconnectAttempts bounds reconnections after abnormal closures. Zero disables reconnection.
	MaxReconnectAttempts int
	// NewBackoff builds the per-session delay policy between reconnections.
	NewBackoff func() backoff.BackOff

	KeepAliveInterval time.Duration
	PaymentTimeout    time.Duration

	Logger log.Logger
}

func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:              baseURL,
		MaxReconnectAttempts: defaultMaxReconnectAttempts,
		KeepAliveInterval:    defaultKeepAliveInterval,
		PaymentTimeout:       defaultPaymentTimeout,
	}
}

func OptionsFromConfig(cfg config.SessionConfig) Options {
	step := cfg.ReconnectStep
	if step <= 0 {
		step = defaultReconnectStep
	}

	opts := Options{
		BaseURL:              cfg.WsBaseUrl,
		Dialer:               transport.NewWebSocketDialer(cfg.HandshakeTimeout, cfg.WriteTimeout),
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		KeepAliveInterval:    cfg.KeepAliveInterval,
		PaymentTimeout:       cfg.PaymentTimeout,
	}

	switch cfg.ReconnectStrategy {
	case config.ReconnectExponential:
		opts.NewBackoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = step
			return b
		}
	default:
		opts.NewBackoff = func() backoff.BackOff {
			return NewLinearBackOff(step)
		}
	}
	return opts
}

func (o Options) withDefaults() Options {
	if o.Dialer == nil {
		o.Dialer = transport.NewWebSocketDialer(defaultHandshakeTimeout, defaultWriteTimeout)
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.NewBackoff == nil {
		o.NewBackoff = func() backoff.BackOff {
			return NewLinearBackOff(defaultReconnectStep)
		}
	}
	if o.MaxReconnectAttempts < 0 {
		o.MaxReconnectAttempts = 0
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = defaultKeepAliveInterval
	}
	if o.PaymentTimeout <= 0 {
		o.PaymentTimeout = defaultPaymentTimeout
	}
	return o
}

// LinearBackOff waits Step, 2*Step, 3*Step... between attempts.
type LinearBackOff struct {
	Step    time.Duration
	attempt int64
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

func NewLinearBackOff(step time.Duration) *LinearBackOff {
	return &LinearBackOff{Step: step}
}

func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.Step * time.Duration(b.attempt)
}

func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
