package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"

	"github.com/go-errors/errors"
	"github.com/tkanos/gonfig"
)

const (
	ReconnectLinear      = "linear"
	ReconnectExponential = "exponential"
)

type jsonConfiguration struct {
	Port                 int
	ApiBaseUrl           string
	WsBaseUrl            string
	ApiToken             string
	LogLevel             string
	MaxReconnectAttempts *int
	ReconnectStep        Duration
	ReconnectStrategy    string
	KeepAliveInterval    Duration
	PaymentTimeout       Duration
	HandshakeTimeout     Duration
	WriteTimeout         Duration
	RequestTimeout       Duration
	AllowedOrigins       []string
	TracingEndpoint      string
	TracingServiceName   string
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return errors.New("invalid duration")
	}
}

type ApiConfig struct {
	BaseUrl        string
	Token          string
	RequestTimeout time.Duration
}

// SessionConfig holds the payment session tuning knobs.
type SessionConfig struct {
	WsBaseUrl            string
	MaxReconnectAttempts int
	ReconnectStep        time.Duration
	ReconnectStrategy    string
	KeepAliveInterval    time.Duration
	PaymentTimeout       time.Duration
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

type Configuration struct {
	Port           int
	LogLevel       string
	AllowedOrigins []string
	ApiConfig      ApiConfig
	SessionConfig  SessionConfig
	TracingConfig  *TracingConfig
}

const apiBaseUrl = "http://localhost:8000"
const wsBaseUrl = "ws://localhost:8000"
const tracingServiceName = "qrpay"

func DefaultCfg() *Configuration {
	return &Configuration{
		Port:           8088,
		LogLevel:       "info",
		AllowedOrigins: []string{"*"},
		ApiConfig: ApiConfig{
			BaseUrl:        apiBaseUrl,
			RequestTimeout: 15 * time.Second,
		},
		SessionConfig: SessionConfig{
			WsBaseUrl:            wsBaseUrl,
			MaxReconnectAttempts: 3,
			ReconnectStep:        2 * time.Second,
			ReconnectStrategy:    ReconnectLinear,
			KeepAliveInterval:    25 * time.Second,
			PaymentTimeout:       5 * time.Minute,
			HandshakeTimeout:     10 * time.Second,
			WriteTimeout:         10 * time.Second,
		},
	}
}

func ParseConfiguration(configFile string) (*Configuration, error) {
	rawConfig := jsonConfiguration{}

	err := gonfig.GetConf(configFile, &rawConfig)
	if err != nil {
		log.Error("Read json config error: ", err)
		return nil, err
	}

	instance := DefaultCfg()
	if rawConfig.Port != 0 {
		instance.Port = rawConfig.Port
	}
	if rawConfig.LogLevel != "" {
		instance.LogLevel = rawConfig.LogLevel
	}
	if len(rawConfig.AllowedOrigins) > 0 {
		instance.AllowedOrigins = rawConfig.AllowedOrigins
	}
	if rawConfig.ApiBaseUrl != "" {
		instance.ApiConfig.BaseUrl = rawConfig.ApiBaseUrl
	}
	instance.ApiConfig.Token = rawConfig.ApiToken
	if rawConfig.RequestTimeout.Duration != 0 {
		instance.ApiConfig.RequestTimeout = rawConfig.RequestTimeout.Duration
	}

	sc := &instance.SessionConfig
	if rawConfig.WsBaseUrl != "" {
		sc.WsBaseUrl = rawConfig.WsBaseUrl
	}
	// zero is meaningful here, it turns reconnection off
	if rawConfig.MaxReconnectAttempts != nil {
		sc.MaxReconnectAttempts = *rawConfig.MaxReconnectAttempts
	}
	if rawConfig.ReconnectStep.Duration != 0 {
		sc.ReconnectStep = rawConfig.ReconnectStep.Duration
	}
	if rawConfig.ReconnectStrategy != "" {
		sc.ReconnectStrategy = rawConfig.ReconnectStrategy
	}
	if rawConfig.KeepAliveInterval.Duration != 0 {
		sc.KeepAliveInterval = rawConfig.KeepAliveInterval.Duration
	}
	if rawConfig.PaymentTimeout.Duration != 0 {
		sc.PaymentTimeout = rawConfig.PaymentTimeout.Duration
	}
	if rawConfig.HandshakeTimeout.Duration != 0 {
		sc.HandshakeTimeout = rawConfig.HandshakeTimeout.Duration
	}
	if rawConfig.WriteTimeout.Duration != 0 {
		sc.WriteTimeout = rawConfig.WriteTimeout.Duration
	}

	if rawConfig.TracingEndpoint != "" {
		instance.TracingConfig = &TracingConfig{
			Endpoint:    rawConfig.TracingEndpoint,
			ServiceName: rawConfig.TracingServiceName,
		}
		if instance.TracingConfig.ServiceName == "" {
			instance.TracingConfig.ServiceName = tracingServiceName
		}
	}

	if err := instance.Validate(); err != nil {
		return nil, err
	}
	return instance, nil
}

func (c *Configuration) Validate() error {
	sc := c.SessionConfig
	if sc.MaxReconnectAttempts < 0 {
		return errors.Errorf("MaxReconnectAttempts must not be negative: %d", sc.MaxReconnectAttempts)
	}
	switch sc.ReconnectStrategy {
	case ReconnectLinear, ReconnectExponential:
	default:
		return errors.Errorf("unknown ReconnectStrategy %q", sc.ReconnectStrategy)
	}
	if sc.KeepAliveInterval <= 0 || sc.PaymentTimeout <= 0 {
		return errors.New("KeepAliveInterval and PaymentTimeout must be positive")
	}
	return nil
}

// ParseConfig reads configPath, falling back to defaults when the file does not exist.
func ParseConfig(configPath string) (*Configuration, error) {
	if configPath == "" {
		configPath = "config.json"
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Warnf("configuration file %s not found, using defaults", configPath)
		return DefaultCfg(), nil
	}
	return ParseConfiguration(configPath)
}
