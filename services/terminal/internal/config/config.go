package config

import (
	"fmt"
	"strings"
	"time"

	libconfig "parkgate/libs/config"
)

// Config defines terminal configuration.
type Config struct {
	TerminalID string          `yaml:"terminalId" env:"TERMINAL_ID"`
	Authority  AuthorityConfig `yaml:"authority"`
	WebSocket  WebSocketConfig `yaml:"websocket"`
	Checkout   CheckoutConfig  `yaml:"checkout"`
	Display    DisplayConfig   `yaml:"display"`
	Status     StatusConfig    `yaml:"status"`
	Redis      RedisConfig     `yaml:"redis"`
	AMQP       AMQPConfig      `yaml:"amqp"`
	Log        LogConfig       `yaml:"log"`
}

// AuthorityConfig locates the remote authority.
type AuthorityConfig struct {
	BaseURL string        `yaml:"baseUrl" env:"AUTHORITY_BASE_URL" validate:"required,url"`
	WSURL   string        `yaml:"wsUrl" env:"AUTHORITY_WS_URL" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" env:"AUTHORITY_TIMEOUT" validate:"gte=0"`
}

// WebSocketConfig tunes the push channel. ReadTimeout bounds silence, pongs included.
type WebSocketConfig struct {
	ReconnectBaseDelay   time.Duration `yaml:"reconnectBaseDelay" env:"WS_RECONNECT_BASE_DELAY" validate:"gte=0"`
	ReconnectMaxAttempts int           `yaml:"reconnectMaxAttempts" env:"WS_RECONNECT_MAX_ATTEMPTS" validate:"gte=0"`
	PingInterval         time.Duration `yaml:"pingInterval" env:"WS_PING_INTERVAL" validate:"gte=0"`
	WriteTimeout         time.Duration `yaml:"writeTimeout" env:"WS_WRITE_TIMEOUT" validate:"gte=0"`
	ReadTimeout          time.Duration `yaml:"readTimeout" env:"WS_READ_TIMEOUT" validate:"gte=0"`
}

// CheckoutConfig lists the subscriptions probed for a subscriber ticket.
type CheckoutConfig struct {
	ProbeSubscriptionIDs []string `yaml:"probeSubscriptionIds" env:"CHECKOUT_PROBE_SUBSCRIPTION_IDS"`
}

// DisplayConfig sets the currency code and time zone of printed receipts.
type DisplayConfig struct {
	Currency string `yaml:"currency" env:"DISPLAY_CURRENCY" validate:"omitempty,len=3,alpha"`
	Timezone string `yaml:"timezone" env:"DISPLAY_TIMEZONE"`
}

// StatusConfig enables the local status endpoint when Addr is set.
type StatusConfig struct {
	Addr string `yaml:"addr" env:"STATUS_ADDR"`
}

// RedisConfig enables the shared audit feed when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" validate:"gte=0"`
	AuditKey string        `yaml:"auditKey" env:"REDIS_AUDIT_KEY"`
	AuditTTL time.Duration `yaml:"auditTtl" env:"REDIS_AUDIT_TTL" validate:"gte=0"`
}

// AMQPConfig enables terminal event publishing when URL is set.
type AMQPConfig struct {
	URL   string `yaml:"url" env:"AMQP_URL" validate:"omitempty,url"`
	Queue string `yaml:"queue" env:"AMQP_QUEUE"`
}

// LogConfig selects the zap level and encoding.
type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" validate:"omitempty,oneof=json console"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		TerminalID: "terminal-1",
		Authority: AuthorityConfig{
			BaseURL: "http://localhost:3000/api/v1",
			WSURL:   "ws://localhost:3000/api/v1/ws",
			Timeout: 10 * time.Second,
		},
		WebSocket: WebSocketConfig{
			ReconnectBaseDelay:   time.Second,
			ReconnectMaxAttempts: 5,
			PingInterval:         30 * time.Second,
			WriteTimeout:         10 * time.Second,
			ReadTimeout:          60 * time.Second,
		},
		Checkout: CheckoutConfig{
			ProbeSubscriptionIDs: []string{"sub_001", "sub_002", "sub_003", "sub_004", "sub_005"},
		},
		Display: DisplayConfig{Currency: "SAR"},
		Redis:   RedisConfig{AuditTTL: 24 * time.Hour},
		Log:     LogConfig{Level: "info", Encoding: "console"},
	}
}

// Load applies file, dotenv and environment overrides to Default and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	cfg.Authority.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Authority.BaseURL), "/")
	if strings.TrimSpace(cfg.TerminalID) == "" {
		return nil, fmt.Errorf("config: terminal id is required")
	}
	return cfg, nil
}

// Location returns the display time zone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Display.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
