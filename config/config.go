package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/configparser"
	"github.com/Temutjin2k/ispeed/pkg/logger"
)

// Flags
var (
	modeFlag = flag.String("mode", "", "application mode: api-service | stats-service")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrUnknownMode     = errors.New("unknown application mode")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode     types.ServiceMode
		LogLevel string `env:"LOG_LEVEL" default:"INFO"`

		Database DatabaseConfig
		RabbitMQ RabbitMQConfig
		Services ServicesConfig
		Auth     Auth
		Monitor  MonitorConfig
		HTTP     HTTPConfig
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"ispeed_user"`
		Password string `env:"DATABASE_PASSWORD" default:"ispeed_pass"`
		Database string `env:"DATABASE_DATABASE" default:"ispeed_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	ServicesConfig struct {
		APIService   string `env:"SERVICES_API_SERVICE" default:"3000"`
		StatsService string `env:"SERVICES_STATS_SERVICE" default:"3001"`
	}

	Auth struct {
		AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" default:"15m"`
		RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" default:"168h"`
		JWTSecret       string        `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	// MonitorConfig drives trip sessions. Routes is the route catalog.
	MonitorConfig struct {
		TickInterval     time.Duration `env:"MONITOR_TICK_INTERVAL" default:"1s"`
		ResolutionDelay  time.Duration `env:"MONITOR_RESOLUTION_DELAY" default:"2s"`
		AlertProbability float64       `env:"MONITOR_ALERT_PROBABILITY" default:"0.05"`
		Routes           []string      `env:"MONITOR_ROUTES" default:"Lima - Arequipa,Lima - Cusco,Lima - Trujillo,Lima - Piura,Lima - Huancayo,Arequipa - Cusco,Cusco - Puno"`
	}

	HTTPConfig struct {
		CORSAllowedOrigins []string      `env:"HTTP_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
		RateLimitRPS       float64       `env:"HTTP_RATE_LIMIT_RPS" default:"20"`
		RateLimitBurst     int           `env:"HTTP_RATE_LIMIT_BURST" default:"40"`
		ShutdownTimeout    time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case types.APIService, types.StatsService:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode))
	}
	if !logger.ValidateLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if c.Monitor.TickInterval <= 0 || c.Monitor.ResolutionDelay <= 0 {
		errs = append(errs, errors.New("monitor intervals must be positive"))
	}
	if c.Monitor.AlertProbability < 0 || c.Monitor.AlertProbability > 1 {
		errs = append(errs, errors.New("monitor alert probability must be within [0,1]"))
	}
	if len(c.Monitor.Routes) == 0 {
		errs = append(errs, errors.New("route catalog is empty"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is empty"))
	}
	return errors.Join(errs...)
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)

	return nil
}

func (c DatabaseConfig) PoolLimits() (maxConns, minConns int32, maxLifetime, maxIdle time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}
