package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DB        *DBconfig        `yaml:"db"`
	RabbitMq  *RabbitMqconfig  `yaml:"rabbitmq"`
	Messaging *Messagingconfig `yaml:"messaging"`
	Srv       *Serviceconfig   `yaml:"services"`
	Log       *Loggerconfig    `yaml:"log"`
	App       *Appconfig       `yaml:"app"`
	Dispatch  *Dispatchconfig  `yaml:"dispatch"`
	Identity  *Identityconfig  `yaml:"identity"`
	Clients   *Clientsconfig   `yaml:"clients"`
}

type DBconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	MaxConns int    `yaml:"max_conns"`
}

// DSN returns the postgres connection string.
func (c DBconfig) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
	if c.MaxConns > 0 {
		dsn += fmt.Sprintf("&pool_max_conns=%d", c.MaxConns)
	}
	return dsn
}

type RabbitMqconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

// Messagingconfig switches broker publication on or off. With Enabled=false the
// services get a no-op publisher and do not start consumers.
type Messagingconfig struct {
	Enabled      bool          `yaml:"enabled"`
	RequeueDelay time.Duration `yaml:"requeue_delay"`
}

type Serviceconfig struct {
	AssignmentServicePort string `yaml:"assignment_service"`
	IdentityServicePort   string `yaml:"identity_service"`
}

type Loggerconfig struct {
	Level string `yaml:"level"`
}

type Appconfig struct {
	DriverJwtSecret string `yaml:"driver_jwt_secret"`
	ServiceApiKey   string `yaml:"service_api_key"`
}

type Dispatchconfig struct {
	SearchRadiusMeters  int           `yaml:"search_radius_meters"`
	WidenedRadiusMeters int           `yaml:"widened_radius_meters"`
	WidenOnExhaustion   bool          `yaml:"widen_on_exhaustion"`
	MaxCandidates       int           `yaml:"max_candidates"`
	OfferWindow         time.Duration `yaml:"offer_window"`
	ExpirySweepInterval time.Duration `yaml:"expiry_sweep_interval"`
	VehicleClass        string        `yaml:"vehicle_class"`
	Currency            string        `yaml:"currency"`
}

type Identityconfig struct {
	RetryInterval  time.Duration `yaml:"retry_interval"`
	PendingTimeout time.Duration `yaml:"pending_timeout"`
}

type Clientsconfig struct {
	DirectoryURL    string        `yaml:"directory_url"`
	OrderServiceURL string        `yaml:"order_service_url"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
}

// Load reads configuration in order: .env (if present) → environment → YAML file
// named by CONFIG_FILE (if set). The result is validated.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cnf, err := New()
	if err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cnf.MergeYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cnf.Validate(); err != nil {
		return nil, err
	}
	return cnf, nil
}

func New() (*Config, error) {
	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: cannot parse %s=%q, using default %v\n", key, valStr, def)
			return def
		}
		return val
	}

	getEnvBool := func(key string, def bool) bool {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.ParseBool(valStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: cannot parse %s=%q, using default %v\n", key, valStr, def)
			return def
		}
		return val
	}

	getEnvDuration := func(key string, def time.Duration) time.Duration {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := time.ParseDuration(valStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: cannot parse %s=%q, using default %v\n", key, valStr, def)
			return def
		}
		return val
	}

	cnf := &Config{
		DB: &DBconfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "dispatch_user"),
			Password: getEnv("DB_PASSWORD", "dispatch_pass"),
			Database: getEnv("DB_NAME", "dispatch_db"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
		Messaging: &Messagingconfig{
			Enabled:      getEnvBool("MESSAGING_ENABLED", true),
			RequeueDelay: getEnvDuration("MESSAGING_REQUEUE_DELAY", 2*time.Second),
		},
		Srv: &Serviceconfig{
			AssignmentServicePort: getEnv("ASSIGNMENT_SERVICE_PORT", "3000"),
			IdentityServicePort:   getEnv("IDENTITY_SERVICE_PORT", "3002"),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
		App: &Appconfig{
			DriverJwtSecret: getEnv("DRIVER_JWT_SECRET", "change-me"),
			ServiceApiKey:   getEnv("SERVICE_API_KEY", ""),
		},
		Dispatch: &Dispatchconfig{
			SearchRadiusMeters:  getEnvInt("DISPATCH_SEARCH_RADIUS_METERS", 5000),
			WidenedRadiusMeters: getEnvInt("DISPATCH_WIDENED_RADIUS_METERS", 8000),
			WidenOnExhaustion:   getEnvBool("DISPATCH_WIDEN_ON_EXHAUSTION", true),
			MaxCandidates:       getEnvInt("DISPATCH_MAX_CANDIDATES", 3),
			OfferWindow:         getEnvDuration("DISPATCH_OFFER_WINDOW", 2*time.Minute),
			ExpirySweepInterval: getEnvDuration("DISPATCH_EXPIRY_SWEEP_INTERVAL", 15*time.Second),
			VehicleClass:        getEnv("DISPATCH_VEHICLE_CLASS", ""),
			Currency:            getEnv("DISPATCH_CURRENCY", "LKR"),
		},
		Identity: &Identityconfig{
			RetryInterval:  getEnvDuration("IDENTITY_RETRY_INTERVAL", 5*time.Minute),
			PendingTimeout: getEnvDuration("IDENTITY_PENDING_TIMEOUT", 10*time.Minute),
		},
		Clients: &Clientsconfig{
			DirectoryURL:    getEnv("DIRECTORY_URL", "http://localhost:3001"),
			OrderServiceURL: getEnv("ORDER_SERVICE_URL", "http://localhost:3003"),
			Timeout:         getEnvDuration("CLIENT_TIMEOUT", 3*time.Second),
			MaxAttempts:     getEnvInt("CLIENT_MAX_ATTEMPTS", 3),
			BaseDelay:       getEnvDuration("CLIENT_BASE_DELAY", 150*time.Millisecond),
			MaxDelay:        getEnvDuration("CLIENT_MAX_DELAY", time.Second),
		},
	}

	return cnf, nil
}

// MergeYAML overlays values found in the YAML file at path. Keys absent from the
// file keep their current value.
func (c *Config) MergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Dispatch.SearchRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.search_radius_meters must be positive, got %d", c.Dispatch.SearchRadiusMeters))
	}
	if c.Dispatch.WidenedRadiusMeters < c.Dispatch.SearchRadiusMeters {
		errs = append(errs, fmt.Errorf("dispatch.widened_radius_meters (%d) is smaller than search radius (%d)",
			c.Dispatch.WidenedRadiusMeters, c.Dispatch.SearchRadiusMeters))
	}
	if c.Dispatch.MaxCandidates <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.max_candidates must be positive, got %d", c.Dispatch.MaxCandidates))
	}
	if c.Dispatch.OfferWindow <= 0 {
		errs = append(errs, errors.New("dispatch.offer_window must be positive"))
	}
	if c.Dispatch.ExpirySweepInterval <= 0 {
		errs = append(errs, errors.New("dispatch.expiry_sweep_interval must be positive"))
	}
	if c.Identity.RetryInterval <= 0 {
		errs = append(errs, errors.New("identity.retry_interval must be positive"))
	}
	if c.Identity.PendingTimeout <= 0 {
		errs = append(errs, errors.New("identity.pending_timeout must be positive"))
	}
	if c.Clients.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("clients.max_attempts must be positive, got %d", c.Clients.MaxAttempts))
	}
	if strings.TrimSpace(c.App.DriverJwtSecret) == "" {
		errs = append(errs, errors.New("app.driver_jwt_secret is required"))
	}
	return errors.Join(errs...)
}
