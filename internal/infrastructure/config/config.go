package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration, one section per TOML table.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Events    EventsConfig    `mapstructure:"events"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Document  DocumentConfig  `mapstructure:"document"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects the driver and sizes the pool. SQLitePath is only
// read when Driver is sqlite.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig is optional. When disabled, idempotency keys are tracked in
// memory and lookups are not cached.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
}

// LogConfig: Format is json or console, Output is stdout, stderr or a file path.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
	// sign-in attempts allowed per client IP in each LoginRateWindow
	LoginRateLimit  int           `mapstructure:"login_rate_limit"`
	LoginRateWindow time.Duration `mapstructure:"login_rate_window"`
}

type InvoiceConfig struct {
	SubmitMode           string        `mapstructure:"submit_mode"`
	NumberPrefix         string        `mapstructure:"number_prefix"`
	OverdueSweepInterval time.Duration `mapstructure:"overdue_sweep_interval"`
	IdempotencyTTL       time.Duration `mapstructure:"idempotency_ttl"`
}

// EventsConfig picks direct in-process publishing or the transactional outbox.
type EventsConfig struct {
	Delivery           string        `mapstructure:"delivery"`
	OutboxPollInterval time.Duration `mapstructure:"outbox_poll_interval"`
	OutboxBatchSize    int           `mapstructure:"outbox_batch_size"`
	OutboxRetention    time.Duration `mapstructure:"outbox_retention"`
}

type BrowserConfig struct {
	TimeZone string `mapstructure:"time_zone"`
}

// DocumentConfig chooses the PDF engine. An empty ChromeURL with the chrome
// engine launches a local browser.
type DocumentConfig struct {
	Engine        string        `mapstructure:"engine"`
	ChromeURL     string        `mapstructure:"chrome_url"`
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
	CompanyName   string        `mapstructure:"company_name"`
}

// StorageConfig points at the S3-compatible bucket that archives rendered invoices.
type StorageConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

type SwaggerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// IPs or CIDRs; empty allows everyone
	AllowedIPs []string `mapstructure:"allowed_ips"`
}

type TelemetryConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	CollectorEndpoint     string        `mapstructure:"collector_endpoint"`
	SamplingRatio         float64       `mapstructure:"sampling_ratio"`
	ServiceName           string        `mapstructure:"service_name"`
	Insecure              bool          `mapstructure:"insecure"`
	DBTraceEnabled        bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL          bool          `mapstructure:"db_log_full_sql"`
	MetricsEnabled        bool          `mapstructure:"metrics_enabled"`
	MetricsExportInterval time.Duration `mapstructure:"metrics_export_interval"`
	LogsEnabled           bool          `mapstructure:"logs_enabled"`
	ProfilingEnabled      bool          `mapstructure:"profiling_enabled"`
	PyroscopeAddress      string        `mapstructure:"pyroscope_address"`
	// Pyroscope profile types to push; empty selects the defaults
	Profiles []string `mapstructure:"profiles"`
}

// defaults doubles as the list of keys viper resolves from the environment,
// so every key needs an entry even when its default is empty.
var defaults = map[string]any{
	"app.name": "invoicing",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "invoicing",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "invoicing.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"redis.enabled":   false,
	"redis.host":      "localhost",
	"redis.port":      6379,
	"redis.password":  "",
	"redis.db":        0,
	"redis.cache_ttl": 30 * time.Second,

	"jwt.secret":                  "",
	"jwt.access_token_expiration": 8 * time.Hour,
	"jwt.issuer":                  "invoicing",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    30 * time.Second,
	"http.idle_timeout":     time.Minute,
	"http.request_timeout":  20 * time.Second,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_size":    int64(2 << 20),
	// no cross-origin requests until origins are configured
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"http.trusted_proxies":    []string{},
	"http.login_rate_limit":   10,
	"http.login_rate_window":  time.Minute,

	"invoice.submit_mode":            "transaction",
	"invoice.number_prefix":          "INV",
	"invoice.overdue_sweep_interval": time.Hour,
	"invoice.idempotency_ttl":        24 * time.Hour,

	"events.delivery":             "direct",
	"events.outbox_poll_interval": 2 * time.Second,
	"events.outbox_batch_size":    100,
	"events.outbox_retention":     7 * 24 * time.Hour,

	"browser.time_zone": "UTC",

	"document.engine":         "native",
	"document.chrome_url":     "",
	"document.render_timeout": 30 * time.Second,
	"document.company_name":   "",

	"storage.enabled":           false,
	"storage.endpoint":          "",
	"storage.region":            "us-east-1",
	"storage.bucket":            "invoices",
	"storage.access_key_id":     "",
	"storage.secret_access_key": "",
	"storage.use_path_style":    false,
	"storage.presign_expiry":    15 * time.Minute,

	"swagger.enabled":     false,
	"swagger.allowed_ips": []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_export_interval": time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_address":       "http://localhost:4040",
	"telemetry.profiles":                []string{},
}

// Load resolves the configuration. Later sources win:
// built-in defaults, config.toml, a .env file, INVOICING_* variables
// (INVOICING_DATABASE_PASSWORD sets database.password).
func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/invoicing")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("INVOICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Document.CompanyName == "" {
		cfg.Document.CompanyName = cfg.App.Name
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func oneOf(key, got string, allowed ...string) error {
	if slices.Contains(allowed, got) {
		return nil
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), got)
}

func (c *Config) validate() error {
	if err := errors.Join(
		oneOf("database.driver", c.Database.Driver, "postgres", "sqlite"),
		oneOf("invoice.submit_mode", c.Invoice.SubmitMode, "transaction", "saga"),
		oneOf("events.delivery", c.Events.Delivery, "direct", "outbox"),
		oneOf("document.engine", c.Document.Engine, "native", "chrome"),
	); err != nil {
		return err
	}

	db := c.Database
	switch {
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	}

	if _, err := time.LoadLocation(c.Browser.TimeZone); err != nil {
		return fmt.Errorf("browser.time_zone is invalid: %w", err)
	}
	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be within [0, 1], got %g", r)
	}

	if c.App.Env != "production" {
		return nil
	}
	switch {
	case len(c.JWT.Secret) < 32:
		return errors.New("jwt.secret must be at least 32 characters in production")
	case db.Driver == "postgres" && db.Password == "":
		return errors.New("database.password is required in production")
	case slices.Contains(c.HTTP.CORSAllowOrigins, "*"):
		return errors.New("http.cors_allow_origins cannot contain '*' in production")
	case c.Telemetry.DBLogFullSQL:
		return errors.New("telemetry.db_log_full_sql must be false in production")
	}
	return nil
}

// DSN renders a postgres:// URL with user and password escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

// Location returns the display time zone, falling back to UTC.
func (b *BrowserConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(b.TimeZone); err == nil {
		return loc
	}
	return time.UTC
}
