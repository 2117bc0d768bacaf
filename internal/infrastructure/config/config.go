package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the engine
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	ECA       ECAConfig
	Kafka     KafkaConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int // Maximum number of open connections
	MaxIdleConns    int // Maximum number of idle connections
	ConnMaxLifetime int // Connection max lifetime in minutes
	ConnMaxIdleTime int // Connection max idle time in minutes
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64 // Maximum webhook body size in bytes
	TrustedProxies []string
	// Swagger serves the API documentation at /swagger/*any
	Swagger bool
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	SamplingRatio     float64
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool

	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration

	ProfilingEnabled  bool
	PyroscopeAddress  string
	ProfileAlloc      bool
	ProfileGoroutines bool
}

// Ledger backends
const (
	LedgerMemory   = "memory"
	LedgerRedis    = "redis"
	LedgerDatabase = "database"
)

// Tenant cache backends
const (
	TenantCacheNone   = "none"
	TenantCacheMemory = "memory"
	TenantCacheRedis  = "redis"
)

// Audit sinks
const (
	AuditSinkDatabase = "database"
	AuditSinkLog      = "log"
	AuditSinkKafka    = "kafka"
)

// Store backends
const (
	StoreDatabase = "database"
	StoreMemory   = "memory"
)

// ECAConfig holds event engine configuration
type ECAConfig struct {
	// RequestTimeout bounds one webhook invocation
	RequestTimeout time.Duration
	// StrictActions abort the whole request when any line item is invalid
	StrictActions  []string
	Ledger         string
	LedgerTTL      time.Duration
	TenantCache    string
	TenantCacheTTL time.Duration
	AuditSinks     []string
	AuditTimeout   time.Duration
	Store          string
	// SeedTenants are organization ids registered as active tenants when
	// Store is memory
	SeedTenants []string
}

// KafkaConfig holds Kafka configuration for the audit stream
type KafkaConfig struct {
	Brokers      []string
	AuditTopic   string
	BatchTimeout time.Duration
}

// Load loads configuration from an optional .env file, config.toml and
// environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ECA_ prefix (e.g., ECA_DATABASE_PASSWORD)
// 2. .env file values (never override variables already set)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if path := os.Getenv("ECA_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ECA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: listValue(v, "http.trusted_proxies"),
			Swagger:        !v.IsSet("http.swagger") || v.GetBool("http.swagger"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ServiceName:       v.GetString("telemetry.service_name"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
			ProfileAlloc:      v.GetBool("telemetry.profile_alloc"),
			ProfileGoroutines: v.GetBool("telemetry.profile_goroutines"),
		},
		ECA: ECAConfig{
			RequestTimeout: v.GetDuration("eca.request_timeout"),
			StrictActions:  listValue(v, "eca.strict_actions"),
			Ledger:         strings.ToLower(v.GetString("eca.ledger")),
			LedgerTTL:      v.GetDuration("eca.ledger_ttl"),
			TenantCache:    strings.ToLower(v.GetString("eca.tenant_cache")),
			TenantCacheTTL: v.GetDuration("eca.tenant_cache_ttl"),
			AuditSinks:     listValue(v, "eca.audit_sinks"),
			AuditTimeout:   v.GetDuration("eca.audit_timeout"),
			Store:          strings.ToLower(v.GetString("eca.store")),
			SeedTenants:    listValue(v, "eca.seed_tenants"),
		},
		Kafka: KafkaConfig{
			Brokers:      listValue(v, "kafka.brokers"),
			AuditTopic:   v.GetString("kafka.audit_topic"),
			BatchTimeout: v.GetDuration("kafka.batch_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// listValue reads a list from TOML arrays or comma separated env values
func listValue(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "eca-engine"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "eca"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 5 << 20 // 5MB
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 15 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.PyroscopeAddress == "" {
		cfg.Telemetry.PyroscopeAddress = "http://localhost:4040"
	}

	if cfg.ECA.RequestTimeout == 0 {
		cfg.ECA.RequestTimeout = 10 * time.Second
	}
	if cfg.ECA.Ledger == "" {
		cfg.ECA.Ledger = LedgerDatabase
	}
	if cfg.ECA.LedgerTTL == 0 {
		cfg.ECA.LedgerTTL = 72 * time.Hour
	}
	if cfg.ECA.TenantCache == "" {
		cfg.ECA.TenantCache = TenantCacheMemory
	}
	if cfg.ECA.TenantCacheTTL == 0 {
		cfg.ECA.TenantCacheTTL = time.Minute
	}
	if len(cfg.ECA.AuditSinks) == 0 {
		cfg.ECA.AuditSinks = []string{AuditSinkDatabase, AuditSinkLog}
	}
	if cfg.ECA.AuditTimeout == 0 {
		cfg.ECA.AuditTimeout = 2 * time.Second
	}
	if cfg.ECA.Store == "" {
		cfg.ECA.Store = StoreDatabase
	}

	if cfg.Kafka.AuditTopic == "" {
		cfg.Kafka.AuditTopic = "eca.audit"
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 100 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.ECA.RequestTimeout < 0 {
		return fmt.Errorf("eca.request_timeout cannot be negative")
	}
	if !slices.Contains([]string{LedgerMemory, LedgerRedis, LedgerDatabase}, c.ECA.Ledger) {
		return fmt.Errorf("eca.ledger must be one of memory, redis, database, got %q", c.ECA.Ledger)
	}
	if !slices.Contains([]string{TenantCacheNone, TenantCacheMemory, TenantCacheRedis}, c.ECA.TenantCache) {
		return fmt.Errorf("eca.tenant_cache must be one of none, memory, redis, got %q", c.ECA.TenantCache)
	}
	if !slices.Contains([]string{StoreDatabase, StoreMemory}, c.ECA.Store) {
		return fmt.Errorf("eca.store must be one of database, memory, got %q", c.ECA.Store)
	}
	for _, sink := range c.ECA.AuditSinks {
		switch sink {
		case AuditSinkDatabase, AuditSinkLog:
		case AuditSinkKafka:
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers is required when eca.audit_sinks includes kafka")
			}
		default:
			return fmt.Errorf("unknown audit sink %q", sink)
		}
	}
	if c.ECA.Store == StoreMemory {
		if c.ECA.Ledger == LedgerDatabase {
			return fmt.Errorf("eca.ledger=database requires eca.store=database")
		}
		if slices.Contains(c.ECA.AuditSinks, AuditSinkDatabase) {
			return fmt.Errorf("audit sink database requires eca.store=database")
		}
	}

	if c.IsProduction() {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.ECA.Store == StoreMemory {
			return fmt.Errorf("eca.store=memory is not allowed in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the engine runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsStrict reports whether action is configured to abort on any invalid item
func (c *ECAConfig) IsStrict(action string) bool {
	return slices.Contains(c.StrictActions, action)
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
