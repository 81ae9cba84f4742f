package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Audit sink backends
const (
	AuditSinkDynamoDB = "dynamodb"
	AuditSinkPostgres = "postgres"
	AuditSinkLog      = "log"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Locker   LockerConfig
	Audit    AuditConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
	AutoMigrate       bool
	ApplicationName   string
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RateLimitPerMinute int
	TimingDelayBase    time.Duration
	TimingDelayRandom  time.Duration
}

// LockerConfig holds the rental and OTP windows.
type LockerConfig struct {
	AssignOTPValidity        time.Duration
	RotateOTPValidity        time.Duration
	DefaultDays              int
	DefaultColor             string
	AccessRateLimitPerMinute int
	ExpirySweepInterval      time.Duration
}

type AuditConfig struct {
	Sink             string
	DynamoDBTable    string
	DynamoDBEndpoint string
	Region           string
	WriteTimeout     time.Duration
}

type EmailConfig struct {
	Enabled      bool
	FromAddress  string
	AdminAddress string
	Region       string
}

var errMissingDBPassword = errors.New("DB_PASSWORD is required")

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	region := getEnv("AWS_REGION", "us-east-1")

	cfg := &Config{
		Database: loadDatabase(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
			RateLimitPerMinute: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 5),
			TimingDelayBase:    getEnvAsDuration("AUTH_TIMING_DELAY_BASE", 200*time.Millisecond),
			TimingDelayRandom:  getEnvAsDuration("AUTH_TIMING_DELAY_RANDOM", 100*time.Millisecond),
		},
		Locker: LockerConfig{
			AssignOTPValidity:        getEnvAsDuration("LOCKER_ASSIGN_OTP_VALIDITY", 15*time.Minute),
			RotateOTPValidity:        getEnvAsDuration("LOCKER_ROTATE_OTP_VALIDITY", 15*time.Second),
			DefaultDays:              getEnvAsInt("LOCKER_DEFAULT_DAYS", 1),
			DefaultColor:             getEnv("LOCKER_DEFAULT_COLOR", "#000000"),
			AccessRateLimitPerMinute: getEnvAsInt("ACCESS_RATE_LIMIT_PER_MINUTE", 10),
			ExpirySweepInterval:      getEnvAsDuration("RENTAL_EXPIRY_SWEEP_INTERVAL", 0),
		},
		Audit: AuditConfig{
			Sink:             strings.ToLower(getEnv("AUDIT_SINK", AuditSinkDynamoDB)),
			DynamoDBTable:    getEnv("AUDIT_DYNAMODB_TABLE", "SmartLocker_AuditLogs"),
			DynamoDBEndpoint: getEnv("AUDIT_DYNAMODB_ENDPOINT", ""),
			Region:           region,
			WriteTimeout:     getEnvAsDuration("AUDIT_WRITE_TIMEOUT", 3*time.Second),
		},
		Email: EmailConfig{
			Enabled:      getEnvAsBool("EMAIL_ENABLED", false),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
			AdminAddress: getEnv("EMAIL_ADMIN_ADDRESS", ""),
			Region:       region,
		},
	}

	if cfg.Database.Password == "" {
		return nil, errMissingDBPassword
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.Locker.validate(); err != nil {
		return nil, err
	}

	switch cfg.Audit.Sink {
	case AuditSinkDynamoDB, AuditSinkPostgres, AuditSinkLog:
	default:
		return nil, fmt.Errorf("AUDIT_SINK must be one of %s, %s, %s (got %q)",
			AuditSinkDynamoDB, AuditSinkPostgres, AuditSinkLog, cfg.Audit.Sink)
	}

	if cfg.Email.Enabled && (cfg.Email.FromAddress == "" || cfg.Email.AdminAddress == "") {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS and EMAIL_ADMIN_ADDRESS are required when EMAIL_ENABLED=true")
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that do not
// serve HTTP.
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := loadDatabase()
	if cfg.Password == "" {
		return nil, errMissingDBPassword
	}
	return &cfg, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "smart_locker"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		ConnectTimeout:    getEnvAsDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", false),
		ApplicationName:   getEnv("DB_APPLICATION_NAME", "secure-smart-locker"),
	}
}

func (c *LockerConfig) validate() error {
	if c.AssignOTPValidity <= 0 {
		return fmt.Errorf("LOCKER_ASSIGN_OTP_VALIDITY must be positive")
	}
	if c.RotateOTPValidity <= 0 {
		return fmt.Errorf("LOCKER_ROTATE_OTP_VALIDITY must be positive")
	}
	if c.DefaultDays < 1 {
		return fmt.Errorf("LOCKER_DEFAULT_DAYS must be at least 1")
	}
	if c.ExpirySweepInterval < 0 {
		return fmt.Errorf("RENTAL_EXPIRY_SWEEP_INTERVAL cannot be negative")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as expected by database/sql drivers.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
