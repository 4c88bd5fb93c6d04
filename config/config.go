package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go-cleaning-booking/internal/domain/entity"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Booking   BookingConfig
	Capacity  CapacityConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type DBConfig struct {
	Driver         string // postgres | sqlite
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	TimeZone       string
	SQLitePath     string
	MigrateOnStart bool
}

type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	// ReadTimeout bounds every ledger round trip
	ReadTimeout time.Duration
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type JWTConfig struct {
	Secret       string
	Issuer       string
	AccessExpiry time.Duration
}

// BookingConfig is the raw form of the deployment's BookingRule
type BookingConfig struct {
	MinAdvanceHours      int
	MaxAdvanceDays       int
	WorkingHoursStart    string
	WorkingHoursEnd      string
	SlotDurationMinutes  int
	BreakDurationMinutes int
	TimeZone             string
}

type CapacityConfig struct {
	Backend             string // memory | redis
	SyncOnStartup       bool
	LockCleanupInterval time.Duration
	LockStaleThreshold  time.Duration
	MatchConcurrency    int
}

type QueueConfig struct {
	Enabled     bool
	RedisDB     int
	Concurrency int
	Queue       string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CapacityBackendMemory = "memory"
	CapacityBackendRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("APP_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("APP_CORS_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", DBDriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_SQLITE_PATH", "booking.db")
	v.SetDefault("DB_MIGRATE_ON_START", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 20)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")

	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")

	v.SetDefault("BOOKING_MIN_ADVANCE_HOURS", 2)
	v.SetDefault("BOOKING_MAX_ADVANCE_DAYS", 30)
	v.SetDefault("BOOKING_WORKING_HOURS_START", "08:00")
	v.SetDefault("BOOKING_WORKING_HOURS_END", "20:00")
	v.SetDefault("BOOKING_SLOT_DURATION_MINUTES", 120)
	v.SetDefault("BOOKING_BREAK_DURATION_MINUTES", 30)
	v.SetDefault("BOOKING_TIMEZONE", "UTC")

	v.SetDefault("CAPACITY_BACKEND", CapacityBackendRedis)
	v.SetDefault("CAPACITY_SYNC_ON_STARTUP", true)
	v.SetDefault("CAPACITY_LOCK_CLEANUP_INTERVAL", "10m")
	v.SetDefault("CAPACITY_LOCK_STALE_THRESHOLD", "10m")
	v.SetDefault("CAPACITY_MATCH_CONCURRENCY", 8)

	v.SetDefault("QUEUE_ENABLED", true)
	v.SetDefault("QUEUE_REDIS_DB", 1)
	v.SetDefault("QUEUE_CONCURRENCY", 10)
	v.SetDefault("QUEUE_NAME", "default")

	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
}

// LoadConfig reads .env from the working directory (optional) and the environment
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom reads the given env file if it exists; environment variables win
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Port:            v.GetString("APP_PORT"),
			Env:             v.GetString("APP_ENV"),
			LogLevel:        v.GetString("APP_LOG_LEVEL"),
			ShutdownTimeout: v.GetDuration("APP_SHUTDOWN_TIMEOUT"),
			CORSOrigins:     splitList(v.GetString("APP_CORS_ORIGINS")),
		},
		DB: DBConfig{
			Driver:         v.GetString("DB_DRIVER"),
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			Name:           v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			TimeZone:       v.GetString("DB_TIMEZONE"),
			SQLitePath:     v.GetString("DB_SQLITE_PATH"),
			MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
		},
		Redis: RedisConfig{
			Host:        v.GetString("REDIS_HOST"),
			Port:        v.GetString("REDIS_PORT"),
			Password:    v.GetString("REDIS_PASSWORD"),
			DB:          v.GetInt("REDIS_DB"),
			PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
			DialTimeout: v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout: v.GetDuration("REDIS_READ_TIMEOUT"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			Issuer:       v.GetString("JWT_ISSUER"),
			AccessExpiry: v.GetDuration("JWT_ACCESS_EXPIRY"),
		},
		Booking: BookingConfig{
			MinAdvanceHours:      v.GetInt("BOOKING_MIN_ADVANCE_HOURS"),
			MaxAdvanceDays:       v.GetInt("BOOKING_MAX_ADVANCE_DAYS"),
			WorkingHoursStart:    v.GetString("BOOKING_WORKING_HOURS_START"),
			WorkingHoursEnd:      v.GetString("BOOKING_WORKING_HOURS_END"),
			SlotDurationMinutes:  v.GetInt("BOOKING_SLOT_DURATION_MINUTES"),
			BreakDurationMinutes: v.GetInt("BOOKING_BREAK_DURATION_MINUTES"),
			TimeZone:             v.GetString("BOOKING_TIMEZONE"),
		},
		Capacity: CapacityConfig{
			Backend:             v.GetString("CAPACITY_BACKEND"),
			SyncOnStartup:       v.GetBool("CAPACITY_SYNC_ON_STARTUP"),
			LockCleanupInterval: v.GetDuration("CAPACITY_LOCK_CLEANUP_INTERVAL"),
			LockStaleThreshold:  v.GetDuration("CAPACITY_LOCK_STALE_THRESHOLD"),
			MatchConcurrency:    v.GetInt("CAPACITY_MATCH_CONCURRENCY"),
		},
		Queue: QueueConfig{
			Enabled:     v.GetBool("QUEUE_ENABLED"),
			RedisDB:     v.GetInt("QUEUE_REDIS_DB"),
			Concurrency: v.GetInt("QUEUE_CONCURRENCY"),
			Queue:       v.GetString("QUEUE_NAME"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("%w: DB_DRIVER %q", ErrInvalidConfig, c.DB.Driver)
	}

	switch c.Capacity.Backend {
	case CapacityBackendMemory, CapacityBackendRedis:
	default:
		return fmt.Errorf("%w: CAPACITY_BACKEND %q", ErrInvalidConfig, c.Capacity.Backend)
	}

	if _, err := c.Booking.Rule(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Rule converts the configured values into a validated BookingRule
func (c BookingConfig) Rule() (entity.BookingRule, error) {
	start, err := entity.ParseTimeOfDay(strings.TrimSpace(c.WorkingHoursStart))
	if err != nil {
		return entity.BookingRule{}, fmt.Errorf("BOOKING_WORKING_HOURS_START: %w", err)
	}
	end, err := entity.ParseTimeOfDay(strings.TrimSpace(c.WorkingHoursEnd))
	if err != nil {
		return entity.BookingRule{}, fmt.Errorf("BOOKING_WORKING_HOURS_END: %w", err)
	}

	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return entity.BookingRule{}, fmt.Errorf("BOOKING_TIMEZONE: %w", err)
	}

	rule := entity.BookingRule{
		MinAdvanceHours:      c.MinAdvanceHours,
		MaxAdvanceDays:       c.MaxAdvanceDays,
		WorkingHoursStart:    start,
		WorkingHoursEnd:      end,
		SlotDurationMinutes:  c.SlotDurationMinutes,
		BreakDurationMinutes: c.BreakDurationMinutes,
		Location:             loc,
	}
	if err := rule.Validate(); err != nil {
		return entity.BookingRule{}, err
	}
	return rule, nil
}

// splitList parses a comma separated env value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
