package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	EventsHub   = "hub"
	EventsRedis = "redis"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Policy   PolicyConfig
	Ledger   LedgerConfig
	Store    StoreConfig
	Events   EventsConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	Migrate  bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// PolicyConfig holds the attendance tolerances and the default shift
type PolicyConfig struct {
	GraceMinutes               int
	EarlyDepartureGraceMinutes int
	DailyOvertimeThreshold     time.Duration
	HalfDayThreshold           time.Duration
	ShiftStart                 string
	ShiftEnd                   string
}

type LedgerConfig struct {
	WaitTimeout time.Duration
}

type StoreConfig struct {
	Driver string
}

type EventsConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ChannelPrefix string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}
	var err error

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "UTC"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		Migrate:  getEnv("DB_MIGRATE", "true") == "true",
	}

	// JWT configuration
	accessExpiration, err := getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour)
	if err != nil {
		return nil, err
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExpiration,
	}

	// Attendance policy
	if config.Policy, err = loadPolicy(); err != nil {
		return nil, err
	}

	waitTimeout, err := getEnvDuration("LEDGER_WAIT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	config.Ledger = LedgerConfig{WaitTimeout: waitTimeout}

	config.Store = StoreConfig{Driver: strings.ToLower(getEnv("STORE_DRIVER", StorePostgres))}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	config.Events = EventsConfig{
		Driver:        strings.ToLower(getEnv("EVENTS_DRIVER", EventsHub)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "attendance"),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadPolicy() (PolicyConfig, error) {
	grace, err := getEnvInt("ATTENDANCE_GRACE_MINUTES", 5)
	if err != nil {
		return PolicyConfig{}, err
	}
	earlyGrace, err := getEnvInt("ATTENDANCE_EARLY_DEPARTURE_GRACE_MINUTES", 0)
	if err != nil {
		return PolicyConfig{}, err
	}
	overtime, err := getEnvDuration("ATTENDANCE_OVERTIME_THRESHOLD", 8*time.Hour)
	if err != nil {
		return PolicyConfig{}, err
	}
	halfDay, err := getEnvDuration("ATTENDANCE_HALF_DAY_THRESHOLD", 4*time.Hour)
	if err != nil {
		return PolicyConfig{}, err
	}

	return PolicyConfig{
		GraceMinutes:               grace,
		EarlyDepartureGraceMinutes: earlyGrace,
		DailyOvertimeThreshold:     overtime,
		HalfDayThreshold:           halfDay,
		ShiftStart:                 getEnv("ATTENDANCE_SHIFT_START", "09:00"),
		ShiftEnd:                   getEnv("ATTENDANCE_SHIFT_END", "17:00"),
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET_KEY is required"))
	}
	if c.JWT.AccessExpiration <= 0 {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME must be positive"))
	}

	switch c.Store.Driver {
	case StorePostgres:
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("DB_PASSWORD is required"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of: %s, %s", StorePostgres, StoreMemory))
	}

	switch c.Events.Driver {
	case EventsHub:
	case EventsRedis:
		if c.Events.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("REDIS_ADDR is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVENTS_DRIVER must be one of: %s, %s", EventsHub, EventsRedis))
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE: %w", err))
	}

	p := c.Policy
	if p.GraceMinutes < 0 || p.EarlyDepartureGraceMinutes < 0 {
		errs = append(errs, fmt.Errorf("attendance grace minutes must not be negative"))
	}
	if p.DailyOvertimeThreshold <= 0 {
		errs = append(errs, fmt.Errorf("ATTENDANCE_OVERTIME_THRESHOLD must be positive"))
	}
	if p.HalfDayThreshold < 0 {
		errs = append(errs, fmt.Errorf("ATTENDANCE_HALF_DAY_THRESHOLD must not be negative"))
	}
	if (p.ShiftStart == "") != (p.ShiftEnd == "") {
		errs = append(errs, fmt.Errorf("ATTENDANCE_SHIFT_START and ATTENDANCE_SHIFT_END must be set together"))
	}
	for key, v := range map[string]string{"ATTENDANCE_SHIFT_START": p.ShiftStart, "ATTENDANCE_SHIFT_END": p.ShiftEnd} {
		if _, ok := validator.IsValidClock(v); v != "" && !ok {
			errs = append(errs, fmt.Errorf("%s must be HH:MM", key))
		}
	}

	if c.Ledger.WaitTimeout < 0 {
		errs = append(errs, fmt.Errorf("LEDGER_WAIT_TIMEOUT must not be negative"))
	}

	return errors.Join(errs...)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the time zone work dates are counted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) AttendancePolicy() attendance.Policy {
	return attendance.Policy{
		GraceMinutes:               c.Policy.GraceMinutes,
		EarlyDepartureGraceMinutes: c.Policy.EarlyDepartureGraceMinutes,
		DailyOvertimeThreshold:     c.Policy.DailyOvertimeThreshold,
		HalfDayThreshold:           c.Policy.HalfDayThreshold,
		Location:                   c.Location(),
	}
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
