package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // clinic timezone must resolve on minimal images
)

// Config holds all configuration for our application
type Config struct {
	Port        string
	Origin      string
	Environment string
	LogLevel    string
	JWTSecret   string
	Database    DatabaseConfig
	Redis       RedisConfig
	Mailer      MailerConfig
	Scheduling  SchedulingConfig
	Reminders   ReminderConfig
	SlotCache   SlotCacheConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string // "mysql" or "memory"
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds the connection used for the scheduling intent queue
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	QueueKey string
}

// MailerConfig holds email service configuration
type MailerConfig struct {
	SendGridAPIKey string
	DefaultFrom    string
	FromName       string
}

// SchedulingConfig holds clinic-wide scheduling settings
type SchedulingConfig struct {
	Timezone               string
	Location               *time.Location
	DefaultDurationMinutes int
}

// ReminderConfig controls reminder planning and the background sweep
type ReminderConfig struct {
	SweepInterval time.Duration
	Offsets       []time.Duration
}

// SlotCacheConfig sizes the in-process slot cache. Size 0 disables it.
type SlotCacheConfig struct {
	Size int
	TTL  time.Duration
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clinic"),
	}
	if dbConfig.Driver != "mysql" && dbConfig.Driver != "memory" {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: expected mysql or memory", dbConfig.Driver)
	}

	// Timestamps are stored in UTC; civil-time interpretation happens in the scheduling layer.
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	redisEnabled, err := strconv.ParseBool(getEnv("REDIS_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_ENABLED: %w", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisConfig := RedisConfig{
		Enabled:  redisEnabled,
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		QueueKey: getEnv("EVENTS_QUEUE_KEY", "clinic:scheduling:intents"),
	}

	mailerConfig := MailerConfig{
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		DefaultFrom:    getEnv("MAILER_DEFAULT_FROM", "no-reply@clinic.local"),
		FromName:       getEnv("MAILER_FROM_NAME", "Clinic"),
	}

	timezone := getEnv("CLINIC_TIMEZONE", "America/Mexico_City")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}
	defaultDuration, err := strconv.Atoi(getEnv("DEFAULT_APPOINTMENT_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_APPOINTMENT_MINUTES: %w", err)
	}
	if defaultDuration <= 0 {
		return nil, fmt.Errorf("invalid DEFAULT_APPOINTMENT_MINUTES: must be positive")
	}

	sweepMinutes, err := strconv.Atoi(getEnv("REMINDER_SWEEP_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_SWEEP_MINUTES: %w", err)
	}
	if sweepMinutes <= 0 {
		return nil, fmt.Errorf("invalid REMINDER_SWEEP_MINUTES: must be positive")
	}
	offsets, err := parseHourOffsets(getEnv("REMINDER_OFFSETS_HOURS", "24,2"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_OFFSETS_HOURS: %w", err)
	}

	cacheSize, err := strconv.Atoi(getEnv("SLOT_CACHE_SIZE", "512"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLOT_CACHE_SIZE: %w", err)
	}
	cacheTTL, err := strconv.Atoi(getEnv("SLOT_CACHE_TTL_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLOT_CACHE_TTL_SECONDS: %w", err)
	}

	return &Config{
		Port:        getEnv("PORT", "3001"),
		Origin:      getEnv("ORIGIN", "http://localhost:5173"),
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		JWTSecret:   getEnv("JWT_SECRET", "default_jwt_secret"),
		Database:    dbConfig,
		Redis:       redisConfig,
		Mailer:      mailerConfig,
		Scheduling: SchedulingConfig{
			Timezone:               timezone,
			Location:               location,
			DefaultDurationMinutes: defaultDuration,
		},
		Reminders: ReminderConfig{
			SweepInterval: time.Duration(sweepMinutes) * time.Minute,
			Offsets:       offsets,
		},
		SlotCache: SlotCacheConfig{
			Size: cacheSize,
			TTL:  time.Duration(cacheTTL) * time.Second,
		},
	}, nil
}

// parseHourOffsets turns "24,2" into durations before the appointment.
func parseHourOffsets(raw string) ([]time.Duration, error) {
	var offsets []time.Duration
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hours, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if hours <= 0 {
			return nil, fmt.Errorf("offset %d must be positive", hours)
		}
		offsets = append(offsets, time.Duration(hours)*time.Hour)
	}
	return offsets, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
