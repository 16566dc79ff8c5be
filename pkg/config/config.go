package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Scheduler     SchedulerConfig
	Constraints   ConstraintDefaults
	Reschedule    RescheduleConfig
	Notifications NotificationConfig
	Cache         CacheConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig describes the search domain and the session duration policy.
type SchedulerConfig struct {
	Days           []int
	DayStart       string
	DayEnd         string
	StartStep      time.Duration
	LectureMinutes int
	LabMinutes     int
	RetryBudget    int
}

// ConstraintDefaults fill constraint fields a generate request leaves empty.
type ConstraintDefaults struct {
	MaxDailyHours        int
	MaxWeeklyHours       int
	MinGapBetweenClasses int
	LabHoursRequired     bool
}

// RescheduleConfig controls the sweep that retries failed leave repairs.
type RescheduleConfig struct {
	RetryEnabled bool
	RetrySpec    string
}

// NotificationConfig governs the post-commit event fan-out.
type NotificationConfig struct {
	Enabled bool
	Channel string
	Workers int
	Retries int
}

// CacheConfig governs cached timetable views.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		RunMigrations: v.GetBool("DB_RUN_MIGRATIONS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		TokenTTL: parseDuration(v.GetString("JWT_TOKEN_TTL"), time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Days:           parseDays(v.GetString("SCHEDULER_DAYS")),
		DayStart:       v.GetString("SCHEDULER_DAY_START"),
		DayEnd:         v.GetString("SCHEDULER_DAY_END"),
		StartStep:      parseDuration(v.GetString("SCHEDULER_START_STEP"), 30*time.Minute),
		LectureMinutes: v.GetInt("SCHEDULER_LECTURE_MINUTES"),
		LabMinutes:     v.GetInt("SCHEDULER_LAB_MINUTES"),
		RetryBudget:    v.GetInt("SCHEDULER_RETRY_BUDGET"),
	}

	cfg.Constraints = ConstraintDefaults{
		MaxDailyHours:        v.GetInt("CONSTRAINT_MAX_DAILY_HOURS"),
		MaxWeeklyHours:       v.GetInt("CONSTRAINT_MAX_WEEKLY_HOURS"),
		MinGapBetweenClasses: v.GetInt("CONSTRAINT_MIN_GAP_MINUTES"),
		LabHoursRequired:     v.GetBool("CONSTRAINT_LAB_HOURS_REQUIRED"),
	}

	cfg.Reschedule = RescheduleConfig{
		RetryEnabled: v.GetBool("ENABLE_RESCHEDULE_RETRY"),
		RetrySpec:    v.GetString("RESCHEDULE_RETRY_SPEC"),
	}

	cfg.Notifications = NotificationConfig{
		Enabled: v.GetBool("ENABLE_NOTIFICATIONS"),
		Channel: v.GetString("NOTIFICATIONS_CHANNEL"),
		Workers: v.GetInt("NOTIFICATIONS_WORKERS"),
		Retries: v.GetInt("NOTIFICATIONS_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_TIMETABLE_CACHE"),
		TTL:     parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "timetable-api")
	v.SetDefault("JWT_TOKEN_TTL", "1h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_DAYS", "1,2,3,4,5")
	v.SetDefault("SCHEDULER_DAY_START", "08:00")
	v.SetDefault("SCHEDULER_DAY_END", "17:00")
	v.SetDefault("SCHEDULER_START_STEP", "30m")
	v.SetDefault("SCHEDULER_LECTURE_MINUTES", 60)
	v.SetDefault("SCHEDULER_LAB_MINUTES", 120)
	v.SetDefault("SCHEDULER_RETRY_BUDGET", 8)

	v.SetDefault("CONSTRAINT_MAX_DAILY_HOURS", 8)
	v.SetDefault("CONSTRAINT_MAX_WEEKLY_HOURS", 40)
	v.SetDefault("CONSTRAINT_MIN_GAP_MINUTES", 15)
	v.SetDefault("CONSTRAINT_LAB_HOURS_REQUIRED", true)

	v.SetDefault("ENABLE_RESCHEDULE_RETRY", true)
	v.SetDefault("RESCHEDULE_RETRY_SPEC", "@every 10m")

	v.SetDefault("ENABLE_NOTIFICATIONS", false)
	v.SetDefault("NOTIFICATIONS_CHANNEL", "timetable.events")
	v.SetDefault("NOTIFICATIONS_WORKERS", 1)
	v.SetDefault("NOTIFICATIONS_RETRIES", 3)

	v.SetDefault("ENABLE_TIMETABLE_CACHE", false)
	v.SetDefault("TIMETABLE_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseDays(raw string) []int {
	var days []int
	for _, part := range splitAndTrim(raw) {
		day, err := strconv.Atoi(part)
		if err != nil || day < 1 || day > 7 {
			continue
		}
		days = append(days, day)
	}
	return days
}
