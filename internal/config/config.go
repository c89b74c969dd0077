package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Statement sources
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// Message sequence allocators
const (
	SequenceStatic = "static"
	SequenceRedis  = "redis"
)

// StatementConfig controls statement generation
type StatementConfig struct {
	LookbackDays     int    `validate:"min=1,max=62"`
	Tolerance        decimal.Decimal
	Timezone         string `validate:"required"`
	Location         *time.Location
	ServicerBIC      string `validate:"required,bic"`
	DefaultOwnerName string `validate:"required"`
	Source           string `validate:"oneof=postgres file"`
	DataDir          string
	OutputDir        string
	Sequence         string `validate:"oneof=static redis"`
	BatchConcurrency int    `validate:"min=1,max=64"`
	LogLevel         string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBatchSize    int
}

var envBindings = map[string]string{
	"database.host":                "DATABASE_HOST",
	"database.port":                "DATABASE_PORT",
	"database.user":                "DATABASE_USER",
	"database.password":            "DATABASE_PASSWORD",
	"database.name":                "DATABASE_NAME",
	"database.ssl_mode":            "DATABASE_SSL_MODE",
	"redis.host":                   "REDIS_HOST",
	"redis.port":                   "REDIS_PORT",
	"redis.password":               "REDIS_PASSWORD",
	"redis.db":                     "REDIS_DB",
	"jwt.secret_key":               "JWT_SECRET_KEY",
	"log.level":                    "LOG_LEVEL",
	"statement.lookback_days":      "STATEMENT_LOOKBACK_DAYS",
	"statement.tolerance":          "STATEMENT_TOLERANCE",
	"statement.timezone":           "STATEMENT_TIMEZONE",
	"statement.servicer_bic":       "STATEMENT_SERVICER_BIC",
	"statement.default_owner_name": "STATEMENT_DEFAULT_OWNER_NAME",
	"statement.source":             "STATEMENT_SOURCE",
	"statement.data_dir":           "STATEMENT_DATA_DIR",
	"statement.output_dir":         "STATEMENT_OUTPUT_DIR",
	"statement.sequence":           "STATEMENT_SEQUENCE",
	"statement.batch_concurrency":  "STATEMENT_BATCH_CONCURRENCY",
}

// Init reads an optional .env file and binds environment variables
func Init(file string) error {
	if file != "" {
		viper.SetConfigFile(file)
	}
	viper.AutomaticEnv()

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if file == "" {
		return nil
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(file); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", file, err)
	}

	// dotenv keys arrive lower-cased under their variable name
	for key, env := range envBindings {
		if _, set := os.LookupEnv(env); set {
			continue
		}
		if val := viper.GetString(strings.ToLower(env)); val != "" {
			viper.Set(key, val)
		}
	}
	return nil
}

// LoadStatementConfig returns statement configuration with defaults
func LoadStatementConfig() (*StatementConfig, error) {
	viper.SetDefault("statement.lookback_days", 7)
	viper.SetDefault("statement.tolerance", "0.01")
	viper.SetDefault("statement.timezone", "Europe/Amsterdam")
	viper.SetDefault("statement.servicer_bic", "RABONL2U")
	viper.SetDefault("statement.default_owner_name", "Unknown Account")
	viper.SetDefault("statement.source", SourcePostgres)
	viper.SetDefault("statement.data_dir", "./data")
	viper.SetDefault("statement.output_dir", "./output")
	viper.SetDefault("statement.sequence", SequenceStatic)
	viper.SetDefault("statement.batch_concurrency", 4)
	viper.SetDefault("log.level", "info")

	tolerance, err := decimal.NewFromString(viper.GetString("statement.tolerance"))
	if err != nil {
		return nil, fmt.Errorf("invalid statement.tolerance: %w", err)
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("invalid statement.tolerance: must not be negative")
	}

	cfg := &StatementConfig{
		LookbackDays:     viper.GetInt("statement.lookback_days"),
		Tolerance:        tolerance,
		Timezone:         viper.GetString("statement.timezone"),
		ServicerBIC:      strings.ToUpper(viper.GetString("statement.servicer_bic")),
		DefaultOwnerName: viper.GetString("statement.default_owner_name"),
		Source:           strings.ToLower(viper.GetString("statement.source")),
		DataDir:          viper.GetString("statement.data_dir"),
		OutputDir:        viper.GetString("statement.output_dir"),
		Sequence:         strings.ToLower(viper.GetString("statement.sequence")),
		BatchConcurrency: viper.GetInt("statement.batch_concurrency"),
		LogLevel:         viper.GetString("log.level"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid statement configuration: %w", err)
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid statement.timezone %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// LoadServerConfig reads HTTP server settings from the environment
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnv("PORT", "8080"),
		ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBatchSize:    getEnvAsInt("STATEMENT_MAX_BATCH", 100),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
