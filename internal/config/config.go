package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	MQTT      MQTTConfig
	Blacklist BlacklistConfig
	Fees      FeeConfig
	Transfer  TransferConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	ExpiryHours        int
	RefreshExpiryHours int
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// TopicPrefix is prepended to every published event topic.
	TopicPrefix string
}

type BlacklistConfig struct {
	// URL of the external IMEI registry. Empty means the built-in static
	// rule set is used instead.
	URL     string
	Timeout time.Duration
}

type FeeConfig struct {
	Registration int64
	Transfer     int64
	SignupBonus  int64
}

type TransferConfig struct {
	Expiry        time.Duration
	SweepInterval time.Duration
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints

	PinMaxAttempts int           // Failed PIN attempts allowed per window
	PinWindow      time.Duration // Sliding window for PIN attempts
	PinLockout     time.Duration // Lockout duration once exceeded
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(homeDir)
	}
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Host:        viper.GetString("SERVER_HOST"),
			Environment: viper.GetString("ENVIRONMENT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:             viper.GetString("JWT_SECRET"),
			ExpiryHours:        viper.GetInt("JWT_EXPIRY_HOURS"),
			RefreshExpiryHours: viper.GetInt("JWT_REFRESH_EXPIRY_HOURS"),
		},
		MQTT: MQTTConfig{
			Broker:      viper.GetString("MQTT_BROKER"),
			ClientID:    viper.GetString("MQTT_CLIENT_ID"),
			Username:    viper.GetString("MQTT_USERNAME"),
			Password:    viper.GetString("MQTT_PASSWORD"),
			TopicPrefix: viper.GetString("MQTT_TOPIC_PREFIX"),
		},
		Blacklist: BlacklistConfig{
			URL:     viper.GetString("BLACKLIST_URL"),
			Timeout: viper.GetDuration("BLACKLIST_TIMEOUT"),
		},
		Fees: FeeConfig{
			Registration: viper.GetInt64("FEE_REGISTRATION"),
			Transfer:     viper.GetInt64("FEE_TRANSFER"),
			SignupBonus:  viper.GetInt64("FEE_SIGNUP_BONUS"),
		},
		Transfer: TransferConfig{
			Expiry:        viper.GetDuration("TRANSFER_EXPIRY"),
			SweepInterval: viper.GetDuration("TRANSFER_SWEEP_INTERVAL"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:     viper.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst:   viper.GetInt("RATE_LIMIT_GENERAL_BURST"),
			PinMaxAttempts: viper.GetInt("RATE_LIMIT_PIN_MAX_ATTEMPTS"),
			PinWindow:      viper.GetDuration("RATE_LIMIT_PIN_WINDOW"),
			PinLockout:     viper.GetDuration("RATE_LIMIT_PIN_LOCKOUT"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   viper.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: viper.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           viper.GetInt("CORS_MAX_AGE"),
		},
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_REFRESH_EXPIRY_HOURS", 168)
	viper.SetDefault("BLACKLIST_TIMEOUT", "3s")
	viper.SetDefault("FEE_REGISTRATION", 100)
	viper.SetDefault("FEE_TRANSFER", 100)
	viper.SetDefault("FEE_SIGNUP_BONUS", 0)
	viper.SetDefault("TRANSFER_EXPIRY", "24h")
	viper.SetDefault("TRANSFER_SWEEP_INTERVAL", "5m")
	viper.SetDefault("RATE_LIMIT_GENERAL_RPS", 20.0)
	viper.SetDefault("RATE_LIMIT_GENERAL_BURST", 40)
	viper.SetDefault("RATE_LIMIT_PIN_MAX_ATTEMPTS", 5)
	viper.SetDefault("RATE_LIMIT_PIN_WINDOW", "15m")
	viper.SetDefault("RATE_LIMIT_PIN_LOCKOUT", "15m")
	viper.SetDefault("MQTT_TOPIC_PREFIX", "storda")
	viper.SetDefault("MQTT_CLIENT_ID", "storda-registry")
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
