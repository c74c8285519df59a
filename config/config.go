package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/spf13/viper"
)

// Store drivers
const (
	DriverPocketBase = "pocketbase"
	DriverMemory     = "memory"
)

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration
	LogLevel       string

	// PocketBase External Server
	StoreDriver     string // pocketbase or memory
	PocketBaseURL   string // PocketBase server URL (e.g., http://127.0.0.1:8090)
	PocketBaseToken string // Auth token for API access

	// Location defines where a calendar day starts and ends
	Location *time.Location

	// Telegram Bot
	TelegramBotToken string
	AuthorizedChatID string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPocketBase)
	v.SetDefault("POCKETBASE_URL", "http://127.0.0.1:8090")
	v.SetDefault("POCKETBASE_TOKEN", "")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("AUTHORIZED_CHAT_ID", "")
	v.AutomaticEnv()
	return v
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		log.Info(".env file loaded")
	}
	return fromViper(newViper())
}

func fromViper(v *viper.Viper) (*Config, error) {
	loc, err := loadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(v.GetString("STORE_DRIVER"))
	if driver != DriverPocketBase && driver != DriverMemory {
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}

	return &Config{
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		RequestTimeout:   v.GetDuration("REQUEST_TIMEOUT"),
		LogLevel:         strings.ToLower(v.GetString("LOG_LEVEL")),
		StoreDriver:      driver,
		PocketBaseURL:    v.GetString("POCKETBASE_URL"),
		PocketBaseToken:  v.GetString("POCKETBASE_TOKEN"),
		Location:         loc,
		TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
		AuthorizedChatID: v.GetString("AUTHORIZED_CHAT_ID"),
	}, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// GommonLevel converts the configured level name for gommon/log.
func (c *Config) GommonLevel() log.Lvl {
	switch c.LogLevel {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}
