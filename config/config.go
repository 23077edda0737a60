package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`
	Sheets struct {
		SpreadsheetID       string `yaml:"spreadsheet_id"`
		SheetName           string `yaml:"sheet_name"`
		ServiceAccountEmail string `yaml:"service_account_email"`
		PrivateKey          string `yaml:"private_key"`
	} `yaml:"sheets"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Load reads the optional YAML file named by CONFIG_FILE, then overlays
// environment variables on top. Env always wins.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.Sheets.SheetName = "Wishlist"

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("SPREADSHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("SHEET_NAME"); v != "" {
		cfg.Sheets.SheetName = v
	}
	if v := os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"); v != "" {
		cfg.Sheets.ServiceAccountEmail = v
	}
	if v := os.Getenv("GOOGLE_PRIVATE_KEY"); v != "" {
		// Keys passed through the environment carry literal \n sequences.
		cfg.Sheets.PrivateKey = strings.ReplaceAll(v, `\n`, "\n")
	}

	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		cfg.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err == nil {
			cfg.Redis.DB = db
		}
	}
	if cfg.Redis.Host != "" && cfg.Redis.Port == "" {
		cfg.Redis.Port = "6379"
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.Sheets.SpreadsheetID == "" {
		return nil, fmt.Errorf("SPREADSHEET_ID is required")
	}
	if cfg.Sheets.ServiceAccountEmail == "" {
		return nil, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_EMAIL is required")
	}
	if cfg.Sheets.PrivateKey == "" {
		return nil, fmt.Errorf("GOOGLE_PRIVATE_KEY is required")
	}

	return cfg, nil
}
