package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Console configures the web console binary and the ttadmin CLI.
type Console struct {
	Addr            string        `env:"TT_CONSOLE_ADDR"       envDefault:":8080"`
	StaticDir       string        `env:"TT_STATIC_DIR"         envDefault:"web/dist"`
	APIURL          string        `env:"TT_API_URL"            envDefault:"http://localhost:8000/api/v1"`
	APIToken        string        `env:"TT_API_TOKEN"`
	APITimeout      time.Duration `env:"TT_API_TIMEOUT"        envDefault:"15s"`
	SessionTTL      time.Duration `env:"TT_SESSION_TTL"        envDefault:"30m"`
	DownloadBaseURL string        `env:"TT_DOWNLOAD_BASE_URL"  envDefault:"https://example.com/downloads"`
	MacDownloadURL  string        `env:"TT_MAC_DOWNLOAD_URL"`
	SecureCookie    bool          `env:"TT_SECURE_COOKIE"      envDefault:"false"`
	Log             Log
}

// DevAPI configures the local stand-in for the remote API.
type DevAPI struct {
	Addr      string `env:"TT_DEVAPI_ADDR"       envDefault:":8000"`
	DBPath    string `env:"TT_DEVAPI_DB_PATH"    envDefault:"data/devapi.db"`
	VerifyURL string `env:"TT_DEVAPI_VERIFY_URL" envDefault:"http://localhost:8080/verify"`
	Log       Log
}

// Log selects verbosity and an optional rotated log file.
type Log struct {
	Level      string `env:"TT_LOG_LEVEL"        envDefault:"info"`
	File       string `env:"TT_LOG_FILE"`
	MaxSizeMB  int    `env:"TT_LOG_MAX_SIZE_MB"  envDefault:"10"`
	MaxBackups int    `env:"TT_LOG_MAX_BACKUPS"  envDefault:"3"`
	MaxAgeDays int    `env:"TT_LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// LoadDotEnv reads the given dotenv files into the process environment.
// Missing files are ignored; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadConsole reads .env and the environment into a Console config.
func LoadConsole() (Console, error) {
	var cfg Console
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDevAPI reads .env and the environment into a DevAPI config.
func LoadDevAPI() (DevAPI, error) {
	var cfg DevAPI
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
