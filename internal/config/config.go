package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAppName          = "Visa Portal"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultInactivity       = 5 * time.Minute
	defaultSessionTTL       = 12 * time.Hour
	defaultVisitorTTL       = 30 * time.Minute
	defaultRPCTimeout       = 15 * time.Second
	defaultSubmissionTTL    = 10 * time.Minute
	defaultLoginAttempts    = 5
	defaultUploadDir        = "./uploads"
	devCookieSecret         = "development-only-cookie-secret"
	configFileEnvVar        = "PORTAL_CONFIG"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	inactivitySecondsEnvVar = "INACTIVITY_TIMEOUT_SECONDS"
	inactivityDurEnvVar     = "INACTIVITY_TIMEOUT"
)

// Config captures application runtime configuration.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	BackendURL       string
	DatabaseURL      string
	RedisURL         string
	CookieSecret     string
	PublicURL        string
	UploadDir        string
	Inactivity       time.Duration
	SessionTTL       time.Duration
	VisitorTTL       time.Duration
	RPCTimeout       time.Duration
	ShutdownPeriod   time.Duration
	SubmissionTTL    time.Duration
	LoginAttemptsMin int
}

// fileConfig mirrors Config in the optional YAML file. Durations use Go
// duration syntax.
type fileConfig struct {
	AppName          string `yaml:"app_name"`
	AppEnv           string `yaml:"app_env"`
	Port             string `yaml:"port"`
	LogLevel         string `yaml:"log_level"`
	BackendURL       string `yaml:"backend_url"`
	DatabaseURL      string `yaml:"database_url"`
	RedisURL         string `yaml:"redis_url"`
	CookieSecret     string `yaml:"cookie_secret"`
	PublicURL        string `yaml:"public_url"`
	UploadDir        string `yaml:"upload_dir"`
	Inactivity       string `yaml:"inactivity_timeout"`
	SessionTTL       string `yaml:"session_ttl"`
	VisitorTTL       string `yaml:"visitor_ttl"`
	RPCTimeout       string `yaml:"rpc_timeout"`
	ShutdownPeriod   string `yaml:"shutdown_timeout"`
	SubmissionTTL    string `yaml:"submission_ttl"`
	LoginAttemptsMin int    `yaml:"login_attempts_per_minute"`
}

// Load reads configuration. A .env file in the working directory is loaded
// first without overriding the real environment, then the YAML file named
// by PORTAL_CONFIG; environment variables win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var file fileConfig
	if path := os.Getenv(configFileEnvVar); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", configFileEnvVar, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return build(file)
}

func build(file fileConfig) (Config, error) {
	cfg := Config{
		AppName:     getEnv("APP_NAME", or(file.AppName, defaultAppName)),
		AppEnv:      getEnv("APP_ENV", or(file.AppEnv, defaultAppEnv)),
		Port:        getEnv("PORT", or(file.Port, defaultPort)),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", or(file.LogLevel, defaultLogLevel))),
		BackendURL:  strings.TrimSpace(getEnv("BACKEND_URL", file.BackendURL)),
		DatabaseURL: getEnv("DATABASE_URL", file.DatabaseURL),
		RedisURL:    getEnv("REDIS_URL", file.RedisURL),
		PublicURL:   getEnv("PUBLIC_URL", file.PublicURL),
		UploadDir:   getEnv("UPLOAD_DIR", or(file.UploadDir, defaultUploadDir)),
	}
	cfg.CookieSecret = getEnv("COOKIE_SECRET", file.CookieSecret)

	var err error
	if cfg.Inactivity, err = durationWithSeconds(inactivitySecondsEnvVar, inactivityDurEnvVar, file.Inactivity, defaultInactivity); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationWithSeconds(shutdownSecondsEnvVar, shutdownDurationEnvVar, file.ShutdownPeriod, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = duration("SESSION_TTL", file.SessionTTL, defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.VisitorTTL, err = duration("VISITOR_TTL", file.VisitorTTL, defaultVisitorTTL); err != nil {
		return Config{}, err
	}
	if cfg.RPCTimeout, err = duration("RPC_TIMEOUT", file.RPCTimeout, defaultRPCTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SubmissionTTL, err = duration("SUBMISSION_TTL", file.SubmissionTTL, defaultSubmissionTTL); err != nil {
		return Config{}, err
	}

	cfg.LoginAttemptsMin = defaultLoginAttempts
	if file.LoginAttemptsMin > 0 {
		cfg.LoginAttemptsMin = file.LoginAttemptsMin
	}
	if v := os.Getenv("LOGIN_ATTEMPTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid LOGIN_ATTEMPTS_PER_MINUTE: %q", v)
		}
		cfg.LoginAttemptsMin = n
	}

	if cfg.BackendURL == "" {
		return Config{}, fmt.Errorf("BACKEND_URL must be set")
	}
	if !strings.HasPrefix(cfg.BackendURL, "http") {
		return Config{}, fmt.Errorf("BACKEND_URL must be an http(s) URL")
	}
	if cfg.Inactivity <= 0 {
		return Config{}, fmt.Errorf("inactivity timeout must be positive")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.CookieSecret == "" {
			return Config{}, fmt.Errorf("COOKIE_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
	} else if cfg.CookieSecret == "" {
		cfg.CookieSecret = devCookieSecret
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost" + cfg.Address()
	}
	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether memory fallbacks are allowed.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// SecureCookies reports whether cookies must be marked Secure.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicURL, "https://")
}

func durationWithSeconds(secondsKey, durationKey, fileValue string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return duration(durationKey, fileValue, fallback)
}

func duration(key, fileValue string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		v = fileValue
	}
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
