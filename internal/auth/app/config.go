package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/afci/trajet/pkg/cryptox"
	"github.com/afci/trajet/pkg/jwtx"
	"gopkg.in/yaml.v3"
)

type Config struct {
	JWTSecret       string        // Required: HS256 signing key, at least 32 raw bytes
	Issuer          string        // Optional: issuer claim for tokens (default: trajet-auth)
	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 168h)

	MaxFailedLogins int           // Optional: consecutive failures before lockout (default: 5)
	LockoutDuration time.Duration // Optional: how long a lockout lasts (default: 15m)
	BcryptCost      int           // Optional: work factor for new password hashes (default: 12)

	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)

	BootstrapAdminEmail    string // Optional: first admin created on an empty database
	BootstrapAdminPassword string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// fileConfig is the YAML shape read from AUTH_CONFIG_FILE. Durations use
// time.ParseDuration syntax.
type fileConfig struct {
	JWT struct {
		Secret     string `yaml:"secret"`
		Issuer     string `yaml:"issuer"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`
	Login struct {
		MaxFailedAttempts int    `yaml:"max_failed_attempts"`
		LockoutDuration   string `yaml:"lockout_duration"`
		BcryptCost        int    `yaml:"bcrypt_cost"`
	} `yaml:"login"`
	Database struct {
		File string `yaml:"file"`
	} `yaml:"database"`
	Bootstrap struct {
		AdminEmail    string `yaml:"admin_email"`
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"bootstrap"`
	Server struct {
		Port                 int    `yaml:"port"`
		ShutdownGracePeriod  string `yaml:"shutdown_grace_period"`
		HousekeepingInterval string `yaml:"housekeeping_interval"`
	} `yaml:"server"`
	Log struct {
		Env    string `yaml:"env"`
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func defaultConfig() Config {
	return Config{
		Issuer:               "trajet-auth",
		AccessTokenTTL:       jwtx.DefaultAccessTokenTTL,
		RefreshTokenTTL:      jwtx.DefaultRefreshTokenTTL,
		MaxFailedLogins:      5,
		LockoutDuration:      15 * time.Minute,
		BcryptCost:           cryptox.DefaultBcryptCost,
		DatabaseFile:         "auth.db",
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: 1 * time.Hour,
	}
}

// LoadConfig builds the configuration from defaults, then the optional YAML
// file named by AUTH_CONFIG_FILE, then environment variables. The result is
// validated before it is returned.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("AUTH_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg = Config{
		JWTSecret:              getEnvOrDefault("AUTH_JWT_SECRET", cfg.JWTSecret),
		Issuer:                 getEnvOrDefault("AUTH_ISSUER", cfg.Issuer),
		AccessTokenTTL:         getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", cfg.AccessTokenTTL),
		RefreshTokenTTL:        getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL),
		MaxFailedLogins:        getEnvIntOrDefault("AUTH_MAX_FAILED_LOGINS", cfg.MaxFailedLogins),
		LockoutDuration:        getEnvDurationOrDefault("AUTH_LOCKOUT_DURATION", cfg.LockoutDuration),
		BcryptCost:             getEnvIntOrDefault("AUTH_BCRYPT_COST", cfg.BcryptCost),
		DatabaseFile:           getEnvOrDefault("AUTH_DATABASE_FILE", cfg.DatabaseFile),
		BootstrapAdminEmail:    getEnvOrDefault("AUTH_BOOTSTRAP_ADMIN_EMAIL", cfg.BootstrapAdminEmail),
		BootstrapAdminPassword: getEnvOrDefault("AUTH_BOOTSTRAP_ADMIN_PASSWORD", cfg.BootstrapAdminPassword),
		Env:                    getEnvOrDefault("ENV", cfg.Env),
		LogLevel:               getEnvOrDefault("LOG_LEVEL", cfg.LogLevel),
		LogFormat:              getEnvOrDefault("LOG_FORMAT", cfg.LogFormat),
		Port:                   getEnvIntOrDefault("PORT", cfg.Port),
		ShutdownGracePeriod:    getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod),
		HousekeepingInterval:   getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < jwtx.MinKeyLength {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes, got %d", jwtx.MinKeyLength, len(c.JWTSecret)))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_REFRESH_TOKEN_TTL must be positive"))
	}
	if c.MaxFailedLogins <= 0 {
		errs = append(errs, errors.New("AUTH_MAX_FAILED_LOGINS must be positive"))
	}
	if c.LockoutDuration <= 0 {
		errs = append(errs, errors.New("AUTH_LOCKOUT_DURATION must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("AUTH_BOOTSTRAP_ADMIN_EMAIL and AUTH_BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.JWTSecret, f.JWT.Secret)
	setString(&c.Issuer, f.JWT.Issuer)
	setString(&c.DatabaseFile, f.Database.File)
	setString(&c.BootstrapAdminEmail, f.Bootstrap.AdminEmail)
	setString(&c.BootstrapAdminPassword, f.Bootstrap.AdminPassword)
	setString(&c.Env, f.Log.Env)
	setString(&c.LogLevel, f.Log.Level)
	setString(&c.LogFormat, f.Log.Format)
	setInt(&c.MaxFailedLogins, f.Login.MaxFailedAttempts)
	setInt(&c.BcryptCost, f.Login.BcryptCost)
	setInt(&c.Port, f.Server.Port)

	durations := []struct {
		dst *time.Duration
		key string
		val string
	}{
		{&c.AccessTokenTTL, "jwt.access_ttl", f.JWT.AccessTTL},
		{&c.RefreshTokenTTL, "jwt.refresh_ttl", f.JWT.RefreshTTL},
		{&c.LockoutDuration, "login.lockout_duration", f.Login.LockoutDuration},
		{&c.ShutdownGracePeriod, "server.shutdown_grace_period", f.Server.ShutdownGracePeriod},
		{&c.HousekeepingInterval, "server.housekeeping_interval", f.Server.HousekeepingInterval},
	}
	for _, d := range durations {
		if d.val == "" {
			continue
		}
		v, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, d.key, err)
		}
		*d.dst = v
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
