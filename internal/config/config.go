package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthHMACSecret  string
	TokenTTL        time.Duration
	EnableLocalAuth bool

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	LogLevel string
	LogFile  string // empty = stdout only

	MetricsEnabled bool

	// SiteID tags rows of the event feed written by this instance.
	SiteID string
	// LoginRatePerMinute caps login attempts per client IP.
	LoginRatePerMinute int

	// MathTolerance is the engine-wide default for math-expression problems
	// that carry no tolerance of their own.
	MathTolerance float64
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func defaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("auth_hmac_secret", "supersecret-dev-key")
	v.SetDefault("token_ttl", "8h")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass_hash", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji")
	v.SetDefault("cors_origins_online", "https://lms.mindengage.ai")
	v.SetDefault("cors_origins_offline", "http://localhost:3000,http://localhost:3010,http://localhost:3020")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("math_tolerance", 0.001)
	v.SetDefault("site_id", "local")
	v.SetDefault("login_rate_per_minute", 10)
}

// loadDotEnv copies ENV_FILE (default .env) into the process environment
// when it exists. Variables already set win.
func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv reads configuration from the environment only.
func FromEnv() (Config, error) {
	return Load("")
}

// Load reads an optional config file (yaml/json/toml, by extension) and lets
// environment variables such as DB_DSN or MATH_TOLERANCE override it.
func Load(path string) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	v := viper.New()
	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	mode := Mode(strings.ToLower(v.GetString("mode")))
	if mode != ModeOnline {
		mode = ModeOffline
	}
	// local auth defaults on only when offline
	v.SetDefault("enable_local_auth", mode == ModeOffline)

	ttl := v.GetDuration("token_ttl")
	if ttl <= 0 {
		return Config{}, fmt.Errorf("token_ttl must be positive, got %q", v.GetString("token_ttl"))
	}
	tol := v.GetFloat64("math_tolerance")
	if tol < 0 {
		return Config{}, fmt.Errorf("math_tolerance must not be negative, got %v", tol)
	}

	return Config{
		Mode:               mode,
		HTTPAddr:           v.GetString("http_addr"),
		DBDriver:           v.GetString("db_driver"),
		DBDSN:              v.GetString("db_dsn"),
		AuthHMACSecret:     v.GetString("auth_hmac_secret"),
		TokenTTL:           ttl,
		EnableLocalAuth:    v.GetBool("enable_local_auth"),
		AdminUser:          v.GetString("admin_user"),
		AdminPassHash:      v.GetString("admin_pass_hash"),
		CORSOriginsOnline:  csv(v.GetString("cors_origins_online")),
		CORSOriginsOffline: csv(v.GetString("cors_origins_offline")),
		LogLevel:           v.GetString("log_level"),
		LogFile:            v.GetString("log_file"),
		MetricsEnabled:     v.GetBool("metrics_enabled"),
		MathTolerance:      tol,
		SiteID:             v.GetString("site_id"),
		LoginRatePerMinute: v.GetInt("login_rate_per_minute"),
	}, nil
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
