package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// LogFile receives logs while the terminal UI owns the screen.
	LogFile string `yaml:"log_file"`
	// SQLitePath holds the local key-value store used when no remote backend is configured.
	SQLitePath    string              `yaml:"sqlite_path"`
	Remote        RemoteConfig        `yaml:"remote"`
	Gateway       GatewayConfig       `yaml:"gateway"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	HTTP          HTTPConfig          `yaml:"http"`
}

// RemoteConfig points at the shared PostgreSQL collection. DSN wins over the
// individual fields when both are set.
type RemoteConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type GatewayConfig struct {
	TextURL   string        `yaml:"text_url"`
	ImageURL  string        `yaml:"image_url"`
	PublicKey string        `yaml:"public_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

type NotificationsConfig struct {
	Desktop bool   `yaml:"desktop"`
	Icon    string `yaml:"icon"`
}

type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Buffer   int           `yaml:"buffer"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		LogLevel:   "info",
		LogFormat:  "text",
		SQLitePath: "studyd.db",
		Remote: RemoteConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Gateway: GatewayConfig{
			TextURL:  "https://backend.buildpicoapps.com/aero/run/llm-api",
			ImageURL: "https://backend.buildpicoapps.com/aero/run/image-generation-api",
			Timeout:  60 * time.Second,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
			Icon:    "appointment-soon",
		},
		Scheduler: SchedulerConfig{
			Interval: 10 * time.Second,
			Buffer:   64,
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load applies, in order: defaults, the YAML file at path (if any), and
// STUDYD_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = strings.TrimSpace(os.Getenv("STUDYD_CONFIG"))
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
		}
	}
	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("STUDYD_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvString("STUDYD_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := getEnvString("STUDYD_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvString("STUDYD_SQLITE_PATH"); ok {
		cfg.SQLitePath = v
	}
	if v, ok := getEnvString("STUDYD_REMOTE_DSN"); ok {
		cfg.Remote.DSN = v
	}
	if v, ok := getEnvString("STUDYD_REMOTE_HOST"); ok {
		cfg.Remote.Host = v
	}
	if v, ok := getEnvInt("STUDYD_REMOTE_PORT"); ok && v > 0 {
		cfg.Remote.Port = v
	}
	if v, ok := getEnvString("STUDYD_REMOTE_USER"); ok {
		cfg.Remote.User = v
	}
	if v, ok := getEnvString("STUDYD_REMOTE_PASSWORD"); ok {
		cfg.Remote.Password = v
	}
	if v, ok := getEnvString("STUDYD_REMOTE_DATABASE"); ok {
		cfg.Remote.Database = v
	}
	if v, ok := getEnvString("STUDYD_REMOTE_SSLMODE"); ok {
		cfg.Remote.SSLMode = v
	}
	if v, ok := getEnvString("STUDYD_GATEWAY_TEXT_URL"); ok {
		cfg.Gateway.TextURL = v
	}
	if v, ok := getEnvString("STUDYD_GATEWAY_IMAGE_URL"); ok {
		cfg.Gateway.ImageURL = v
	}
	if v, ok := getEnvString("STUDYD_GATEWAY_PUBLIC_KEY"); ok {
		cfg.Gateway.PublicKey = v
	}
	if v, ok := getEnvDuration("STUDYD_GATEWAY_TIMEOUT"); ok && v > 0 {
		cfg.Gateway.Timeout = v
	}
	if v, ok := getEnvBool("STUDYD_DESKTOP_NOTIFICATIONS"); ok {
		cfg.Notifications.Desktop = v
	}
	if v, ok := getEnvString("STUDYD_NOTIFICATION_ICON"); ok {
		cfg.Notifications.Icon = v
	}
	if v, ok := getEnvDuration("STUDYD_SCHEDULER_INTERVAL"); ok && v > 0 {
		cfg.Scheduler.Interval = v
	}
	if v, ok := getEnvInt("STUDYD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.Scheduler.Buffer = v
	}
	if v, ok := getEnvString("STUDYD_HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := getEnvString("STUDYD_HTTP_ALLOWED_ORIGINS"); ok {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	return cfg
}

func (c Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("%w: scheduler interval must be positive", ErrInvalidConfig)
	}
	if c.Scheduler.Buffer <= 0 {
		return fmt.Errorf("%w: scheduler buffer must be positive", ErrInvalidConfig)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("%w: gateway timeout must be positive", ErrInvalidConfig)
	}
	if !c.RemoteEnabled() && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("%w: sqlite_path is required in local mode", ErrInvalidConfig)
	}
	return nil
}

// RemoteEnabled reports whether usable remote credentials are present.
// Missing or placeholder values select the local store.
func (c Config) RemoteEnabled() bool {
	if dsn := strings.TrimSpace(c.Remote.DSN); dsn != "" {
		return !isPlaceholder(dsn)
	}
	r := c.Remote
	if strings.TrimSpace(r.Host) == "" || strings.TrimSpace(r.Database) == "" {
		return false
	}
	for _, v := range []string{r.Host, r.User, r.Password, r.Database} {
		if isPlaceholder(v) {
			return false
		}
	}
	return true
}

// ConnString returns the PostgreSQL connection string for the remote store.
func (c Config) ConnString() string {
	if dsn := strings.TrimSpace(c.Remote.DSN); dsn != "" {
		return dsn
	}
	r := c.Remote
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", r.Host, r.Port),
		Path:   "/" + r.Database,
	}
	if r.User != "" {
		if r.Password != "" {
			u.User = url.UserPassword(r.User, r.Password)
		} else {
			u.User = url.User(r.User)
		}
	}
	if r.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{r.SSLMode}}.Encode()
	}
	return u.String()
}

func isPlaceholder(v string) bool {
	v = strings.ToLower(v)
	return strings.Contains(v, "your_") || strings.Contains(v, "changeme")
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
