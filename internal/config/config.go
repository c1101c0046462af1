package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env  string `yaml:"app_env"`
		Name string `yaml:"name"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	// Storage backend del Opt-in Registry y la historia de pares.
	Storage struct {
		Driver       string `yaml:"driver"` // memory | postgres | sqlite | redis
		DSN          string `yaml:"dsn"`
		Path         string `yaml:"path"` // sqlite
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"storage"`

	// Profiles: si Driver está vacío se usa el mismo backend que Storage.
	Profiles struct {
		Driver   string `yaml:"driver"` // "" | memory | postgres | sqlite | redis | dynamodb
		DynamoDB struct {
			Table    string `yaml:"table"`
			Region   string `yaml:"region"`
			Endpoint string `yaml:"endpoint"`
		} `yaml:"dynamodb"`
	} `yaml:"profiles"`

	Redis struct {
		Addr   string `yaml:"addr"`
		DB     int    `yaml:"db"`
		Prefix string `yaml:"prefix"`
	} `yaml:"redis"`

	Lock struct {
		Driver        string        `yaml:"driver"` // memory | redis
		TTL           time.Duration `yaml:"ttl"`
		RetryInterval time.Duration `yaml:"retry_interval"`
	} `yaml:"lock"`

	Matching struct {
		// RetryBudget: intentos de swap de compañero por corrida. 0 = reinsert-and-stop estricto.
		RetryBudget int `yaml:"retry_budget"`
		// KeepOptInAfterMatch deja elegibles a los emparejados (default: se limpian).
		KeepOptInAfterMatch bool `yaml:"keep_optin_after_match"`
	} `yaml:"matching"`

	Scheduler struct {
		Enabled       bool          `yaml:"enabled"`
		Interval      time.Duration `yaml:"interval"`
		TenantTimeout time.Duration `yaml:"tenant_timeout"`
		Concurrency   int           `yaml:"concurrency"`
		RunOnStart    bool          `yaml:"run_on_start"`
	} `yaml:"scheduler"`

	Directory struct {
		Driver   string            `yaml:"driver"` // slack | profile | static
		CacheTTL time.Duration     `yaml:"cache_ttl"`
		Cache    string            `yaml:"cache"` // memory | redis
		Static   map[string]string `yaml:"static"` // participant -> display name
	} `yaml:"directory"`

	Notify struct {
		Driver         string `yaml:"driver"` // slack | smtp | log
		WelcomeEnabled bool   `yaml:"welcome_enabled"`
		Rate           struct {
			Driver string        `yaml:"driver"` // memory | redis
			Max    int           `yaml:"max"`    // 0 = sin límite
			Window time.Duration `yaml:"window"`
		} `yaml:"rate"`
		SMTP struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			From     string `yaml:"from"`
			TLS      string `yaml:"tls"` // auto | starttls | ssl | none
		} `yaml:"smtp"`
	} `yaml:"notify"`

	Slack struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
		// Tokens por tenant (workspace). Sin entrada se usa SLACK_BOT_TOKEN.
		Tokens map[string]string `yaml:"tokens"`
	} `yaml:"slack"`

	Tracing struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"tracing"`

	// Secrets nunca vienen del YAML.
	Secrets Secrets `yaml:"-"`
}

// Secrets se leen exclusivamente de variables de entorno.
type Secrets struct {
	SlackBotToken string `env:"SLACK_BOT_TOKEN"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	StorageDSN    string `env:"STORAGE_DSN"`
	AdminAPIKey   string `env:"HELLOPAIR_ADMIN_KEY"`
}

// Load lee el YAML (opcional: path vacío = solo defaults + env),
// aplica defaults, overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		// sqlite relativo al directorio del YAML
		if p := strings.TrimSpace(c.Storage.Path); p != "" && !filepath.IsAbs(p) {
			c.Storage.Path = filepath.Clean(filepath.Join(filepath.Dir(path), p))
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := env.Parse(&c.Secrets); err != nil {
		return nil, fmt.Errorf("config: parse env secrets: %w", err)
	}
	if c.Secrets.StorageDSN != "" {
		c.Storage.DSN = c.Secrets.StorageDSN
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default retorna una configuración de desarrollo (memoria, log notifier).
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "hellopair"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		c.Storage.Path = "./data/hellopair.db"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "hp:"
	}
	if c.Lock.Driver == "" {
		c.Lock.Driver = "memory"
	}
	if c.Lock.TTL == 0 {
		c.Lock.TTL = 2 * time.Minute
	}
	if c.Lock.RetryInterval == 0 {
		c.Lock.RetryInterval = 100 * time.Millisecond
	}
	if c.Matching.RetryBudget == 0 {
		c.Matching.RetryBudget = 32
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = 7 * 24 * time.Hour
	}
	if c.Scheduler.TenantTimeout == 0 {
		c.Scheduler.TenantTimeout = time.Minute
	}
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = 4
	}
	if c.Directory.Driver == "" {
		c.Directory.Driver = "profile"
	}
	if c.Directory.CacheTTL == 0 {
		c.Directory.CacheTTL = 10 * time.Minute
	}
	if c.Directory.Cache == "" {
		c.Directory.Cache = "memory"
	}
	if c.Notify.Driver == "" {
		c.Notify.Driver = "log"
	}
	if c.Notify.Rate.Driver == "" {
		c.Notify.Rate.Driver = "memory"
	}
	if c.Notify.Rate.Window == 0 {
		c.Notify.Rate.Window = time.Minute
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = 587
	}
	if c.Notify.SMTP.TLS == "" {
		c.Notify.SMTP.TLS = "auto"
	}
	if c.Slack.BaseURL == "" {
		c.Slack.BaseURL = "https://slack.com/api"
	}
	if c.Slack.Timeout == 0 {
		c.Slack.Timeout = 10 * time.Second
	}
	if c.Slack.Tokens == nil {
		c.Slack.Tokens = map[string]string{}
	}
	if c.Profiles.DynamoDB.Table == "" {
		c.Profiles.DynamoDB.Table = "ParticipantProfiles"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides pisa el YAML con variables HELLOPAIR_*.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("HELLOPAIR_SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// STORAGE
	if v, ok := getEnvStr("HELLOPAIR_STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("HELLOPAIR_STORAGE_PATH"); ok {
		c.Storage.Path = v
	}
	if v, ok := getEnvStr("HELLOPAIR_PROFILES_DRIVER"); ok {
		c.Profiles.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("HELLOPAIR_DYNAMODB_TABLE"); ok {
		c.Profiles.DynamoDB.Table = v
	}
	if v, ok := getEnvStr("AWS_REGION"); ok && c.Profiles.DynamoDB.Region == "" {
		c.Profiles.DynamoDB.Region = v
	}

	// REDIS
	if v, ok := getEnvStr("HELLOPAIR_REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvInt("HELLOPAIR_REDIS_DB"); ok {
		c.Redis.DB = v
	}
	if v, ok := getEnvStr("HELLOPAIR_LOCK_DRIVER"); ok {
		c.Lock.Driver = strings.ToLower(v)
	}

	// MATCHING / SCHEDULER
	if v, ok := getEnvInt("HELLOPAIR_RETRY_BUDGET"); ok {
		c.Matching.RetryBudget = v
	}
	if v, ok := getEnvBool("HELLOPAIR_KEEP_OPTIN_AFTER_MATCH"); ok {
		c.Matching.KeepOptInAfterMatch = v
	}
	if v, ok := getEnvBool("HELLOPAIR_SCHEDULER_ENABLED"); ok {
		c.Scheduler.Enabled = v
	}
	if v, ok := getEnvDur("HELLOPAIR_SCHEDULER_INTERVAL"); ok {
		c.Scheduler.Interval = v
	}
	if v, ok := getEnvDur("HELLOPAIR_TENANT_TIMEOUT"); ok {
		c.Scheduler.TenantTimeout = v
	}
	if v, ok := getEnvInt("HELLOPAIR_SCHEDULER_CONCURRENCY"); ok {
		c.Scheduler.Concurrency = v
	}

	// DIRECTORY / NOTIFY
	if v, ok := getEnvStr("HELLOPAIR_DIRECTORY_DRIVER"); ok {
		c.Directory.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("HELLOPAIR_NOTIFY_DRIVER"); ok {
		c.Notify.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvBool("HELLOPAIR_WELCOME_ENABLED"); ok {
		c.Notify.WelcomeEnabled = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.Notify.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.Notify.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USER"); ok {
		c.Notify.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.Notify.SMTP.From = v
	}

	// TRACING
	if v, ok := getEnvStr("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		c.Tracing.Endpoint = v
		c.Tracing.Enabled = true
	}
}

var (
	validStorage   = map[string]bool{"memory": true, "postgres": true, "sqlite": true, "redis": true}
	validProfiles  = map[string]bool{"": true, "memory": true, "postgres": true, "sqlite": true, "redis": true, "dynamodb": true}
	validDirectory = map[string]bool{"slack": true, "profile": true, "static": true}
	validNotify    = map[string]bool{"slack": true, "smtp": true, "log": true}
	validLock      = map[string]bool{"memory": true, "redis": true}
)

// Validate verifica valores críticos.
func (c *Config) Validate() error {
	var errs []error
	if !validStorage[c.Storage.Driver] {
		errs = append(errs, fmt.Errorf("storage.driver %q no soportado", c.Storage.Driver))
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		errs = append(errs, errors.New("storage.dsn es requerido para postgres (o STORAGE_DSN)"))
	}
	if !validProfiles[c.Profiles.Driver] {
		errs = append(errs, fmt.Errorf("profiles.driver %q no soportado", c.Profiles.Driver))
	}
	if !validDirectory[c.Directory.Driver] {
		errs = append(errs, fmt.Errorf("directory.driver %q no soportado", c.Directory.Driver))
	}
	if !validNotify[c.Notify.Driver] {
		errs = append(errs, fmt.Errorf("notify.driver %q no soportado", c.Notify.Driver))
	}
	if !validLock[c.Lock.Driver] {
		errs = append(errs, fmt.Errorf("lock.driver %q no soportado", c.Lock.Driver))
	}
	if c.Notify.Driver == "smtp" && (c.Notify.SMTP.Host == "" || c.Notify.SMTP.From == "") {
		errs = append(errs, errors.New("notify.smtp.host y notify.smtp.from son requeridos para smtp"))
	}
	if c.Matching.RetryBudget < 0 {
		errs = append(errs, errors.New("matching.retry_budget no puede ser negativo"))
	}
	if c.Scheduler.Interval < time.Second {
		errs = append(errs, errors.New("scheduler.interval debe ser >= 1s"))
	}
	if c.Scheduler.Concurrency < 1 {
		errs = append(errs, errors.New("scheduler.concurrency debe ser >= 1"))
	}
	// El lock redis no se renueva: debe sobrevivir a la corrida más larga.
	if c.Lock.Driver == "redis" && c.Lock.TTL <= c.Scheduler.TenantTimeout {
		errs = append(errs, fmt.Errorf("lock.ttl (%s) debe ser mayor que scheduler.tenant_timeout (%s)",
			c.Lock.TTL, c.Scheduler.TenantTimeout))
	}
	return errors.Join(errs...)
}

// ProfilesDriver resuelve el driver efectivo del Profile Store.
func (c *Config) ProfilesDriver() string {
	if c.Profiles.Driver == "" {
		return c.Storage.Driver
	}
	return c.Profiles.Driver
}

// SlackToken retorna el token del workspace del tenant o el default.
func (c *Config) SlackToken(tenant string) string {
	if t, ok := c.Slack.Tokens[tenant]; ok && t != "" {
		return t
	}
	return c.Secrets.SlackBotToken
}
