package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/texperia/registration/models"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string        `env:"DATABASE_URL,required,notEmpty"`
	JWTSecretKey string        `env:"JWT_SECRET_KEY,required,notEmpty"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	ServerPort   int           `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	FrontendURL   string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	ProductionURL string `env:"PRODUCTION_URL"`

	RegistrationDeadline string `env:"REGISTRATION_DEADLINE" envDefault:"2026-03-15T23:59:59"`

	SuperAdmins      []string `env:"SUPER_ADMINS" envSeparator:","`
	ComicStripAdmins []string `env:"COMIC_STRIP_ADMINS" envSeparator:","`
	PromptIdolAdmins []string `env:"PROMPT_IDOL_ADMINS" envSeparator:","`
	AIBlitzAdmins    []string `env:"AI_BLITZ_ADMINS" envSeparator:","`

	EventFees      map[string]int64  `env:"EVENT_FEES" envSeparator:"," envKeyValSeparator:":" envDefault:"comic_strip:250,prompt_idol:200,ai_blitz:300"`
	EventTeamSizes map[string]string `env:"EVENT_TEAM_SIZES" envSeparator:"," envKeyValSeparator:":" envDefault:"comic_strip:1-3,prompt_idol:1-2,ai_blitz:4-4"`

	SMTPHost       string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser       string `env:"SMTP_USER"`
	SMTPPass       string `env:"SMTP_PASSWORD"`
	SMTPFrom       string `env:"SMTP_FROM"`
	SMTPSenderName string `env:"SMTP_SENDER_NAME" envDefault:"TEXPERIA 2026"`
	AdminEmail     string `env:"ADMIN_EMAIL"`

	NotifyQueueSize int `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	NotifyWorkers   int `env:"NOTIFY_WORKERS" envDefault:"2"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`

	RedisURL string `env:"REDIS_URL"`

	// Используется только cmd/createadmin.
	AdminPasswords map[string]string `env:"ADMIN_PASSWORDS" envSeparator:"," envKeyValSeparator:":"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.NotifyQueueSize <= 0 || c.NotifyWorkers <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE and NOTIFY_WORKERS must be positive")
	}
	if _, err := c.EventCatalog(); err != nil {
		return err
	}
	return nil
}

// EventAdmins returns the per-event admin lists keyed by event.
func (c *Config) EventAdmins() map[models.EventID][]string {
	return map[models.EventID][]string{
		models.EventComicStrip: c.ComicStripAdmins,
		models.EventPromptIdol: c.PromptIdolAdmins,
		models.EventAIBlitz:    c.AIBlitzAdmins,
	}
}

// EventCatalog merges EVENT_FEES and EVENT_TEAM_SIZES over the built-in
// defaults. Unknown event keys are rejected.
func (c *Config) EventCatalog() (models.EventCatalog, error) {
	events := models.DefaultEvents()
	index := make(map[models.EventID]int, len(events))
	for i, ev := range events {
		index[ev.ID] = i
	}

	for key, fee := range c.EventFees {
		i, ok := index[models.EventID(strings.TrimSpace(key))]
		if !ok {
			return models.EventCatalog{}, fmt.Errorf("EVENT_FEES: unknown event %q", key)
		}
		events[i].FeePerHead = fee
	}

	for key, raw := range c.EventTeamSizes {
		i, ok := index[models.EventID(strings.TrimSpace(key))]
		if !ok {
			return models.EventCatalog{}, fmt.Errorf("EVENT_TEAM_SIZES: unknown event %q", key)
		}
		minMembers, maxMembers, err := parseSizeRange(raw)
		if err != nil {
			return models.EventCatalog{}, fmt.Errorf("EVENT_TEAM_SIZES %s: %w", key, err)
		}
		events[i].MinMembers = minMembers
		events[i].MaxMembers = maxMembers
	}

	return models.NewEventCatalog(events)
}

// AllowedOrigins returns the CORS origin list: the configured frontend, the
// usual local dev servers and the production URL when set.
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0, 8)
	if c.FrontendURL != "" {
		origins = append(origins, c.FrontendURL)
	}
	origins = append(origins,
		"http://localhost:5173",
		"http://localhost:5174",
		"http://localhost:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:5174",
		"http://127.0.0.1:3000",
	)
	if c.ProductionURL != "" {
		origins = append(origins, c.ProductionURL)
	}
	return origins
}

func (c *Config) StorageConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func (c *Config) SMTPConfigured() bool {
	return c.SMTPUser != "" && c.SMTPPass != ""
}

func parseSizeRange(raw string) (int, int, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(raw), "-")
	if !found {
		hi = lo
	}
	minMembers, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minimum %q: %w", lo, err)
	}
	maxMembers, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid maximum %q: %w", hi, err)
	}
	return minMembers, maxMembers, nil
}
