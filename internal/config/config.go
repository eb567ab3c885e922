package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/draft"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/prompt"
)

// Config is the process configuration, read from the environment
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"3000"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"50051"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE" envDefault:"kokoloko.log"`

	// Draft rules
	MaxPoints     int             `env:"MAX_POINTS" envDefault:"1200"`
	TotalPicks    int             `env:"TOTAL_PICKS" envDefault:"10"`
	MaxRerolls    int             `env:"MAX_REROLLS" envDefault:"10"`
	MinTierCost   int             `env:"MIN_TIER_COST" envDefault:"20"`
	TierProbs     map[int]float64 `env:"TIER_PROBS" envKeyValSeparator:":" envDefault:"300:0.5,260:1,240:1.5,220:3,200:7.5,180:10,160:12.25,140:15,120:15,100:12.25,80:10,60:7,40:3,20:2"`
	PityPickIndex int             `env:"PITY_PICK_INDEX" envDefault:"5"`
	FakeOutChance float64         `env:"FAKE_OUT_CHANCE" envDefault:"0.32"`
	AutoMode      models.AutoMode `env:"AUTO_MODE" envDefault:"interactive"`
	DummyCount    int             `env:"DUMMY_COUNT" envDefault:"16"`
	DraftSeed     uint64          `env:"DRAFT_SEED"`

	// Prompts and pacing
	RollTimeoutSeconds     int           `env:"ROLL_TIMEOUT_SECONDS" envDefault:"60"`
	DecisionTimeoutSeconds int           `env:"DECISION_TIMEOUT_SECONDS" envDefault:"60"`
	ActionsPerSecond       float64       `env:"ACTIONS_PER_SECOND" envDefault:"4"`
	ActionBurst            int           `env:"ACTION_BURST" envDefault:"4"`
	PacingScale            float64       `env:"PACING_SCALE" envDefault:"1"`
	TransportMaxRetries    int           `env:"TRANSPORT_MAX_RETRIES" envDefault:"3"`
	TransportRetryBackoff  time.Duration `env:"TRANSPORT_RETRY_BACKOFF" envDefault:"5s"`

	// Staff
	StaffRoleName string   `env:"STAFF_ROLE_NAME" envDefault:"NPO-Draft Staff"`
	StaffIDs      []string `env:"STAFF_IDS" envSeparator:","`

	// Storage
	DBDriver    string `env:"DB_DRIVER" envDefault:"memory"`
	SQLiteFile  string `env:"SQLITE_FILE" envDefault:"dev.sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	CatalogCSV  string `env:"CATALOG_CSV"`

	// Messaging
	NATSURL     string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"draft.events"`

	// Analytics
	ClickHouseAddr     string `env:"CLICKHOUSE_ADDR" envDefault:"localhost:9000"`
	ClickHouseDB       string `env:"CLICKHOUSE_DB" envDefault:"default"`
	ClickHouseUser     string `env:"CLICKHOUSE_USER" envDefault:"default"`
	ClickHousePassword string `env:"CLICKHOUSE_PASSWORD"`

	// Authentik OAuth2
	AuthentikBaseURL      string `env:"AUTHENTIK_BASE_URL"`
	AuthentikClientID     string `env:"AUTHENTIK_CLIENT_ID"`
	AuthentikClientSecret string `env:"AUTHENTIK_CLIENT_SECRET"`
	AuthentikRedirectURL  string `env:"AUTHENTIK_REDIRECT_URL" envDefault:"http://localhost:3000/auth/callback"`
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment only
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Development reports whether local stand-ins should replace external services
func (c Config) Development() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Rules builds and validates the draft rule set
func (c Config) Rules() (draft.Rules, error) {
	r := draft.Rules{
		MaxPoints:     c.MaxPoints,
		TotalPicks:    c.TotalPicks,
		MaxRerolls:    c.MaxRerolls,
		MinTierCost:   c.MinTierCost,
		TierProbs:     c.TierProbs,
		PityPickIndex: c.PityPickIndex,
		FakeOutChance: c.FakeOutChance,
	}
	if err := r.Validate(); err != nil {
		return draft.Rules{}, err
	}
	return r, nil
}

// Pacing scales the default delays; 0 turns them off
func (c Config) Pacing() draft.Pacing {
	p := draft.DefaultPacing()
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * c.PacingScale)
	}
	return draft.Pacing{
		Turn:          scale(p.Turn),
		Round:         scale(p.Round),
		PublicPick:    scale(p.PublicPick),
		SilentPick:    scale(p.SilentPick),
		FakeOutReveal: scale(p.FakeOutReveal),
		FakeOutPause:  scale(p.FakeOutPause),
	}
}

func (c Config) Retry() draft.RetryPolicy {
	return draft.RetryPolicy{MaxRetries: c.TransportMaxRetries, Backoff: c.TransportRetryBackoff}
}

func (c Config) PromptOptions() prompt.Options {
	limit := rate.Inf
	if c.ActionsPerSecond > 0 {
		limit = rate.Limit(c.ActionsPerSecond)
	}
	return prompt.Options{
		RollTimeout:     time.Duration(c.RollTimeoutSeconds) * time.Second,
		DecisionTimeout: time.Duration(c.DecisionTimeoutSeconds) * time.Second,
		Rate:            limit,
		Burst:           max(c.ActionBurst, 1),
	}
}
