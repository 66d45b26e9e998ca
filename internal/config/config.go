package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ShowdownWSURL    string
	ShowdownLoginURL string
	Username         string
	Password         string

	BotPrefix string
	Rooms     []string

	LadderBaseURL string

	TickInterval time.Duration
	PullTimeout  time.Duration
	SendInterval time.Duration
	DeadlineLead time.Duration
	DryRun       bool

	RedisURL       string
	LadderCacheTTL time.Duration
	DatabaseURL    string
	MessagesDir    string

	DefaultFormat string
	DefaultPrefix string
	DefaultRating int
	TopSize       int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ShowdownWSURL:    "wss://sim3.psim.us/showdown/websocket",
		ShowdownLoginURL: "https://play.pokemonshowdown.com/api/login",
		BotPrefix:        ".",
		LadderBaseURL:    "https://pokemonshowdown.com/ladder",
		TickInterval:     time.Second,
		PullTimeout:      5 * time.Second,
		SendInterval:     600 * time.Millisecond,
		DeadlineLead:     2 * time.Second,
		LadderCacheTTL:   time.Second,
		TopSize:          10,
	}

	if v := env("SHOWDOWN_WS_URL"); v != "" {
		cfg.ShowdownWSURL = v
	}
	if v := env("SHOWDOWN_LOGIN_URL"); v != "" {
		cfg.ShowdownLoginURL = v
	}
	cfg.Username = env("SHOWDOWN_USERNAME")
	cfg.Password = os.Getenv("SHOWDOWN_PASSWORD")

	if v := env("BOT_PREFIX"); v != "" {
		cfg.BotPrefix = v
	}
	cfg.Rooms = splitList(env("ROOMS"))

	if v := env("LADDER_BASE_URL"); v != "" {
		cfg.LadderBaseURL = strings.TrimRight(v, "/")
	}

	cfg.TickInterval = envDuration("TICK_INTERVAL", cfg.TickInterval)
	cfg.PullTimeout = envDuration("PULL_TIMEOUT", cfg.PullTimeout)
	cfg.SendInterval = envDuration("SEND_INTERVAL", cfg.SendInterval)
	cfg.DeadlineLead = envDuration("DEADLINE_LEAD", cfg.DeadlineLead)
	cfg.DryRun = envBool("DRY_RUN", false)

	cfg.RedisURL = env("REDIS_URL")
	cfg.LadderCacheTTL = envDuration("LADDER_CACHE_TTL", cfg.LadderCacheTTL)
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.MessagesDir = env("MESSAGES_DIR")

	cfg.DefaultFormat = env("DEFAULT_FORMAT")
	cfg.DefaultPrefix = env("DEFAULT_PREFIX")
	if v := env("DEFAULT_RATING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DefaultRating = n
		}
	}
	if v := env("TOP_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopSize = n
		}
	}

	if cfg.Username == "" {
		return nil, errors.New("SHOWDOWN_USERNAME is required")
	}
	if len(cfg.Rooms) == 0 {
		return nil, errors.New("ROOMS is required")
	}
	return cfg, nil
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func envBool(k string, def bool) bool {
	v := env(k)
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}

// envDuration accepts Go durations ("750ms") or whole seconds ("2").
func envDuration(k string, def time.Duration) time.Duration {
	v := env(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
