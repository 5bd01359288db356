package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	// Engine transport: a local binary or a remote websocket bridge.
	StockfishPath string
	EngineWSURL   string
	EngineEloCap  int
	ReadyTimeout  time.Duration

	BotDelay         time.Duration
	DefaultBot       string
	BotsFile         string
	PolyglotBookPath string
	StrictEngine     bool
	CheckpointTTLSec int

	RedisURL    string
	DatabaseURL string

	CoachAPIURL  string
	CoachAPIKey  string
	CoachModel   string
	CoachTimeout time.Duration

	PlayerID       string
	MsgOverrideDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EngineEloCap:     1500,
		ReadyTimeout:     4 * time.Second,
		BotDelay:         500 * time.Millisecond,
		DefaultBot:       "training-bot",
		CheckpointTTLSec: 86400,
		CoachModel:       "gpt-4o-mini",
		CoachTimeout:     30 * time.Second,
		PlayerID:         "local",
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	cfg.EngineWSURL = strings.TrimSpace(os.Getenv("ENGINE_WS_URL"))
	if v := strings.TrimSpace(os.Getenv("ENGINE_ELO_CAP")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineEloCap = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_READY_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReadyTimeout = time.Duration(n) * time.Millisecond
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHESS_BOT_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.BotDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DEFAULT_BOT")); v != "" {
		cfg.DefaultBot = v
	}
	cfg.BotsFile = strings.TrimSpace(os.Getenv("CHESS_BOTS_FILE"))
	cfg.PolyglotBookPath = strings.TrimSpace(os.Getenv("CHESS_POLYGLOT_BOOK_PATH"))
	if v := strings.TrimSpace(os.Getenv("CHESS_STRICT_ENGINE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictEngine = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("CALIBRATION_CHECKPOINT_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CheckpointTTLSec = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.CoachAPIURL = strings.TrimSpace(os.Getenv("COACH_API_URL"))
	cfg.CoachAPIKey = strings.TrimSpace(os.Getenv("COACH_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("COACH_MODEL")); v != "" {
		cfg.CoachModel = v
	}
	if v := strings.TrimSpace(os.Getenv("COACH_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CoachTimeout = time.Duration(n) * time.Millisecond
		}
	}

	if v := strings.TrimSpace(os.Getenv("PLAYER_ID")); v != "" {
		cfg.PlayerID = v
	}
	cfg.MsgOverrideDir = strings.TrimSpace(os.Getenv("MSG_OVERRIDE_DIR"))

	if cfg.StockfishPath == "" && cfg.EngineWSURL == "" {
		return nil, errors.New("STOCKFISH_PATH or ENGINE_WS_URL is required")
	}
	return cfg, nil
}

// CoachEnabled reports whether coaching requests can be sent.
func (c *AppConfig) CoachEnabled() bool {
	return c != nil && c.CoachAPIKey != ""
}
