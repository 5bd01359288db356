// Package app wires the trainer's components from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-trainer/internal/chess"
	"github.com/park285/cheese-trainer/internal/chess/openingbook"
	"github.com/park285/cheese-trainer/internal/chess/rules"
	"github.com/park285/cheese-trainer/internal/chess/uci"
	"github.com/park285/cheese-trainer/internal/coach"
	"github.com/park285/cheese-trainer/internal/config"
	"github.com/park285/cheese-trainer/internal/msgcat"
	"github.com/park285/cheese-trainer/internal/obslog"
	"github.com/park285/cheese-trainer/internal/service/cache"
	"github.com/park285/cheese-trainer/internal/service/calibration"
	"github.com/park285/cheese-trainer/internal/service/game"
	"github.com/park285/cheese-trainer/internal/service/store"
)

type Deps struct {
	Config     *config.AppConfig
	Messages   *msgcat.Catalog
	Rules      rules.Standard
	Book       *openingbook.Book
	Engine     *uci.Adapter
	Catalog    *chess.Catalog
	Policy     *chess.Policy
	Controller *game.Controller
	// CalibrationGames always runs with StrictEngine so an engine failure
	// aborts the run instead of playing a random move.
	CalibrationGames *game.Controller
	Calibrator       *calibration.Calibrator
	// Coach is nil when no API key is configured.
	Coach *coach.Coach
	// Cache is nil without REDIS_URL.
	Cache *cache.CacheService
	Repo  store.Repository

	db     *sql.DB
	logger *zap.Logger
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{Config: cfg, Rules: rules.NewStandard(), logger: logger}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	msgs, err := msgcat.New(cfg.MsgOverrideDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Messages = msgs

	// Engine
	var dial uci.Dialer
	switch {
	case strings.TrimSpace(cfg.StockfishPath) != "":
		dial = uci.ProcessDialer(cfg.StockfishPath)
	case strings.TrimSpace(cfg.EngineWSURL) != "":
		dial = uci.WebSocketDialer(cfg.EngineWSURL, nil)
	default:
		return nil, fmt.Errorf("STOCKFISH_PATH or ENGINE_WS_URL is required for the engine")
	}
	d.Engine, err = uci.NewAdapter(uci.Config{
		Dial:         dial,
		EloCap:       cfg.EngineEloCap,
		ReadyTimeout: cfg.ReadyTimeout,
		Logger:       obslog.For(logger, obslog.Engine),
	})
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	d.Book, err = openingbook.New(openingbook.DefaultLines(), cfg.PolyglotBookPath)
	if err != nil {
		return nil, fmt.Errorf("init opening book: %w", err)
	}

	// Cache (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		cconf, perr := cache.ParseRedisURL(cfg.RedisURL)
		if perr != nil {
			return nil, fmt.Errorf("parse redis url: %w", perr)
		}
		d.Cache, err = cache.NewCacheService(*cconf, obslog.For(logger, obslog.Cache))
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
	}

	// Repository (PostgreSQL optional, in-memory otherwise)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		d.db, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx, d.db); err != nil {
			return nil, err
		}
		d.Repo = store.NewRepository(d.db)
	} else {
		logger.Info("DATABASE_URL not set, keeping games in memory")
		d.Repo = store.NewMemoryRepository()
	}

	presets := chess.DefaultPresets()
	if cfg.BotsFile != "" {
		presets, err = chess.LoadPresetFile(cfg.BotsFile)
		if err != nil {
			return nil, err
		}
	}
	d.Catalog, err = chess.NewCatalog(presets)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	writer, err := d.Catalog.ClaimWriter()
	if err != nil {
		return nil, err
	}
	restorePersonalized(ctx, d.Repo, writer, cfg.PlayerID, logger)

	d.Policy, err = chess.NewPolicy(chess.PolicyConfig{
		Engine: d.Engine,
		Rules:  d.Rules,
		Book:   d.Book,
		Logger: obslog.For(logger, obslog.Policy),
	})
	if err != nil {
		return nil, err
	}
	d.Controller, err = game.NewController(game.Config{
		Rules:        d.Rules,
		Policy:       d.Policy,
		Engine:       d.Engine,
		BotDelay:     cfg.BotDelay,
		StrictEngine: cfg.StrictEngine,
		Logger:       obslog.For(logger, obslog.Game),
	})
	if err != nil {
		return nil, err
	}

	d.CalibrationGames, err = game.NewController(game.Config{
		Rules:        d.Rules,
		Policy:       d.Policy,
		Engine:       d.Engine,
		BotDelay:     cfg.BotDelay,
		StrictEngine: true,
		Logger:       obslog.For(logger, obslog.Calibration).Named(obslog.Game),
	})
	if err != nil {
		return nil, err
	}

	calCfg := calibration.Config{
		Games:         d.CalibrationGames,
		Writer:        writer,
		Engine:        d.Engine,
		Repo:          d.Repo,
		Messages:      d.Messages,
		CheckpointTTL: time.Duration(cfg.CheckpointTTLSec) * time.Second,
		Logger:        obslog.For(logger, obslog.Calibration),
	}
	if d.Cache != nil {
		calCfg.Cache = d.Cache
	}
	d.Calibrator, err = calibration.New(calCfg)
	if err != nil {
		return nil, err
	}

	if cfg.CoachEnabled() {
		d.Coach = coach.New(coach.Config{
			BaseURL:   cfg.CoachAPIURL,
			APIKey:    cfg.CoachAPIKey,
			Model:     cfg.CoachModel,
			Timeout:   cfg.CoachTimeout,
			Evaluator: d.Engine,
			Openings:  d.Book,
			Messages:  d.Messages,
			Logger:    obslog.For(logger, obslog.Coach),
		})
	}

	ok = true
	return d, nil
}

// restorePersonalized re-registers bots produced by earlier calibration runs.
func restorePersonalized(ctx context.Context, repo store.Repository, writer *chess.CatalogWriter, playerID string, logger *zap.Logger) {
	bots, err := repo.ListPersonalizedBots(ctx, playerID)
	if err != nil {
		logger.Warn("load personalized bots failed", zap.Error(err))
		return
	}
	for _, b := range bots {
		err := writer.Append(chess.BotProfile{
			ID:           b.BotID,
			Name:         b.Name,
			Label:        b.Label,
			Source:       chess.SourceEngine,
			Rating:       chess.Rating(b.Rating),
			Personalized: true,
		})
		if err != nil && !errors.Is(err, chess.ErrDuplicateBot) {
			logger.Warn("restore personalized bot failed", zap.String("bot_id", b.BotID), zap.Error(err))
		}
	}
}

// Close releases the engine, cache and database handles.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Engine != nil {
		d.Engine.Shutdown()
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.logger.Warn("close cache", zap.Error(err))
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			d.logger.Warn("close database", zap.Error(err))
		}
	}
}
