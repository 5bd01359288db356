package uci

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultReadyTimeout = 4 * time.Second

var (
	ErrEngineInit     = errors.New("uci: engine initialization failed")
	ErrEngineNotReady = errors.New("uci: engine not ready")
	ErrEngineTimeout  = errors.New("uci: engine timed out")
	ErrSuperseded     = errors.New("uci: request superseded")
	ErrNoBestMove     = errors.New("uci: engine returned no move")
)

type Config struct {
	Dial         Dialer
	EloCap       int
	ReadyTimeout time.Duration
	Logger       *zap.Logger
}

// HandleInfo describes the live engine handle.
type HandleInfo struct {
	BotID  string
	Rating int
	Ready  bool
}

type handle struct {
	conn   *conn
	botID  string
	rating int
}

// Adapter owns at most one live engine handle. Configure replaces it; every
// search runs against whichever handle is current when it is issued.
type Adapter struct {
	dial         Dialer
	eloCap       int
	readyTimeout time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	handle   *handle
	inflight *request
}

func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Dial == nil {
		return nil, fmt.Errorf("engine dialer is required")
	}
	if cfg.EloCap <= 0 {
		cfg.EloCap = DefaultEloCap
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Adapter{
		dial:         cfg.Dial,
		eloCap:       cfg.EloCap,
		readyTimeout: cfg.ReadyTimeout,
		logger:       cfg.Logger,
	}, nil
}

// Configure tears down the current handle and brings up a new one tuned for
// rating. It returns once the engine answers readyok. On failure no handle is
// left live.
func (a *Adapter) Configure(ctx context.Context, rating int, botID string) error {
	opt := OptionsForRating(rating, a.eloCap)
	if err := validateOptions(opt); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineInit, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.teardownLocked()

	t, err := a.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: dial: %v", ErrEngineInit, err)
	}
	c := newConn(t, a.logger)

	initCtx, cancel := context.WithTimeout(ctx, a.readyTimeout)
	defer cancel()
	if err := handshake(initCtx, c, opt); err != nil {
		c.close()
		a.logger.Warn("engine init failed",
			zap.Error(err),
			zap.String("bot_id", botID),
			zap.Int("rating", rating),
		)
		return fmt.Errorf("%w: %v", ErrEngineInit, err)
	}

	a.handle = &handle{conn: c, botID: botID, rating: rating}
	a.logger.Info("engine configured",
		zap.String("bot_id", botID),
		zap.Int("rating", rating),
		zap.Int("skill_level", opt.SkillLevel),
		zap.Int("uci_elo", opt.Elo),
	)
	return nil
}

func handshake(ctx context.Context, c *conn, opt Options) error {
	r, err := c.send(ctx, replyUCIOK, "uci")
	if err != nil {
		return err
	}
	if _, err := c.await(ctx, r); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	if err := c.write(ctx, append([]string{"ucinewgame"}, opt.commands()...)...); err != nil {
		return fmt.Errorf("apply options: %w", err)
	}
	r, err = c.send(ctx, replyReadyOK, "isready")
	if err != nil {
		return err
	}
	if _, err := c.await(ctx, r); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// Current reports the live handle, if any.
func (a *Adapter) Current() (HandleInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handle == nil {
		return HandleInfo{}, false
	}
	return HandleInfo{BotID: a.handle.botID, Rating: a.handle.rating, Ready: true}, true
}

// RequestBestMove asks the engine for a move in fen. A request still waiting
// when a new one is issued fails with ErrSuperseded and its late answer is
// discarded. budget <= 0 selects a default derived from the think time.
func (a *Adapter) RequestBestMove(ctx context.Context, fen string, budget time.Duration) (string, error) {
	a.mu.Lock()
	h := a.handle
	if h == nil {
		a.mu.Unlock()
		return "", ErrEngineNotReady
	}
	if prev := a.inflight; prev != nil {
		h.conn.abandon(prev, ErrSuperseded)
		if err := h.conn.write(ctx, "stop"); err != nil {
			a.logger.Debug("send stop failed", zap.Error(err))
		}
	}

	think := ThinkTime(h.rating)
	goCmd, err := buildGoCommand(0, think)
	if err != nil {
		a.mu.Unlock()
		return "", err
	}
	r, err := h.conn.send(ctx, replyBestMove, buildPositionCommand(fen), goCmd)
	if err != nil {
		a.mu.Unlock()
		return "", fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}
	a.inflight = r
	a.mu.Unlock()

	if budget <= 0 {
		budget = searchTimeout(0, think)
	}
	rep, err := a.wait(ctx, h, r, budget)
	a.mu.Lock()
	if a.inflight == r {
		a.inflight = nil
	}
	a.mu.Unlock()
	if err != nil {
		return "", err
	}

	move, ok := parseBestMove(rep.line)
	if !ok {
		return "", ErrNoBestMove
	}
	return move, nil
}

// Evaluate runs a fixed-depth search and returns the final centipawn score
// from the side to move's point of view.
func (a *Adapter) Evaluate(ctx context.Context, fen string) (int, error) {
	a.mu.Lock()
	h := a.handle
	a.mu.Unlock()
	if h == nil {
		return 0, ErrEngineNotReady
	}
	goCmd, err := buildGoCommand(evaluationDepth, 0)
	if err != nil {
		return 0, err
	}
	r, err := h.conn.send(ctx, replyBestMove, buildPositionCommand(fen), goCmd)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}
	rep, err := a.wait(ctx, h, r, searchTimeout(evaluationDepth, 0))
	if err != nil {
		return 0, err
	}
	if !rep.hasScore {
		return 0, fmt.Errorf("engine reported no score")
	}
	return rep.evalCP, nil
}

func (a *Adapter) wait(ctx context.Context, h *handle, r *request, budget time.Duration) (reply, error) {
	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	rep, err := h.conn.await(waitCtx, r)
	if err == nil {
		return rep, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		if werr := h.conn.write(context.Background(), "stop"); werr != nil {
			a.logger.Debug("send stop failed", zap.Error(werr))
		}
		return reply{}, ErrEngineTimeout
	}
	return reply{}, err
}

// Shutdown releases the live handle. Safe to call repeatedly.
func (a *Adapter) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.teardownLocked()
}

func (a *Adapter) teardownLocked() {
	if a.handle == nil {
		return
	}
	h := a.handle
	a.handle = nil
	a.inflight = nil
	if err := h.conn.write(context.Background(), "quit"); err != nil {
		a.logger.Debug("send quit failed", zap.Error(err))
	}
	h.conn.close()
	a.logger.Debug("engine handle released", zap.String("bot_id", h.botID))
}
