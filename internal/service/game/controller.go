package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-trainer/internal/chess"
	"github.com/park285/cheese-trainer/internal/chess/rules"
)

const DefaultBotDelay = 500 * time.Millisecond

var (
	ErrIllegalMove   = errors.New("game: illegal move")
	ErrNoBotSelected = errors.New("game: no bot selected")
	ErrResigned      = errors.New("game: player resigned")
	ErrSessionReset  = errors.New("game: session was reset")
)

// MovePolicy picks the bot's move.
type MovePolicy interface {
	SelectMove(ctx context.Context, pos chess.Position, profile chess.BotProfile, opts ...chess.SelectOption) (chess.Selection, error)
}

// EngineConfigurer prepares the engine for a bot.
type EngineConfigurer interface {
	Configure(ctx context.Context, rating int, botID string) error
}

type Config struct {
	Rules  rules.Engine
	Policy MovePolicy
	// Engine may be nil when only random bots are played.
	Engine   EngineConfigurer
	BotDelay time.Duration
	// StrictEngine turns engine failures into errors instead of random fallback moves.
	StrictEngine bool
	Seed         int64
	Logger       *zap.Logger
	Now          func() time.Time
}

// Controller runs the turn state machine of one game at a time.
type Controller struct {
	rules    rules.Engine
	policy   MovePolicy
	engine   EngineConfigurer
	botDelay time.Duration
	strict   bool
	logger   *zap.Logger
	now      func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	mu       sync.Mutex
	session  Session
	profile  chess.BotProfile
	selected bool
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Rules == nil {
		return nil, fmt.Errorf("rules engine is required")
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("move policy is required")
	}
	if cfg.BotDelay < 0 {
		cfg.BotDelay = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Controller{
		rules:    cfg.Rules,
		policy:   cfg.Policy,
		engine:   cfg.Engine,
		botDelay: cfg.BotDelay,
		strict:   cfg.StrictEngine,
		logger:   cfg.Logger,
		now:      cfg.Now,
		rand:     rand.New(rand.NewSource(seed)),
	}, nil
}

// SelectBot activates profile, reconfiguring the engine for every profile that
// may consult it, and starts a fresh game. color pins the player's side; nil
// defers to the profile or a coin flip.
func (c *Controller) SelectBot(ctx context.Context, profile chess.BotProfile, color *rules.Color) (Session, error) {
	if err := profile.Validate(); err != nil {
		return Session{}, err
	}
	if profile.Source != chess.SourceRandom && c.engine != nil {
		if err := c.engine.Configure(ctx, profile.EngineRating(), profile.ID); err != nil {
			return Session{}, fmt.Errorf("configure engine for %s: %w", profile.ID, err)
		}
	}

	c.mu.Lock()
	c.profile = profile
	c.selected = true
	c.mu.Unlock()

	c.logger.Info("bot selected",
		zap.String("bot_id", profile.ID),
		zap.Int("rating", profile.EngineRating()),
	)
	return c.Reset(color)
}

// Reset discards the current game and starts a new one against the selected bot.
func (c *Controller) Reset(color *rules.Color) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selected {
		return Session{}, ErrNoBotSelected
	}
	player := c.assignColorLocked(color)
	c.session = newSession(uuid.NewString(), c.profile.ID, player, rules.StartFEN, rules.White, c.now())
	return c.session.clone(), nil
}

// ResetFromFEN starts a new game from an arbitrary position.
func (c *Controller) ResetFromFEN(fen string, color *rules.Color) (Session, error) {
	side, err := c.rules.SideToMove(fen)
	if err != nil {
		return Session{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selected {
		return Session{}, ErrNoBotSelected
	}
	player := c.assignColorLocked(color)
	c.session = newSession(uuid.NewString(), c.profile.ID, player, fen, side, c.now())
	return c.session.clone(), nil
}

func (c *Controller) assignColorLocked(color *rules.Color) rules.Color {
	if color != nil {
		return *color
	}
	if pinned, ok := c.profile.PlayerColor(); ok {
		return pinned
	}
	c.randMu.Lock()
	defer c.randMu.Unlock()
	if c.rand.Intn(2) == 0 {
		return rules.White
	}
	return rules.Black
}

// Session returns a copy of the current game.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

func (c *Controller) Profile() (chess.BotProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile, c.selected
}

// ApplyPlayerMove plays the human's move. Rejected moves leave the game untouched.
func (c *Controller) ApplyPlayerMove(move string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selected {
		return Session{}, ErrNoBotSelected
	}
	s := c.session
	if s.State != AwaitingPlayerMove {
		return s.clone(), fmt.Errorf("%w: not the player's turn", ErrIllegalMove)
	}

	legal, err := c.rules.LegalMoves(s.FEN)
	if err != nil {
		return s.clone(), fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if len(legal) == 0 {
		return s.clone(), fmt.Errorf("%w: no legal moves", ErrIllegalMove)
	}

	if from, ok := uciFromSquare(move); ok {
		color, occupied, err := c.rules.PieceAt(s.FEN, from)
		if err != nil || !occupied || color != s.PlayerColor {
			return s.clone(), fmt.Errorf("%w: no %s piece on %s", ErrIllegalMove, s.PlayerColor, from)
		}
	}

	applied, err := c.rules.Apply(s.FEN, move, s.priorPositions())
	if err != nil {
		return s.clone(), fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if applied.Mover != s.PlayerColor {
		return s.clone(), fmt.Errorf("%w: piece does not belong to the player", ErrIllegalMove)
	}

	c.session = advance(s, applied, c.now())
	c.logTerminal()
	return c.session.clone(), nil
}

// RequestBotMove plays the bot's move. It is a no-op unless the bot is to move.
func (c *Controller) RequestBotMove(ctx context.Context) (Session, chess.Selection, error) {
	c.mu.Lock()
	if !c.selected {
		c.mu.Unlock()
		return Session{}, chess.Selection{}, ErrNoBotSelected
	}
	s := c.session.clone()
	profile := c.profile
	c.mu.Unlock()

	if s.State != AwaitingBotMove {
		return s, chess.Selection{}, nil
	}

	if c.botDelay > 0 {
		timer := time.NewTimer(c.botDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return s, chess.Selection{}, ctx.Err()
		case <-timer.C:
		}
	}

	var opts []chess.SelectOption
	if c.strict {
		opts = append(opts, chess.WithoutFallback())
	}
	sel, err := c.policy.SelectMove(ctx, chess.Position{FEN: s.FEN, Moves: s.Moves}, profile, opts...)
	if err != nil {
		return s, chess.Selection{}, fmt.Errorf("select bot move: %w", err)
	}
	applied, err := c.rules.Apply(s.FEN, sel.Move, s.priorPositions())
	if err != nil {
		return s, sel, fmt.Errorf("apply bot move %q: %w", sel.Move, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.ID != s.ID || len(c.session.Moves) != len(s.Moves) {
		return c.session.clone(), sel, ErrSessionReset
	}
	c.session = advance(c.session, applied, c.now())
	c.logger.Debug("bot moved",
		zap.String("session_id", s.ID),
		zap.String("bot_id", profile.ID),
		zap.String("move", applied.UCI),
		zap.String("source", string(sel.Source)),
	)
	c.logTerminal()
	return c.session.clone(), sel, nil
}

// Resign ends the current game as a loss for the player.
func (c *Controller) Resign() (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selected {
		return Session{}, ErrNoBotSelected
	}
	if c.session.State != Terminated {
		c.session = resign(c.session, c.now())
	}
	return c.session.clone(), nil
}

func (c *Controller) logTerminal() {
	if c.session.State != Terminated {
		return
	}
	c.logger.Info("game finished",
		zap.String("session_id", c.session.ID),
		zap.String("bot_id", c.session.BotID),
		zap.String("status", string(c.session.Status)),
		zap.String("winner", string(c.session.Winner)),
		zap.Int("plies", len(c.session.Moves)),
	)
}

// uciFromSquare returns the origin square of a coordinate-notation move.
func uciFromSquare(move string) (string, bool) {
	m := strings.ToLower(strings.TrimSpace(move))
	if !rules.IsCoordinateMove(m) {
		return "", false
	}
	return m[0:2], true
}
