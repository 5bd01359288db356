package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-trainer/internal/chess/openingbook"
)

var (
	ErrNoMoveFound = errors.New("chess: no legal move available")
	errNoEngine    = errors.New("chess: no engine attached")
)

// BestMover is the engine side of move selection.
type BestMover interface {
	RequestBestMove(ctx context.Context, fen string, budget time.Duration) (string, error)
}

// MoveLister lists legal moves in UCI notation.
type MoveLister interface {
	LegalMoves(fen string) ([]string, error)
}

// Position is what the policy needs to know about the game.
type Position struct {
	FEN string
	// Moves are the UCI moves played from the initial position.
	Moves []string
}

type SelectionSource string

const (
	SelectedBook      SelectionSource = "book"
	SelectedEngine    SelectionSource = "engine"
	SelectedRandom    SelectionSource = "random"
	SelectedDeviation SelectionSource = "deviation"
	SelectedFallback  SelectionSource = "fallback"
)

type Selection struct {
	Move   string
	Source SelectionSource
}

type PolicyConfig struct {
	Engine BestMover
	Rules  MoveLister
	Book   *openingbook.Book
	// Budget bounds a single engine request. Zero lets the engine pick.
	Budget time.Duration
	Seed   int64
	Logger *zap.Logger
}

type Policy struct {
	engine BestMover
	rules  MoveLister
	book   *openingbook.Book
	budget time.Duration
	rand   *lockedRand
	logger *zap.Logger
}

func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	if cfg.Rules == nil {
		return nil, fmt.Errorf("rules engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Policy{
		engine: cfg.Engine,
		rules:  cfg.Rules,
		book:   cfg.Book,
		budget: cfg.Budget,
		rand:   newLockedRand(cfg.Seed),
		logger: cfg.Logger,
	}, nil
}

type selectOptions struct {
	strict bool
	budget time.Duration
}

type SelectOption func(*selectOptions)

// WithoutFallback makes engine failures propagate instead of degrading to a random move.
func WithoutFallback() SelectOption {
	return func(o *selectOptions) { o.strict = true }
}

func WithBudget(d time.Duration) SelectOption {
	return func(o *selectOptions) { o.budget = d }
}

// SelectMove picks the bot's move: book line, then random deviation by rating,
// then the engine, then a random legal move if the engine fails.
func (p *Policy) SelectMove(ctx context.Context, pos Position, profile BotProfile, opts ...SelectOption) (Selection, error) {
	o := selectOptions{budget: p.budget}
	for _, opt := range opts {
		opt(&o)
	}

	legal, err := p.rules.LegalMoves(pos.FEN)
	if err != nil {
		return Selection{}, fmt.Errorf("list legal moves: %w", err)
	}
	if len(legal) == 0 {
		return Selection{}, ErrNoMoveFound
	}

	if profile.Source == SourceOpeningBook && p.book != nil {
		res, ok, err := p.book.Lookup(profile.BookLine, pos.FEN, pos.Moves, p.rand.fork())
		switch {
		case err != nil:
			p.logger.Warn("opening book lookup failed", zap.Error(err), zap.String("bot_id", profile.ID))
		case ok && contains(legal, res.Move):
			return Selection{Move: res.Move, Source: SelectedBook}, nil
		}
	}

	if profile.Source == SourceRandom {
		return Selection{Move: p.rand.pick(legal), Source: SelectedRandom}, nil
	}

	if profile.Rating != nil {
		if u := p.rand.Float64(); u < DeviationThreshold(*profile.Rating) {
			return Selection{Move: p.rand.pick(legal), Source: SelectedDeviation}, nil
		}
	}

	move, err := p.askEngine(ctx, pos.FEN, o.budget)
	if err == nil && !contains(legal, move) {
		err = fmt.Errorf("engine suggested illegal move %q", move)
	}
	if err == nil {
		return Selection{Move: strings.ToLower(move), Source: SelectedEngine}, nil
	}
	if ctx.Err() != nil {
		return Selection{}, ctx.Err()
	}
	if o.strict || profile.Source == SourceOpeningBook {
		return Selection{}, fmt.Errorf("engine move for %s: %w", profile.ID, err)
	}
	p.logger.Warn("engine move failed, playing random move",
		zap.Error(err),
		zap.String("bot_id", profile.ID),
	)
	return Selection{Move: p.rand.pick(legal), Source: SelectedFallback}, nil
}

func (p *Policy) askEngine(ctx context.Context, fen string, budget time.Duration) (string, error) {
	if p.engine == nil {
		return "", errNoEngine
	}
	return p.engine.RequestBestMove(ctx, fen, budget)
}

func contains(moves []string, move string) bool {
	move = strings.ToLower(strings.TrimSpace(move))
	for _, m := range moves {
		if m == move {
			return true
		}
	}
	return false
}
