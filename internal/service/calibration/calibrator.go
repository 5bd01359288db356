package calibration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-trainer/internal/chess"
	"github.com/park285/cheese-trainer/internal/chess/rules"
	"github.com/park285/cheese-trainer/internal/domain"
	"github.com/park285/cheese-trainer/internal/msgcat"
	"github.com/park285/cheese-trainer/internal/service/game"
	"github.com/park285/cheese-trainer/internal/service/store"
)

const (
	DefaultCheckpointTTL = 24 * time.Hour
	checkpointPrefix     = "trainer:calibration:"
	personalizedPrefix   = "your-bot-"
)

// GameRunner is the session controller as seen by the calibrator.
type GameRunner interface {
	SelectBot(ctx context.Context, profile chess.BotProfile, color *rules.Color) (game.Session, error)
	Play(ctx context.Context, player game.Player) (game.Session, game.Outcome, error)
}

// EngineReleaser releases the live engine handle.
type EngineReleaser interface {
	Shutdown()
}

// Checkpoints stores the run state between games.
type Checkpoints interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// GameObserver is notified around every calibration game. Players may implement it.
type GameObserver interface {
	CalibrationGameStarted(index, total, rating int)
	CalibrationGameFinished(index int, outcome game.Outcome, next State)
}

type Config struct {
	Games  GameRunner
	Writer *chess.CatalogWriter
	// Optional collaborators.
	Engine        EngineReleaser
	Repo          store.Repository
	Cache         Checkpoints
	Messages      *msgcat.Catalog
	CheckpointTTL time.Duration
	Logger        *zap.Logger
	Now           func() time.Time
}

// Result is what a completed run produced.
type Result struct {
	State   State
	Profile chess.BotProfile
	Message string
}

// Calibrator drives one calibration run at a time.
type Calibrator struct {
	games    GameRunner
	writer   *chess.CatalogWriter
	engine   EngineReleaser
	repo     store.Repository
	cache    Checkpoints
	messages *msgcat.Catalog
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	state   State
	running bool
	cancel  context.CancelFunc
	// pendingAbort holds an Abort that arrived before Run took the lock.
	pendingAbort bool
}

func New(cfg Config) (*Calibrator, error) {
	if cfg.Games == nil {
		return nil, fmt.Errorf("game controller is required")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("catalog writer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CheckpointTTL <= 0 {
		cfg.CheckpointTTL = DefaultCheckpointTTL
	}
	return &Calibrator{
		games:    cfg.Games,
		writer:   cfg.Writer,
		engine:   cfg.Engine,
		repo:     cfg.Repo,
		cache:    cfg.Cache,
		messages: cfg.Messages,
		ttl:      cfg.CheckpointTTL,
		logger:   cfg.Logger,
		now:      cfg.Now,
		state:    State{Phase: PhaseIdle},
	}, nil
}

// State returns a copy of the current run state.
func (c *Calibrator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Run plays the calibration games one after another with player on the
// human side and appends the personalized bot when all of them are done.
func (c *Calibrator) Run(ctx context.Context, playerID string, player game.Player) (Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Result{}, ErrAlreadyRunning
	}
	c.state = Start(uuid.NewString(), playerID, c.now())
	if c.pendingAbort {
		c.pendingAbort = false
		c.state = Abort(c.state, c.now())
		st := c.state.clone()
		c.mu.Unlock()
		c.checkpoint(ctx, st)
		c.logger.Info("calibration aborted before the first game", zap.String("run_id", st.RunID))
		return Result{State: st}, ErrAborted
	}
	c.running = true
	c.cancel = cancel
	st := c.state.clone()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	c.logger.Info("calibration started",
		zap.String("run_id", st.RunID),
		zap.String("player_id", playerID),
	)
	observer, _ := player.(GameObserver)

	for st.Active() {
		idx := st.GameIndex()
		profile := calibrationProfile(idx, st.Current)
		if observer != nil {
			observer.CalibrationGameStarted(idx, Games, st.Current)
		}

		if _, err := c.games.SelectBot(runCtx, profile, nil); err != nil {
			return c.fail(fmt.Errorf("calibration game %d setup: %w", idx, err))
		}
		sess, outcome, err := c.games.Play(runCtx, player)
		if err != nil {
			return c.fail(fmt.Errorf("calibration game %d: %w", idx, err))
		}

		next, final, err := c.advance(outcome)
		if err != nil {
			return Result{State: c.State()}, err
		}
		st = next

		c.logger.Info("calibration game finished",
			zap.String("run_id", st.RunID),
			zap.Int("game", idx),
			zap.Int("rating", profile.EngineRating()),
			zap.String("outcome", string(outcome)),
			zap.Int("next_rating", st.Current),
		)
		c.recordGame(runCtx, sess, profile, st, idx)
		c.checkpoint(runCtx, st)
		if observer != nil {
			observer.CalibrationGameFinished(idx, outcome, st.clone())
		}

		if final != nil {
			c.persistPersonalized(runCtx, st, *final)
			msg := c.messages.Text("calibration.complete", map[string]any{"Rating": st.Final},
				fmt.Sprintf("Training complete! Your personalized bot has been created with an ELO of %d, matching your current skill level.", st.Final))
			c.logger.Info("calibration completed",
				zap.String("run_id", st.RunID),
				zap.String("bot_id", final.ID),
				zap.Int("rating", st.Final),
			)
			return Result{State: st, Profile: *final, Message: msg}, nil
		}
	}
	return Result{State: st}, ErrAborted
}

// advance applies outcome and, on the last game, appends the personalized
// profile in the same critical section so an Abort cannot interleave.
func (c *Calibrator) advance(outcome game.Outcome) (State, *chess.BotProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == PhaseAborted {
		return c.state.clone(), nil, ErrAborted
	}
	next, err := Advance(c.state, outcome, c.now())
	if err != nil {
		return c.state.clone(), nil, err
	}
	if next.Phase != PhaseCompleted {
		c.state = next
		return next.clone(), nil, nil
	}

	profile := c.personalizedProfile(next.Final)
	if err := c.writer.Append(profile); err != nil {
		c.state = Abort(next, c.now())
		return c.state.clone(), nil, fmt.Errorf("append personalized bot: %w", err)
	}
	c.state = next
	return next.clone(), &profile, nil
}

// fail aborts the run after a setup or game error and surfaces the cause.
func (c *Calibrator) fail(cause error) (Result, error) {
	c.mu.Lock()
	aborted := c.state.Phase == PhaseAborted
	if !aborted {
		c.state = Abort(c.state, c.now())
	}
	st := c.state.clone()
	c.mu.Unlock()

	if c.engine != nil {
		c.engine.Shutdown()
	}
	c.checkpoint(context.Background(), st)
	if aborted {
		return Result{State: st}, ErrAborted
	}
	c.logger.Warn("calibration aborted", zap.String("run_id", st.RunID), zap.Error(cause))
	return Result{State: st}, cause
}

// Abort stops the run from any phase and releases the engine handle. The
// catalog is never touched. Called with no run in progress, it also stops the
// next Run before its first game unless the last run already completed.
func (c *Calibrator) Abort() {
	c.mu.Lock()
	if !c.running && c.state.Phase != PhaseCompleted {
		c.pendingAbort = true
	}
	c.state = Abort(c.state, c.now())
	cancel := c.cancel
	runID := c.state.RunID
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.engine != nil {
		c.engine.Shutdown()
	}
	c.logger.Info("calibration abort requested", zap.String("run_id", runID))
}

// LoadCheckpoint returns the last stored state of playerID's run.
func (c *Calibrator) LoadCheckpoint(ctx context.Context, playerID string) (State, bool, error) {
	if c.cache == nil {
		return State{}, false, nil
	}
	var st State
	if err := c.cache.Get(ctx, checkpointKey(playerID), &st); err != nil {
		return State{}, false, err
	}
	if st.RunID == "" {
		return State{}, false, nil
	}
	return st, true, nil
}

func (c *Calibrator) checkpoint(ctx context.Context, st State) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, checkpointKey(st.PlayerID), st, c.ttl); err != nil {
		c.logger.Warn("calibration checkpoint failed", zap.String("run_id", st.RunID), zap.Error(err))
	}
}

func (c *Calibrator) recordGame(ctx context.Context, sess game.Session, profile chess.BotProfile, st State, idx int) {
	if c.repo == nil {
		return
	}
	rec := store.RecordFromSession(sess, profile, store.RecordMeta{PlayerID: st.PlayerID, RunID: st.RunID, GameIndex: idx})
	if _, err := c.repo.InsertGame(ctx, rec); err != nil && !errors.Is(err, store.ErrDuplicateGame) {
		c.logger.Warn("record calibration game failed", zap.String("session", sess.ID), zap.Error(err))
	}
}

func (c *Calibrator) persistPersonalized(ctx context.Context, st State, profile chess.BotProfile) {
	if c.repo == nil {
		return
	}
	now := c.now()
	if err := c.repo.InsertPersonalizedBot(ctx, &domain.PersonalizedBot{
		BotID:     profile.ID,
		PlayerID:  st.PlayerID,
		RunID:     st.RunID,
		Name:      profile.Name,
		Label:     profile.Label,
		Rating:    st.Final,
		CreatedAt: now,
	}); err != nil {
		c.logger.Warn("persist personalized bot failed", zap.String("bot_id", profile.ID), zap.Error(err))
	}

	prev, err := c.repo.GetProfile(ctx, st.PlayerID)
	if err != nil {
		c.logger.Warn("load player profile failed", zap.String("player_id", st.PlayerID), zap.Error(err))
	}
	next := domain.PlayerProfile{PlayerID: st.PlayerID}
	if prev != nil {
		next = *prev
	}
	next.Rating = st.Final
	next.CalibratedAt = now
	next.UpdatedAt = now
	for _, o := range st.Outcomes {
		next.GamesPlayed++
		switch o {
		case game.OutcomeWin:
			next.Wins++
		case game.OutcomeLoss:
			next.Losses++
		default:
			next.Draws++
		}
	}
	if err := c.repo.UpsertProfile(ctx, &next); err != nil {
		c.logger.Warn("persist player rating failed", zap.String("player_id", st.PlayerID), zap.Error(err))
	}
}

func (c *Calibrator) personalizedProfile(rating int) chess.BotProfile {
	id := personalizedPrefix + strings.SplitN(uuid.NewString(), "-", 2)[0]
	return chess.BotProfile{
		ID:           id,
		Name:         c.messages.Text("bot.personalized_name", nil, "Your Bot"),
		Label:        c.messages.Text("bot.personalized_label", map[string]any{"Rating": rating}, "Personalized Bot ("+strconv.Itoa(rating)+")"),
		Source:       chess.SourceEngine,
		Rating:       chess.Rating(rating),
		Personalized: true,
	}
}

// calibrationProfile is the transient engine opponent of one game.
func calibrationProfile(idx, rating int) chess.BotProfile {
	return chess.BotProfile{
		ID:     fmt.Sprintf("calibration-%d", idx),
		Name:   "Calibration Bot",
		Label:  fmt.Sprintf("Calibration Game %d (%d)", idx, rating),
		Source: chess.SourceEngine,
		Rating: chess.Rating(rating),
	}
}

func checkpointKey(playerID string) string {
	if strings.TrimSpace(playerID) == "" {
		playerID = "anonymous"
	}
	return checkpointPrefix + playerID
}
