// Package store persists finished games, player ratings and personalized bots.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-trainer/internal/domain"
)

var ErrDuplicateGame = errors.New("store: game already recorded")

type Repository interface {
	InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error)
	GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error)
	GetProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error
	InsertPersonalizedBot(ctx context.Context, bot *domain.PersonalizedBot) error
	ListPersonalizedBots(ctx context.Context, playerID string) ([]*domain.PersonalizedBot, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS trainer_games (
	id                 BIGSERIAL PRIMARY KEY,
	session_uuid       TEXT NOT NULL UNIQUE,
	player_id          TEXT NOT NULL,
	bot_id             TEXT NOT NULL,
	bot_rating         INTEGER NOT NULL,
	calibration_run_id TEXT NOT NULL DEFAULT '',
	game_index         INTEGER NOT NULL DEFAULT 0,
	player_color       TEXT NOT NULL,
	result             TEXT NOT NULL,
	result_method      TEXT NOT NULL,
	moves_uci          JSONB NOT NULL,
	moves_san          JSONB NOT NULL,
	pgn                TEXT NOT NULL,
	final_fen          TEXT NOT NULL,
	started_at         TIMESTAMPTZ NOT NULL,
	ended_at           TIMESTAMPTZ NOT NULL,
	duration_ms        BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS trainer_games_player_idx ON trainer_games (player_id, ended_at DESC);
CREATE TABLE IF NOT EXISTS trainer_profiles (
	player_id     TEXT PRIMARY KEY,
	rating        INTEGER NOT NULL DEFAULT 1500,
	games_played  INTEGER NOT NULL DEFAULT 0,
	wins          INTEGER NOT NULL DEFAULT 0,
	losses        INTEGER NOT NULL DEFAULT 0,
	draws         INTEGER NOT NULL DEFAULT 0,
	calibrated_at TIMESTAMPTZ,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS trainer_bots (
	bot_id     TEXT PRIMARY KEY,
	player_id  TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	name       TEXT NOT NULL,
	label      TEXT NOT NULL,
	rating     INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// EnsureSchema creates the tables used by the repository if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *repository) InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil game record")
	}
	movesUCI, err := json.Marshal(game.MovesUCI)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(game.MovesSAN)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO trainer_games (
			session_uuid,
			player_id,
			bot_id,
			bot_rating,
			calibration_run_id,
			game_index,
			player_color,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			final_fen,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::jsonb, $12, $13, $14, $15, $16)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.SessionUUID,
		game.PlayerID,
		game.BotID,
		game.BotRating,
		game.CalibrationRunID,
		game.GameIndex,
		game.PlayerColor,
		game.Result,
		game.ResultMethod,
		movesUCI,
		movesSAN,
		game.PGN,
		game.FinalFEN,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT
			id,
			session_uuid,
			player_id,
			bot_id,
			bot_rating,
			calibration_run_id,
			game_index,
			player_color,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			final_fen,
			started_at,
			ended_at,
			duration_ms
		FROM trainer_games
		WHERE player_id = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.GameRecord, 0, limit)
	for rows.Next() {
		var (
			game         domain.GameRecord
			movesUCIJSON []byte
			movesSANJSON []byte
			durationMS   int64
		)
		if err := rows.Scan(
			&game.ID,
			&game.SessionUUID,
			&game.PlayerID,
			&game.BotID,
			&game.BotRating,
			&game.CalibrationRunID,
			&game.GameIndex,
			&game.PlayerColor,
			&game.Result,
			&game.ResultMethod,
			&movesUCIJSON,
			&movesSANJSON,
			&game.PGN,
			&game.FinalFEN,
			&game.StartedAt,
			&game.EndedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		game.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
			return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
		}
		if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
			return nil, fmt.Errorf("unmarshal moves_san: %w", err)
		}
		games = append(games, &game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func (r *repository) GetProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	const query = `
		SELECT
			player_id,
			rating,
			games_played,
			wins,
			losses,
			draws,
			calibrated_at,
			updated_at,
			created_at
		FROM trainer_profiles
		WHERE player_id = $1
		LIMIT 1`

	var (
		profile      domain.PlayerProfile
		calibratedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&profile.PlayerID,
		&profile.Rating,
		&profile.GamesPlayed,
		&profile.Wins,
		&profile.Losses,
		&profile.Draws,
		&calibratedAt,
		&profile.UpdatedAt,
		&profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	if calibratedAt.Valid {
		profile.CalibratedAt = calibratedAt.Time
	}
	return &profile, nil
}

func (r *repository) UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	if profile == nil {
		return fmt.Errorf("nil profile payload")
	}
	var calibratedAt sql.NullTime
	if !profile.CalibratedAt.IsZero() {
		calibratedAt = sql.NullTime{Time: profile.CalibratedAt, Valid: true}
	}
	const query = `
		INSERT INTO trainer_profiles (
			player_id,
			rating,
			games_played,
			wins,
			losses,
			draws,
			calibrated_at,
			updated_at,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (player_id)
		DO UPDATE SET
			rating = EXCLUDED.rating,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			calibrated_at = COALESCE(EXCLUDED.calibrated_at, trainer_profiles.calibrated_at),
			updated_at = NOW()`

	_, err := r.db.ExecContext(
		ctx,
		query,
		profile.PlayerID,
		profile.Rating,
		profile.GamesPlayed,
		profile.Wins,
		profile.Losses,
		profile.Draws,
		calibratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *repository) InsertPersonalizedBot(ctx context.Context, bot *domain.PersonalizedBot) error {
	if bot == nil {
		return fmt.Errorf("nil bot payload")
	}
	const query = `
		INSERT INTO trainer_bots (bot_id, player_id, run_id, name, label, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (bot_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query,
		bot.BotID, bot.PlayerID, bot.RunID, bot.Name, bot.Label, bot.Rating, bot.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert personalized bot: %w", err)
	}
	return nil
}

func (r *repository) ListPersonalizedBots(ctx context.Context, playerID string) ([]*domain.PersonalizedBot, error) {
	const query = `
		SELECT bot_id, player_id, run_id, name, label, rating, created_at
		FROM trainer_bots
		WHERE player_id = $1
		ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("select personalized bots: %w", err)
	}
	defer rows.Close()

	var bots []*domain.PersonalizedBot
	for rows.Next() {
		var b domain.PersonalizedBot
		if err := rows.Scan(&b.BotID, &b.PlayerID, &b.RunID, &b.Name, &b.Label, &b.Rating, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan personalized bot: %w", err)
		}
		bots = append(bots, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personalized bots: %w", err)
	}
	return bots, nil
}
