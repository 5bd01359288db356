package domain

import "time"

// GameRecord is one finished game against a bot.
type GameRecord struct {
	ID               int64
	SessionUUID      string
	PlayerID         string
	BotID            string
	BotRating        int
	CalibrationRunID string
	GameIndex        int
	PlayerColor      string
	Result           string
	ResultMethod     string
	MovesUCI         []string
	MovesSAN         []string
	PGN              string
	FinalFEN         string
	StartedAt        time.Time
	EndedAt          time.Time
	Duration         time.Duration
}

// PlayerProfile is the player's calibrated rating and running record.
type PlayerProfile struct {
	PlayerID     string
	Rating       int
	GamesPlayed  int
	Wins         int
	Losses       int
	Draws        int
	CalibratedAt time.Time
	UpdatedAt    time.Time
	CreatedAt    time.Time
}

// PersonalizedBot is the opponent produced by a completed calibration run.
type PersonalizedBot struct {
	BotID     string
	PlayerID  string
	RunID     string
	Name      string
	Label     string
	Rating    int
	CreatedAt time.Time
}
