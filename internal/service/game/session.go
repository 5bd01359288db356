package game

import (
	"time"

	"github.com/park285/cheese-trainer/internal/chess/rules"
)

type State int

const (
	AwaitingPlayerMove State = iota
	AwaitingBotMove
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingPlayerMove:
		return "awaiting_player_move"
	case AwaitingBotMove:
		return "awaiting_bot_move"
	default:
		return "terminated"
	}
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCheckmate  Status = "checkmate"
	StatusStalemate  Status = "stalemate"
	StatusDraw       Status = "draw"
	StatusResigned   Status = "resigned"
)

type Winner string

const (
	WinnerNone   Winner = "none"
	WinnerPlayer Winner = "player"
	WinnerBot    Winner = "bot"
	WinnerDraw   Winner = "draw"
)

// Outcome is a finished game seen from the player's side.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Session is one game. History holds the position after every accepted move,
// so len(History) == len(Moves) at all times.
type Session struct {
	ID          string
	BotID       string
	PlayerColor rules.Color
	StartFEN    string
	FEN         string
	SideToMove  rules.Color
	History     []string
	Moves       []string
	SAN         []string
	State       State
	Status      Status
	Winner      Winner
	Terminal    rules.Terminal
	StartedAt   time.Time
	EndedAt     time.Time
}

// Outcome reports the player's result once the game is over.
func (s Session) Outcome() (Outcome, bool) {
	if s.State != Terminated {
		return "", false
	}
	switch s.Winner {
	case WinnerPlayer:
		return OutcomeWin, true
	case WinnerBot:
		return OutcomeLoss, true
	default:
		return OutcomeDraw, true
	}
}

func (s Session) clone() Session {
	s.History = append([]string(nil), s.History...)
	s.Moves = append([]string(nil), s.Moves...)
	s.SAN = append([]string(nil), s.SAN...)
	return s
}

func newSession(id, botID string, player rules.Color, startFEN string, side rules.Color, now time.Time) Session {
	s := Session{
		ID:          id,
		BotID:       botID,
		PlayerColor: player,
		StartFEN:    startFEN,
		FEN:         startFEN,
		SideToMove:  side,
		Status:      StatusInProgress,
		Winner:      WinnerNone,
		StartedAt:   now,
	}
	s.State = awaiting(s)
	return s
}

func awaiting(s Session) State {
	if s.SideToMove == s.PlayerColor {
		return AwaitingPlayerMove
	}
	return AwaitingBotMove
}

// priorPositions lists every position reached before the current move is applied.
func (s Session) priorPositions() []string {
	out := make([]string, 0, len(s.History)+1)
	out = append(out, s.StartFEN)
	return append(out, s.History...)
}

// advance applies one accepted move and settles the next state.
func advance(s Session, applied rules.Applied, now time.Time) Session {
	s = s.clone()
	s.FEN = applied.FEN
	s.History = append(s.History, applied.FEN)
	s.Moves = append(s.Moves, applied.UCI)
	s.SAN = append(s.SAN, applied.SAN)
	s.SideToMove = s.SideToMove.Opposite()

	switch applied.Terminal {
	case rules.NotTerminal:
		s.State = awaiting(s)
		return s
	case rules.Checkmate:
		s.Status = StatusCheckmate
		if applied.Mover == s.PlayerColor {
			s.Winner = WinnerPlayer
		} else {
			s.Winner = WinnerBot
		}
	case rules.Stalemate:
		s.Status = StatusStalemate
		s.Winner = WinnerDraw
	default:
		s.Status = StatusDraw
		s.Winner = WinnerDraw
	}
	s.Terminal = applied.Terminal
	s.State = Terminated
	s.EndedAt = now
	return s
}

func resign(s Session, now time.Time) Session {
	s = s.clone()
	s.Status = StatusResigned
	s.Winner = WinnerBot
	s.State = Terminated
	s.EndedAt = now
	return s
}
