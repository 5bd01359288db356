// Package calibration estimates a player's strength with a short binary
// search over engine ratings and turns the result into a personalized bot.
package calibration

import (
	"errors"
	"fmt"
	"time"

	"github.com/park285/cheese-trainer/internal/service/game"
)

const (
	MinRating   = 0
	MaxRating   = 3000
	StartRating = 1500
	// Games is the fixed length of a calibration run.
	Games = 5
)

var (
	ErrNotRunning     = errors.New("calibration: no run in progress")
	ErrAlreadyRunning = errors.New("calibration: a run is already in progress")
	ErrAborted        = errors.New("calibration: run aborted")
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseAborted   Phase = "aborted"
)

// State is the whole calibration run. Low <= Current <= High always holds.
// Ratings[i] is the engine rating used in game i+1.
type State struct {
	RunID     string         `json:"run_id"`
	PlayerID  string         `json:"player_id"`
	Phase     Phase          `json:"phase"`
	Low       int            `json:"low"`
	High      int            `json:"high"`
	Current   int            `json:"current"`
	Outcomes  []game.Outcome `json:"outcomes"`
	Ratings   []int          `json:"ratings"`
	Final     int            `json:"final,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Start returns a fresh running state at the middle of the rating axis.
func Start(runID, playerID string, now time.Time) State {
	return State{
		RunID:     runID,
		PlayerID:  playerID,
		Phase:     PhaseRunning,
		Low:       MinRating,
		High:      MaxRating,
		Current:   StartRating,
		Ratings:   []int{StartRating},
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (s State) Active() bool { return s.Phase == PhaseRunning }

// GameIndex is the 1-based number of the game about to be played.
func (s State) GameIndex() int { return len(s.Outcomes) + 1 }

func (s State) clone() State {
	s.Outcomes = append([]game.Outcome(nil), s.Outcomes...)
	s.Ratings = append([]int(nil), s.Ratings...)
	return s
}

// Advance folds one game outcome into s. It is the only function that moves
// the search. After the last game the rating of that game becomes final.
func Advance(s State, outcome game.Outcome, now time.Time) (State, error) {
	if s.Phase != PhaseRunning {
		return s, ErrNotRunning
	}
	s = s.clone()

	next := s.Current
	switch outcome {
	case game.OutcomeWin:
		s.Low = s.Current
		next = (s.Current + s.High) / 2
	case game.OutcomeLoss:
		s.High = s.Current
		next = (s.Low + s.Current) / 2
	case game.OutcomeDraw:
	default:
		return s, fmt.Errorf("calibration: unknown outcome %q", outcome)
	}
	s.Outcomes = append(s.Outcomes, outcome)
	s.UpdatedAt = now

	if len(s.Outcomes) >= Games {
		s.Final = s.Current
		s.Phase = PhaseCompleted
		return s, nil
	}
	s.Current = next
	s.Ratings = append(s.Ratings, next)
	return s, nil
}

// Abort marks s aborted from any phase.
func Abort(s State, now time.Time) State {
	s = s.clone()
	s.Phase = PhaseAborted
	s.UpdatedAt = now
	return s
}
