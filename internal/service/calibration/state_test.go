package calibration

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/cheese-trainer/internal/service/game"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestAdvanceLiteralSequence(t *testing.T) {
	s := Start("run", "p1", t0)
	outcomes := []game.Outcome{game.OutcomeWin, game.OutcomeWin, game.OutcomeLoss, game.OutcomeWin, game.OutcomeDraw}
	for _, o := range outcomes {
		var err error
		if s, err = Advance(s, o, t0); err != nil {
			t.Fatalf("advance %s: %v", o, err)
		}
	}
	if diff := cmp.Diff([]int{1500, 2250, 2625, 2437, 2531}, s.Ratings); diff != "" {
		t.Fatalf("ratings mismatch (-want +got):\n%s", diff)
	}
	if s.Phase != PhaseCompleted || s.Final != 2531 || s.Current != 2531 {
		t.Fatalf("unexpected final state %+v", s)
	}
	if _, err := Advance(s, game.OutcomeWin, t0); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after completion, got %v", err)
	}
}

func TestAdvanceInvariantsOverAllSequences(t *testing.T) {
	all := []game.Outcome{game.OutcomeWin, game.OutcomeLoss, game.OutcomeDraw}
	total := 1
	for i := 0; i < Games; i++ {
		total *= len(all)
	}
	for code := 0; code < total; code++ {
		s := Start("run", "p1", t0)
		c := code
		for g := 0; g < Games; g++ {
			o := all[c%3]
			c /= 3
			width := s.High - s.Low
			next, err := Advance(s, o, t0)
			if err != nil {
				t.Fatalf("seq %d game %d: %v", code, g+1, err)
			}
			if next.Low > next.Current || next.Current > next.High {
				t.Fatalf("seq %d game %d: bounds violated %+v", code, g+1, next)
			}
			if next.Low < MinRating || next.High > MaxRating {
				t.Fatalf("seq %d: left rating axis %+v", code, next)
			}
			newWidth := next.High - next.Low
			switch o {
			case game.OutcomeDraw:
				if newWidth != width || next.Current != s.Current {
					t.Fatalf("seq %d: draw moved the search", code)
				}
			default:
				if newWidth > width {
					t.Fatalf("seq %d: interval widened %d -> %d", code, width, newWidth)
				}
			}
			if g < Games-1 && !next.Active() {
				t.Fatalf("seq %d: finished early after %d games", code, g+1)
			}
			s = next
		}
		if s.Phase != PhaseCompleted || len(s.Outcomes) != Games || len(s.Ratings) != Games {
			t.Fatalf("seq %d: not completed after %d games: %+v", code, Games, s)
		}
		if s.Final != s.Ratings[Games-1] {
			t.Fatalf("seq %d: final %d differs from game %d rating %d", code, s.Final, Games, s.Ratings[Games-1])
		}
	}
}

func TestAdvanceRejectsUnknownOutcome(t *testing.T) {
	s := Start("run", "p1", t0)
	if _, err := Advance(s, game.Outcome("forfeit"), t0); err == nil {
		t.Fatalf("expected error for unknown outcome")
	}
	if got := Abort(s, t0); got.Phase != PhaseAborted || got.Active() {
		t.Fatalf("abort left phase %s", got.Phase)
	}
}
