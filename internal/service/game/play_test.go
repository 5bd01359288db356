package game

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/cheese-trainer/internal/chess"
	"github.com/park285/cheese-trainer/internal/chess/rules"
)

type scriptedPlayer struct {
	moves    []string
	rejected []string
	botMoves int
}

func (p *scriptedPlayer) NextMove(context.Context, Session) (string, error) {
	if len(p.moves) == 0 {
		return "", ErrResigned
	}
	mv := p.moves[0]
	p.moves = p.moves[1:]
	return mv, nil
}

func (p *scriptedPlayer) MoveRejected(_ Session, move string, _ error) {
	p.rejected = append(p.rejected, move)
}

func (p *scriptedPlayer) BotMoved(Session, chess.Selection) { p.botMoves++ }

func TestPlayReportsRejectedMovesAndResignation(t *testing.T) {
	c := newTestController(t, &scriptedPolicy{}, nil)
	ctx := context.Background()
	c.SelectBot(ctx, preset(t, "pawnstar"), colorPtr(rules.White))

	player := &scriptedPlayer{moves: []string{"e2e5", "e2e4"}}
	s, out, err := c.Play(ctx, player)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if out != OutcomeLoss || s.Status != StatusResigned {
		t.Fatalf("expected resignation loss, got %v %+v", out, s)
	}
	if len(player.rejected) != 1 || player.rejected[0] != "e2e5" {
		t.Fatalf("rejected = %v", player.rejected)
	}
	if player.botMoves != 1 || len(s.Moves) != 2 {
		t.Fatalf("bot moves = %d, plies = %d", player.botMoves, len(s.Moves))
	}
}

func TestPlayStopsOnCancel(t *testing.T) {
	c := newTestController(t, &scriptedPolicy{}, nil)
	c.SelectBot(context.Background(), preset(t, "pawnstar"), colorPtr(rules.White))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.Play(ctx, &scriptedPlayer{moves: []string{"e2e4"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
