package game

import (
	"context"
	"errors"

	"github.com/park285/cheese-trainer/internal/chess"
)

// Player supplies the human side of a game. NextMove may return ErrResigned.
type Player interface {
	NextMove(ctx context.Context, s Session) (string, error)
}

// MoveRejecter is notified when a move from NextMove is refused.
type MoveRejecter interface {
	MoveRejected(s Session, move string, err error)
}

// BotObserver is notified after every bot move.
type BotObserver interface {
	BotMoved(s Session, sel chess.Selection)
}

// Play drives the current game to the end and returns the player's result.
func (c *Controller) Play(ctx context.Context, player Player) (Session, Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return c.Session(), "", err
		}
		s := c.Session()
		switch s.State {
		case Terminated:
			out, _ := s.Outcome()
			return s, out, nil

		case AwaitingBotMove:
			next, sel, err := c.RequestBotMove(ctx)
			if err != nil {
				return next, "", err
			}
			if obs, ok := player.(BotObserver); ok {
				obs.BotMoved(next, sel)
			}

		case AwaitingPlayerMove:
			move, err := player.NextMove(ctx, s)
			if errors.Is(err, ErrResigned) {
				if _, err := c.Resign(); err != nil {
					return s, "", err
				}
				continue
			}
			if err != nil {
				return s, "", err
			}
			if _, err := c.ApplyPlayerMove(move); err != nil {
				if !errors.Is(err, ErrIllegalMove) {
					return s, "", err
				}
				if rej, ok := player.(MoveRejecter); ok {
					rej.MoveRejected(s, move, err)
				}
			}
		}
	}
}
