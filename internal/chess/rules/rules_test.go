package rules

import (
	"errors"
	"testing"
)

func playAll(t *testing.T, r Engine, moves ...string) (Applied, []string) {
	t.Helper()
	fen := StartFEN
	prior := []string{}
	var last Applied
	for _, mv := range moves {
		applied, err := r.Apply(fen, mv, prior)
		if err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
		prior = append(prior, fen)
		fen = applied.FEN
		last = applied
	}
	return last, prior
}

func TestApplyAcceptsUCIAndSAN(t *testing.T) {
	r := NewStandard()
	a, err := r.Apply(StartFEN, "e2e4", nil)
	if err != nil {
		t.Fatalf("uci: %v", err)
	}
	if a.UCI != "e2e4" || a.SAN != "e4" || a.Mover != White {
		t.Fatalf("unexpected applied: %+v", a)
	}
	b, err := r.Apply(a.FEN, "c5", nil)
	if err != nil {
		t.Fatalf("san: %v", err)
	}
	if b.UCI != "c7c5" || b.Mover != Black {
		t.Fatalf("unexpected applied: %+v", b)
	}
	side, err := r.SideToMove(b.FEN)
	if err != nil || side != White {
		t.Fatalf("side to move = %v, %v", side, err)
	}
}

func TestApplyKeepsCoordinateMoves(t *testing.T) {
	r := NewStandard()
	tests := []struct {
		name string
		fen  string
		move string
		san  string
	}{
		{"knight", StartFEN, "g1f3", "Nf3"},
		{"queenside knight", StartFEN, "b1c3", "Nc3"},
		{"black knight", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", "b8c6", "Nc6"},
		{"promotion", "8/4P3/8/8/8/k7/8/K7 w - - 0 1", "e7e8q", "e8=Q"},
		{"underpromotion", "8/4P3/8/8/8/k7/8/K7 w - - 0 1", "e7e8n", "e8=N"},
		{"castling", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", "O-O"},
		{"long castling", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8c8", "O-O-O"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := r.Apply(tt.fen, tt.move, nil)
			if err != nil {
				t.Fatalf("apply %s: %v", tt.move, err)
			}
			if a.UCI != tt.move {
				t.Fatalf("UCI = %q, want %q", a.UCI, tt.move)
			}
			if a.SAN != tt.san {
				t.Fatalf("SAN = %q, want %q", a.SAN, tt.san)
			}
		})
	}
}

func TestApplyRejectsCoordinateMoveFromWrongSquare(t *testing.T) {
	// f2f3 is legal, g1f3 from an empty g1 is not.
	fen := "rnbqkbnr/pppp1ppp/8/4p3/8/7N/PPPPPPPP/RNBQKB1R w KQkq - 0 2"
	if _, err := NewStandard().Apply(fen, "g1f3", nil); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestApplyRejectsIllegalMove(t *testing.T) {
	r := NewStandard()
	for _, mv := range []string{"e2e5", "", "Ke2", "zz"} {
		if _, err := r.Apply(StartFEN, mv, nil); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("move %q: expected ErrIllegalMove, got %v", mv, err)
		}
	}
}

func TestCheckmateDetected(t *testing.T) {
	last, _ := playAll(t, NewStandard(), "f2f3", "e7e5", "g2g4", "d8h4")
	if last.Terminal != Checkmate || last.Mover != Black {
		t.Fatalf("expected black checkmate, got %+v", last)
	}
}

func TestStalemateDetected(t *testing.T) {
	a, err := NewStandard().Apply("k7/8/2K5/8/8/8/8/1Q6 w - - 0 1", "b1b6", nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if a.Terminal != Stalemate {
		t.Fatalf("expected stalemate, got %v", a.Terminal)
	}
	moves, err := NewStandard().LegalMoves(a.FEN)
	if err != nil {
		t.Fatalf("legal moves: %v", err)
	}
	if len(moves) != 0 {
		t.Fatalf("expected no legal moves, got %v", moves)
	}
}

func TestInsufficientMaterialDetected(t *testing.T) {
	a, err := NewStandard().Apply("k7/8/8/8/8/8/1r6/K7 w - - 0 1", "a1b2", nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if a.Terminal != InsufficientMaterial {
		t.Fatalf("expected insufficient material, got %v", a.Terminal)
	}
}

func TestRepetitionDetected(t *testing.T) {
	last, _ := playAll(t, NewStandard(),
		"g1f3", "g8f6", "f3g1", "f6g8",
		"g1f3", "g8f6", "f3g1", "f6g8")
	if last.Terminal != Repetition {
		t.Fatalf("expected repetition, got %v", last.Terminal)
	}
	if last.UCI != "f6g8" || PositionKey(last.FEN) != PositionKey(StartFEN) {
		t.Fatalf("unexpected last move %+v", last)
	}
}

func TestFiftyMoveRule(t *testing.T) {
	a, err := NewStandard().Apply("k7/8/8/8/8/8/8/KR6 w - - 99 80", "b1b2", nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if a.Terminal != FiftyMove {
		t.Fatalf("expected fifty move draw, got %v", a.Terminal)
	}
}

func TestLegalMovesAndPieceAt(t *testing.T) {
	r := NewStandard()
	moves, err := r.LegalMoves(StartFEN)
	if err != nil {
		t.Fatalf("legal moves: %v", err)
	}
	if len(moves) != 20 {
		t.Fatalf("expected 20 moves, got %d", len(moves))
	}
	color, ok, err := r.PieceAt(StartFEN, "e7")
	if err != nil || !ok || color != Black {
		t.Fatalf("e7 = %v %v %v", color, ok, err)
	}
	if _, ok, _ := r.PieceAt(StartFEN, "e4"); ok {
		t.Fatalf("e4 should be empty")
	}
	if _, _, err := r.PieceAt(StartFEN, "i9"); err == nil {
		t.Fatalf("expected error for bad square")
	}
}

func TestPositionKeyIgnoresCounters(t *testing.T) {
	a := "k7/8/8/8/8/8/8/KR6 w - - 3 10"
	b := "k7/8/8/8/8/8/8/KR6 w - - 7 14"
	if PositionKey(a) != PositionKey(b) {
		t.Fatalf("keys differ: %q %q", PositionKey(a), PositionKey(b))
	}
}
