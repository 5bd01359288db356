package store

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-trainer/internal/chess"
	"github.com/park285/cheese-trainer/internal/chess/rules"
	"github.com/park285/cheese-trainer/internal/service/game"
)

func TestRecordFromSessionCheckmate(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := game.Session{
		ID:          "sess-1",
		BotID:       "knight-fury",
		PlayerColor: rules.Black,
		StartFEN:    rules.StartFEN,
		FEN:         "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		Moves:       []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		SAN:         []string{"f3", "e5", "g4", "Qh4#"},
		State:       game.Terminated,
		Status:      game.StatusCheckmate,
		Winner:      game.WinnerPlayer,
		Terminal:    rules.Checkmate,
		StartedAt:   start,
		EndedAt:     start.Add(90 * time.Second),
	}
	bot := chess.BotProfile{ID: "knight-fury", Name: "Knight Fury", Source: chess.SourceEngine, Rating: chess.Rating(500)}

	rec := RecordFromSession(s, bot, RecordMeta{PlayerID: "p1", RunID: "run-1", GameIndex: 2})

	if rec.Result != "win" || rec.ResultMethod != "checkmate" || rec.BotRating != 500 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Duration != 90*time.Second {
		t.Fatalf("duration = %v", rec.Duration)
	}
	for _, want := range []string{
		`[Event "Calibration Game 2"]`,
		`[Date "2026.03.01"]`,
		`[White "Knight Fury"]`,
		`[Black "p1"]`,
		`[Termination "checkmate"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(rec.PGN, want) {
			t.Fatalf("pgn missing %q:\n%s", want, rec.PGN)
		}
	}
	if strings.Contains(rec.PGN, "[SetUp") {
		t.Fatalf("standard start should not carry SetUp tag")
	}
}

func TestBuildPGNCustomStartAndDraw(t *testing.T) {
	s := game.Session{
		ID:          "sess-2",
		PlayerColor: rules.White,
		StartFEN:    "k7/8/2K5/8/8/8/8/1Q6 w - - 0 1",
		Moves:       []string{"b1b6"},
		SAN:         []string{"Qb6"},
		State:       game.Terminated,
		Status:      game.StatusStalemate,
		Winner:      game.WinnerDraw,
		Terminal:    rules.Stalemate,
		EndedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	rec := RecordFromSession(s, chess.BotProfile{ID: "pawnstar", Name: `Pawn "Star"`}, RecordMeta{})
	for _, want := range []string{
		`[Event "Training Game"]`,
		`[White "Player"]`,
		`[Black "Pawn 'Star'"]`,
		`[SetUp "1"]`,
		`[FEN "k7/8/2K5/8/8/8/8/1Q6 w - - 0 1"]`,
		`[Result "1/2-1/2"]`,
		"1. Qb6 1/2-1/2",
	} {
		if !strings.Contains(rec.PGN, want) {
			t.Fatalf("pgn missing %q:\n%s", want, rec.PGN)
		}
	}
}

func TestResultMethodResign(t *testing.T) {
	s := game.Session{State: game.Terminated, Status: game.StatusResigned, Winner: game.WinnerBot, PlayerColor: rules.White}
	rec := RecordFromSession(s, chess.BotProfile{ID: "x"}, RecordMeta{})
	if rec.ResultMethod != "resign" || rec.Result != "loss" || pgnResult(rec) != "0-1" {
		t.Fatalf("unexpected record %+v", rec)
	}
}
