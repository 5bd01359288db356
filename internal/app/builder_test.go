package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/cheese-trainer/internal/chess/rules"
	"github.com/park285/cheese-trainer/internal/chess/uci"
	"github.com/park285/cheese-trainer/internal/config"
	"github.com/park285/cheese-trainer/internal/service/calibration"
	"github.com/park285/cheese-trainer/internal/service/game"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		StockfishPath: "/nonexistent/stockfish",
		EngineEloCap:  1500,
		DefaultBot:    "training-bot",
		PlayerID:      "local",
	}
}

func TestNewWiresInMemoryDefaults(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()

	if d.Catalog.Len() != 11 {
		t.Fatalf("catalog size = %d", d.Catalog.Len())
	}
	if _, ok := d.Catalog.Lookup("knight-fury"); !ok {
		t.Fatalf("preset missing")
	}
	if d.Coach != nil || d.Cache != nil {
		t.Fatalf("optional collaborators should be off")
	}
	if d.Repo == nil || d.Calibrator == nil || d.Controller == nil {
		t.Fatalf("core components missing")
	}
	if _, ok := d.Engine.Current(); ok {
		t.Fatalf("engine must not start before a bot is selected")
	}
}

func TestNewWithRedisAndCoach(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.CoachAPIKey = "sk-test"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()
	if d.Cache == nil || d.Coach == nil {
		t.Fatalf("expected cache and coach to be wired")
	}
}

func TestNewLoadsBotsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.yaml")
	yaml := "bots:\n  - id: sparring\n    name: Sparring\n    label: Sparring (900)\n    source: engine\n    rating: 900\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := baseConfig()
	cfg.BotsFile = path

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()
	if d.Catalog.Len() != 1 {
		t.Fatalf("catalog size = %d, want 1", d.Catalog.Len())
	}
}

func TestNewRejectsMissingEngine(t *testing.T) {
	cfg := baseConfig()
	cfg.StockfishPath = ""
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error without engine transport")
	}
}

// silentEngine completes the handshake but never answers go.
const silentEngine = `#!/bin/sh
while read -r line; do
  case "$line" in
    uci) echo "id name Silent"; echo "uciok" ;;
    isready) echo "readyok" ;;
    quit) exit 0 ;;
  esac
done
`

type firstLegalPlayer struct {
	rules rules.Engine
}

func (p firstLegalPlayer) NextMove(_ context.Context, s game.Session) (string, error) {
	moves, err := p.rules.LegalMoves(s.FEN)
	if err != nil || len(moves) == 0 {
		return "", game.ErrResigned
	}
	return moves[0], nil
}

func TestCalibrationAbortsOnEngineTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if testing.Short() {
		t.Skip("waits for the engine search timeout")
	}
	path := filepath.Join(t.TempDir(), "stockfish")
	if err := os.WriteFile(path, []byte(silentEngine), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := baseConfig()
	cfg.StockfishPath = path
	cfg.StrictEngine = false

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()
	if d.CalibrationGames == d.Controller {
		t.Fatalf("calibration must not share the free-play controller")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res, err := d.Calibrator.Run(ctx, "p1", firstLegalPlayer{rules: d.Rules})
	if !errors.Is(err, uci.ErrEngineTimeout) {
		t.Fatalf("expected ErrEngineTimeout, got %v", err)
	}
	if res.State.Phase != calibration.PhaseAborted {
		t.Fatalf("phase = %s, want aborted", res.State.Phase)
	}
	if len(res.State.Outcomes) != 0 {
		t.Fatalf("no game should have finished: %+v", res.State.Outcomes)
	}
	if d.Catalog.Len() != 11 {
		t.Fatalf("catalog changed: %d", d.Catalog.Len())
	}
}
