package chess

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultPresetsAreValid(t *testing.T) {
	c, err := NewCatalog(DefaultPresets())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	if c.Len() != 11 {
		t.Fatalf("expected 11 presets, got %d", c.Len())
	}
	rook, ok := c.Lookup("rookinator")
	if !ok {
		t.Fatalf("rookinator missing")
	}
	if color, pinned := rook.PlayerColor(); !pinned || color.String() != "white" {
		t.Fatalf("rookinator must pin the human to white")
	}
	var ids []string
	for _, p := range c.List() {
		ids = append(ids, p.ID)
	}
	want := []string{
		"training-bot", "rookinator", "pawnstar", "knight-fury", "bishop-blitz", "queen-quest",
		"king-crusher", "castling-conqueror", "pawnstorm", "checkmate-champ", "endgame-expert",
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("preset order (-want +got):\n%s", diff)
	}
}

func TestCatalogSingleWriter(t *testing.T) {
	c, _ := NewCatalog(DefaultPresets())
	w, err := c.ClaimWriter()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := c.ClaimWriter(); !errors.Is(err, ErrWriterClaimed) {
		t.Fatalf("expected ErrWriterClaimed, got %v", err)
	}

	bot := BotProfile{ID: "your-bot-1", Name: "Your Bot", Label: "Personalized Bot (1830)", Source: SourceEngine, Rating: Rating(1830), Personalized: true}
	if err := w.Append(bot); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append(bot); !errors.Is(err, ErrDuplicateBot) {
		t.Fatalf("expected ErrDuplicateBot, got %v", err)
	}
	if err := w.Append(BotProfile{ID: "broken", Source: SourceEngine}); err == nil {
		t.Fatalf("engine profile without rating must be rejected")
	}
	got, ok := c.Lookup("your-bot-1")
	if !ok || *got.Rating != 1830 {
		t.Fatalf("lookup personalized: %+v %v", got, ok)
	}
}

func TestCatalogLookupReturnsCopies(t *testing.T) {
	c, _ := NewCatalog(DefaultPresets())
	p, _ := c.Lookup("pawnstorm")
	*p.Rating = 1
	again, _ := c.Lookup("pawnstorm")
	if *again.Rating != 2000 {
		t.Fatalf("catalog entry mutated through copy: %d", *again.Rating)
	}
}

func TestCatalogConcurrentReadsDuringAppend(t *testing.T) {
	c, _ := NewCatalog(DefaultPresets())
	w, _ := c.ClaimWriter()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = c.List()
				_, _ = c.Lookup("training-bot")
			}
		}()
	}
	for i := 0; i < 20; i++ {
		id := "bot-" + string(rune('a'+i))
		if err := w.Append(BotProfile{ID: id, Source: SourceEngine, Rating: Rating(1000 + i)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	wg.Wait()
	if c.Len() != 31 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestLoadPresetFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bots.yaml")
	data := `bots:
  - id: club-player
    name: Club Player
    label: Stockfish 1600
    source: engine
    rating: 1600
  - id: chaos
    name: Chaos
    source: random
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bots, err := LoadPresetFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bots) != 2 || *bots[0].Rating != 1600 || bots[1].Source != SourceRandom {
		t.Fatalf("unexpected bots: %+v", bots)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("bots:\n  - id: x\n    source: engine\n"), 0o644)
	if _, err := LoadPresetFile(bad); err == nil {
		t.Fatalf("expected validation error")
	}
}
