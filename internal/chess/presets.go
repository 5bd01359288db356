package chess

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/park285/cheese-trainer/internal/chess/openingbook"
)

func engineBot(id, name string, rating int) BotProfile {
	return BotProfile{
		ID:     id,
		Name:   name,
		Label:  fmt.Sprintf("Stockfish %d", rating),
		Source: SourceEngine,
		Rating: Rating(rating),
	}
}

// DefaultPresets returns the built-in opponents in display order.
func DefaultPresets() []BotProfile {
	training := engineBot("training-bot", "Training Bot", DefaultRating)
	training.Label = "The training ground"
	return []BotProfile{
		training,
		{
			ID:          "rookinator",
			Name:        "Rookinator",
			Label:       "Strategic Bot (Sicilian)",
			Source:      SourceOpeningBook,
			PinnedColor: "white",
			BookLine:    openingbook.Sicilian,
		},
		{
			ID:     "pawnstar",
			Name:   "Pawnstar",
			Label:  "Random Moves Bot",
			Source: SourceRandom,
		},
		engineBot("knight-fury", "Knight Fury", 500),
		engineBot("bishop-blitz", "Bishop Blitz", 1000),
		engineBot("queen-quest", "Queen Quest", 1250),
		engineBot("king-crusher", "King Crusher", 1500),
		engineBot("castling-conqueror", "Castling Conqueror", 1750),
		engineBot("pawnstorm", "Pawnstorm", 2000),
		engineBot("checkmate-champ", "Checkmate Champ", 2250),
		engineBot("endgame-expert", "Endgame Expert", 2500),
	}
}

type presetFile struct {
	Bots []BotProfile `yaml:"bots"`
}

// LoadPresetFile reads a YAML list of bots that replaces the built-in presets.
func LoadPresetFile(path string) ([]BotProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bot presets %q: %w", path, err)
	}
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode bot presets %q: %w", path, err)
	}
	if len(file.Bots) == 0 {
		return nil, fmt.Errorf("bot presets %q: no bots defined", path)
	}
	for _, b := range file.Bots {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("bot presets %q: %w", path, err)
		}
	}
	return file.Bots, nil
}
