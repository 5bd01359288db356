package chess

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-trainer/internal/chess/rules"
)

// DefaultRating is used to configure the engine for profiles without a rating.
const DefaultRating = 1500

type MoveSource string

const (
	SourceOpeningBook MoveSource = "opening_book"
	SourceEngine      MoveSource = "engine"
	SourceRandom      MoveSource = "random"
)

func (s MoveSource) valid() bool {
	switch s {
	case SourceOpeningBook, SourceEngine, SourceRandom:
		return true
	}
	return false
}

// BotProfile describes one opponent. Profiles are values; the catalog hands out copies.
type BotProfile struct {
	ID     string     `yaml:"id" json:"id"`
	Name   string     `yaml:"name" json:"name"`
	Label  string     `yaml:"label" json:"label"`
	Source MoveSource `yaml:"source" json:"source"`
	Rating *int       `yaml:"rating,omitempty" json:"rating,omitempty"`
	// PinnedColor is the color always given to the human, if set.
	PinnedColor  string `yaml:"pinned_color,omitempty" json:"pinned_color,omitempty"`
	BookLine     string `yaml:"book_line,omitempty" json:"book_line,omitempty"`
	Personalized bool   `yaml:"personalized,omitempty" json:"personalized,omitempty"`
}

func (p BotProfile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("bot id is required")
	}
	if !p.Source.valid() {
		return fmt.Errorf("bot %s: unknown move source %q", p.ID, p.Source)
	}
	if p.Source == SourceEngine && p.Rating == nil {
		return fmt.Errorf("bot %s: engine profile requires a rating", p.ID)
	}
	if p.Rating != nil && *p.Rating < 0 {
		return fmt.Errorf("bot %s: rating must be >= 0", p.ID)
	}
	if p.Source == SourceOpeningBook && strings.TrimSpace(p.BookLine) == "" {
		return fmt.Errorf("bot %s: opening book profile requires a line", p.ID)
	}
	if p.PinnedColor != "" {
		if _, err := rules.ParseColor(p.PinnedColor); err != nil {
			return fmt.Errorf("bot %s: %w", p.ID, err)
		}
	}
	return nil
}

// EngineRating is the rating the engine is configured with for this profile.
func (p BotProfile) EngineRating() int {
	if p.Rating == nil {
		return DefaultRating
	}
	return *p.Rating
}

// PlayerColor reports the color pinned for the human, if any.
func (p BotProfile) PlayerColor() (rules.Color, bool) {
	if p.PinnedColor == "" {
		return rules.White, false
	}
	c, err := rules.ParseColor(p.PinnedColor)
	if err != nil {
		return rules.White, false
	}
	return c, true
}

func (p BotProfile) clone() BotProfile {
	if p.Rating != nil {
		r := *p.Rating
		p.Rating = &r
	}
	return p
}

func Rating(v int) *int { return &v }
