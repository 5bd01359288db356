package openingbook

// Line is a named preparatory sequence. Each variation is a full move list in
// UCI notation starting from the initial position; the book plays the moves of
// Color while the game stays on one of the variations.
type Line struct {
	Name       string
	Color      string
	Variations [][]string
}

const Sicilian = "sicilian"

var defaultLines = []Line{
	{
		Name:  Sicilian,
		Color: "black",
		Variations: [][]string{
			// open, Najdorf setup
			{"e2e4", "c7c5", "g1f3", "d7d6", "d2d4", "c5d4", "f3d4", "g8f6", "b1c3", "a7a6"},
			// open with 2...Nc6
			{"e2e4", "c7c5", "g1f3", "b8c6", "d2d4", "c5d4", "f3d4", "g8f6", "b1c3", "e7e5"},
			// closed
			{"e2e4", "c7c5", "b1c3", "b8c6", "g2g3", "g7g6", "f1g2", "f8g7", "d2d3", "d7d6"},
			// Alapin
			{"e2e4", "c7c5", "c2c3", "d7d5", "e4d5", "d8d5", "d2d4", "g8f6"},
			// Smith-Morra declined
			{"e2e4", "c7c5", "d2d4", "c5d4", "c2c3", "g8f6", "e4e5", "f6d5"},
		},
	},
}

// DefaultLines returns a copy of the built-in lines.
func DefaultLines() []Line {
	out := make([]Line, 0, len(defaultLines))
	for _, l := range defaultLines {
		vars := make([][]string, 0, len(l.Variations))
		for _, v := range l.Variations {
			vars = append(vars, append([]string(nil), v...))
		}
		out = append(out, Line{Name: l.Name, Color: l.Color, Variations: vars})
	}
	return out
}
