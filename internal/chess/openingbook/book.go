// Package openingbook answers "is there a prepared move here" from named lines
// and, when configured, a polyglot book file.
package openingbook

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

type Result struct {
	Move   string
	Weight uint16
	Source string
}

type Book struct {
	lines    map[string]Line
	polyglot *chesslib.PolyglotBook

	ecoOnce sync.Once
	eco     *opening.BookECO
}

// New builds a book over lines. polyglotPath may be empty.
func New(lines []Line, polyglotPath string) (*Book, error) {
	b := &Book{lines: make(map[string]Line, len(lines))}
	for _, l := range lines {
		key := normalizeToken(l.Name)
		if key == "" {
			return nil, fmt.Errorf("opening line name is required")
		}
		b.lines[key] = l
	}
	if strings.TrimSpace(polyglotPath) != "" {
		pg, err := LoadFromPath(polyglotPath)
		if err != nil {
			return nil, err
		}
		b.polyglot = pg
	}
	return b, nil
}

// HasLine reports whether name is a known line.
func (b *Book) HasLine(name string) bool {
	_, ok := b.lines[normalizeToken(name)]
	return ok
}

// Lookup returns the prepared move for the game reached by history (UCI moves
// from the initial position). The named line is consulted first, then the
// polyglot book. ok is false once the game has left the book.
func (b *Book) Lookup(lineName, fen string, history []string, r *rand.Rand) (Result, bool, error) {
	if line, ok := b.lines[normalizeToken(lineName)]; ok {
		if mv, ok := lineMove(line, history, r); ok {
			return Result{Move: mv, Source: line.Name}, true, nil
		}
	}
	if b.polyglot == nil {
		return Result{}, false, nil
	}
	res, err := b.lookupPolyglot(fen)
	if err != nil {
		return Result{}, false, err
	}
	if res.Move == "" {
		return Result{}, false, nil
	}
	return res, true, nil
}

func lineMove(line Line, history []string, r *rand.Rand) (string, bool) {
	if sideFromHistory(history) != normalizeToken(line.Color) {
		return "", false
	}
	seen := make(map[string]struct{})
	var candidates []string
	for _, v := range line.Variations {
		if len(history) >= len(v) || !prefixMatches(v, history) {
			continue
		}
		next := strings.ToLower(v[len(history)])
		if _, dup := seen[next]; dup {
			continue
		}
		seen[next] = struct{}{}
		candidates = append(candidates, next)
	}
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0], true
	}
	if r == nil {
		return candidates[0], true
	}
	return candidates[r.Intn(len(candidates))], true
}

func (b *Book) lookupPolyglot(fen string) (Result, error) {
	game, err := buildGame(fen)
	if err != nil {
		return Result{}, err
	}
	hasher := chesslib.NewZobristHasher()
	hashStr, err := hasher.HashPosition(game.FEN())
	if err != nil {
		return Result{}, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := b.polyglot.FindMoves(chesslib.ZobristHashToUint64(hashStr))
	if len(entries) == 0 {
		return Result{}, nil
	}

	entry := entries[0]
	bm := chesslib.DecodeMove(entry.Move).ToMove()
	uciMove := strings.ToLower(bm.String())
	if err := game.PushNotationMove(uciMove, chesslib.UCINotation{}, nil); err != nil {
		return Result{}, fmt.Errorf("book move %q invalid for position: %w", uciMove, err)
	}
	return Result{Move: uciMove, Weight: entry.Weight, Source: "polyglot"}, nil
}

// Name returns the ECO code and title of the opening reached by history, if known.
func (b *Book) Name(history []string) (string, string) {
	b.ecoOnce.Do(func() { b.eco = opening.NewBookECO() })
	game := chesslib.NewGame()
	for _, mv := range history {
		if err := game.PushNotationMove(mv, chesslib.UCINotation{}, nil); err != nil {
			return "", ""
		}
	}
	eco := b.eco.Find(game.Moves())
	if eco == nil {
		return "", ""
	}
	return eco.Code(), eco.Title()
}

func LoadFromPath(bookPath string) (*chesslib.PolyglotBook, error) {
	if strings.TrimSpace(bookPath) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(bookPath)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", bookPath, err)
	}
	defer file.Close()

	book, err := chesslib.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", bookPath, err)
	}
	return book, nil
}

func buildGame(fen string) (*chesslib.Game, error) {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return chesslib.NewGame(), nil
	}
	option, err := chesslib.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return chesslib.NewGame(option), nil
}

func prefixMatches(variation, history []string) bool {
	for i, mv := range history {
		if !strings.EqualFold(strings.TrimSpace(variation[i]), strings.TrimSpace(mv)) {
			return false
		}
	}
	return true
}

func sideFromHistory(history []string) string {
	if len(history)%2 == 0 {
		return "white"
	}
	return "black"
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
