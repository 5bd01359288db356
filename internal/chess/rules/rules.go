// Package rules wraps the chess rules library behind a FEN-in/FEN-out API so the
// turn controller and move policy never touch board internals.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrIllegalMove     = errors.New("rules: illegal move")
	ErrInvalidPosition = errors.New("rules: invalid position")
)

type Color int

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

type Terminal int

const (
	NotTerminal Terminal = iota
	Checkmate
	Stalemate
	InsufficientMaterial
	Repetition
	FiftyMove
)

func (t Terminal) String() string {
	switch t {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case InsufficientMaterial:
		return "insufficient_material"
	case Repetition:
		return "repetition"
	case FiftyMove:
		return "fifty_move"
	default:
		return "none"
	}
}

// Applied is the result of one accepted move.
type Applied struct {
	FEN      string
	UCI      string
	SAN      string
	Mover    Color
	Terminal Terminal
}

// Engine is the rules collaborator. Implementations must be safe for concurrent use.
type Engine interface {
	// Apply plays move (UCI or SAN) on fen. prior lists the positions reached
	// earlier in the game and is used for repetition detection only.
	Apply(fen, move string, prior []string) (Applied, error)
	LegalMoves(fen string) ([]string, error)
	SideToMove(fen string) (Color, error)
	PieceAt(fen, square string) (Color, bool, error)
}

type Standard struct{}

func NewStandard() Standard { return Standard{} }

func (Standard) Apply(fen, move string, prior []string) (Applied, error) {
	game, err := load(fen)
	if err != nil {
		return Applied{}, err
	}
	if game.Outcome() != nchess.NoOutcome {
		return Applied{}, fmt.Errorf("%w: game already finished", ErrIllegalMove)
	}

	pos := game.Position()
	text := strings.TrimSpace(move)
	if text == "" {
		return Applied{}, fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	notationSAN := nchess.AlgebraicNotation{}
	notationUCI := nchess.UCINotation{}
	mv, err := decodeMove(game, text)
	if err != nil {
		return Applied{}, fmt.Errorf("%w: %q", ErrIllegalMove, move)
	}
	if err := game.Move(mv, nil); err != nil {
		return Applied{}, fmt.Errorf("%w: %q", ErrIllegalMove, move)
	}

	next := game.FEN()
	out := Applied{
		FEN:   next,
		UCI:   strings.ToLower(notationUCI.Encode(pos, mv)),
		SAN:   notationSAN.Encode(pos, mv),
		Mover: colorFrom(pos.Turn()),
	}
	out.Terminal = classify(game, next, prior)
	return out, nil
}

// decodeMove reads coordinate moves as UCI, checked against the legal moves
// first. The SAN decoder accepts "g1f3" as the pawn move f3, so SAN is only
// tried for non-coordinate text.
func decodeMove(game *nchess.Game, text string) (*nchess.Move, error) {
	pos := game.Position()
	lower := strings.ToLower(text)
	if !IsCoordinateMove(lower) {
		return nchess.AlgebraicNotation{}.Decode(pos, text)
	}
	for _, mv := range game.ValidMoves() {
		if strings.ToLower(mv.String()) == lower {
			return nchess.UCINotation{}.Decode(pos, lower)
		}
	}
	return nil, fmt.Errorf("%q is not legal here", text)
}

// IsCoordinateMove reports whether s has the shape of a UCI move such as e2e4 or e7e8q.
func IsCoordinateMove(s string) bool {
	if len(s) != 4 && len(s) != 5 {
		return false
	}
	if !isSquare(s[0:2]) || !isSquare(s[2:4]) {
		return false
	}
	if len(s) == 5 {
		return strings.ContainsRune("qrbn", rune(s[4]))
	}
	return true
}

func isSquare(s string) bool {
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

func classify(game *nchess.Game, fen string, prior []string) Terminal {
	if game.Outcome() != nchess.NoOutcome {
		switch game.Method() {
		case nchess.Checkmate:
			return Checkmate
		case nchess.Stalemate:
			return Stalemate
		case nchess.InsufficientMaterial:
			return InsufficientMaterial
		case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
			return Repetition
		case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
			return FiftyMove
		}
	}
	if len(game.ValidMoves()) == 0 {
		if played := game.Moves(); len(played) > 0 && played[len(played)-1].HasTag(nchess.Check) {
			return Checkmate
		}
		return Stalemate
	}
	if bareMaterial(game.Position().Board()) {
		return InsufficientMaterial
	}
	if repetitions(fen, prior) >= 3 {
		return Repetition
	}
	if halfmoveClock(fen) >= 100 {
		return FiftyMove
	}
	return NotTerminal
}

func (Standard) LegalMoves(fen string) ([]string, error) {
	game, err := load(fen)
	if err != nil {
		return nil, err
	}
	if game.Outcome() != nchess.NoOutcome {
		return nil, nil
	}
	valid := game.ValidMoves()
	moves := make([]string, 0, len(valid))
	for _, mv := range valid {
		moves = append(moves, strings.ToLower(mv.String()))
	}
	return moves, nil
}

func (Standard) SideToMove(fen string) (Color, error) {
	game, err := load(fen)
	if err != nil {
		return White, err
	}
	return colorFrom(game.Position().Turn()), nil
}

func (Standard) PieceAt(fen, square string) (Color, bool, error) {
	game, err := load(fen)
	if err != nil {
		return White, false, err
	}
	sq, err := parseSquare(square)
	if err != nil {
		return White, false, err
	}
	piece := game.Position().Board().Piece(sq)
	if piece == nchess.NoPiece {
		return White, false, nil
	}
	return colorFrom(piece.Color()), true, nil
}

// PositionKey drops the move counters so equal positions compare equal.
func PositionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// bareMaterial reports king versus king with at most one minor piece on the board.
func bareMaterial(board *nchess.Board) bool {
	minors := 0
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			switch board.Piece(nchess.NewSquare(file, rank)).Type() {
			case nchess.NoPieceType, nchess.King:
			case nchess.Knight, nchess.Bishop:
				minors++
			default:
				return false
			}
		}
	}
	return minors <= 1
}

func repetitions(fen string, prior []string) int {
	key := PositionKey(fen)
	count := 1
	for _, p := range prior {
		if PositionKey(p) == key {
			count++
		}
	}
	return count
}

func halfmoveClock(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 5 {
		return 0
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return n
}

func load(fen string) (*nchess.Game, error) {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return nchess.NewGame(), nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return nchess.NewGame(option), nil
}

func parseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.A1, fmt.Errorf("invalid square %q", s)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.Black {
		return Black
	}
	return White
}
