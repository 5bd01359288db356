package openingbook

import (
	"math/rand"
	"strings"
	"testing"

	chesslib "github.com/corentings/chess/v2"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	b, err := New(DefaultLines(), "")
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	return b
}

func TestSicilianAnswersKingPawn(t *testing.T) {
	b := newTestBook(t)
	res, ok, err := b.Lookup(Sicilian, "", []string{"e2e4"}, rand.New(rand.NewSource(1)))
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if res.Move != "c7c5" || res.Source != Sicilian {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSicilianFollowsVariation(t *testing.T) {
	b := newTestBook(t)
	res, ok, _ := b.Lookup(Sicilian, "", []string{"e2e4", "c7c5", "c2c3"}, nil)
	if !ok || res.Move != "d7d5" {
		t.Fatalf("alapin reply = %+v ok=%v", res, ok)
	}
}

func TestSicilianBranchesAreRandomised(t *testing.T) {
	b := newTestBook(t)
	seen := map[string]bool{}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		res, ok, _ := b.Lookup(Sicilian, "", []string{"e2e4", "c7c5", "g1f3"}, r)
		if !ok {
			t.Fatalf("expected book move")
		}
		seen[res.Move] = true
	}
	if !seen["d7d6"] || !seen["b8c6"] || len(seen) != 2 {
		t.Fatalf("unexpected branch set %v", seen)
	}
}

func TestLeavesBookOnDivergence(t *testing.T) {
	b := newTestBook(t)
	if _, ok, _ := b.Lookup(Sicilian, "", []string{"d2d4"}, nil); ok {
		t.Fatalf("queen pawn opening is not in the line")
	}
	if _, ok, _ := b.Lookup(Sicilian, "", nil, nil); ok {
		t.Fatalf("book plays black only")
	}
	if _, ok, _ := b.Lookup("unknown", "", []string{"e2e4"}, nil); ok {
		t.Fatalf("unknown line must not answer")
	}
}

func TestNewRejectsUnnamedLine(t *testing.T) {
	if _, err := New([]Line{{Color: "black"}}, ""); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := New(nil, "/does/not/exist.bin"); err == nil {
		t.Fatalf("expected error for missing polyglot file")
	}
}

func TestNameIdentifiesSicilian(t *testing.T) {
	b := newTestBook(t)
	code, title := b.Name([]string{"e2e4", "c7c5"})
	if !strings.HasPrefix(code, "B2") || !strings.Contains(title, "Sicilian") {
		t.Fatalf("eco = %q %q", code, title)
	}
}

func TestPolyglotAnswersOffLine(t *testing.T) {
	b := newTestBook(t)
	hash, err := chesslib.NewZobristHasher().HashPosition(chesslib.NewGame().FEN())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mv, err := chesslib.UCINotation{}.Decode(nil, "g1f3")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b.polyglot = chesslib.NewPolyglotBookFromMap(map[uint64][]chesslib.MoveWithWeight{
		chesslib.ZobristHashToUint64(hash): {{Move: *mv, Weight: 7}},
	})

	res, ok, err := b.Lookup("unknown", "startpos", nil, nil)
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if res.Move != "g1f3" || res.Weight != 7 || res.Source != "polyglot" {
		t.Fatalf("unexpected result %+v", res)
	}
}
