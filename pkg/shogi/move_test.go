package shogi_test

import (
	"errors"
	"testing"

	"shogirule/pkg/shogi"
)

func TestMove_RoundTrip(t *testing.T) {
	for _, text := range []string{"7g7f", "8h2b+", "2b8h", "P*5e", "R*1a", "9a1i", "1i9a+"} {
		m, err := shogi.ParseMove(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		applied, err := m.Applied()
		if err != nil {
			t.Fatalf("convert %q: %v", text, err)
		}
		if got := applied.Move(); got != m {
			t.Fatalf("unexpected coordinate form: got %+v want %+v", got, m)
		}
		if got := applied.String(); got != text {
			t.Fatalf("unexpected text: got %s want %s", got, text)
		}
	}
}

func TestLegalMove_Encoding(t *testing.T) {
	lm := shogi.NewLegalMoveTo(sq(8, 8), sq(2, 2), true, shogi.ObtainKaku)
	m := shogi.LegalMoveFromTo(lm)
	if m.IsPut() {
		t.Fatal("board move tagged as a drop")
	}
	if m.To().Src() != sq(8, 8) || m.To().Dst() != sq(2, 2) || !m.To().IsNari() {
		t.Fatalf("unexpected fields: %d %d %v", m.To().Src(), m.To().Dst(), m.To().IsNari())
	}
	if m.To().Obtained() != shogi.ObtainKaku {
		t.Fatalf("unexpected capture: got %v want %v", m.To().Obtained(), shogi.ObtainKaku)
	}
	if got, want := m.Applied(), shogi.AppliedMoveFromTo(shogi.NewAppliedMoveTo(sq(8, 8), sq(2, 2), true)); got != want {
		t.Fatalf("unexpected applied move: got %v want %v", got, want)
	}
	plain := shogi.NewLegalMoveTo(0, 1, false, shogi.ObtainNone)
	if plain.Obtained() != shogi.ObtainNone {
		t.Fatalf("unexpected capture: got %v want none", plain.Obtained())
	}

	put := shogi.LegalMoveFromPut(shogi.NewLegalMovePut(shogi.MochigomaHisha, 80))
	if !put.IsPut() || put.Put().Kind() != shogi.MochigomaHisha || put.Put().Dst() != 80 {
		t.Fatalf("unexpected drop fields: %v %d", put.Put().Kind(), put.Put().Dst())
	}
	if got := put.Applied(); !got.IsPut() || got.Put().Kind() != shogi.MochigomaHisha || got.Dst() != 80 {
		t.Fatalf("unexpected applied drop: %v", got)
	}
}

// TestAppliedMove_Legal re-derives the capture from the board.
func TestAppliedMove_Legal(t *testing.T) {
	s, _, _ := play(t, shogi.NewState(shogi.InitialBanmen()), shogi.Sente, shogi.MochigomaCollections{}, "7g7f", "3c3d")
	m := mustMove(t, "8h2b+")
	lm := m.Legal(s.Banmen())
	if lm.To().Obtained() != shogi.ObtainKaku {
		t.Fatalf("unexpected capture: got %v want %v", lm.To().Obtained(), shogi.ObtainKaku)
	}
	if lm.Applied() != m {
		t.Fatal("legal form does not map back")
	}
}

func TestParseMove_Errors(t *testing.T) {
	for _, text := range []string{"", "7g7", "0a1a", "7j7f", "X*5e", "7g7f=", "P*5e+", "7g7g"} {
		if _, err := shogi.ParseAppliedMove(text); !errors.Is(err, shogi.ErrMoveFormat) {
			t.Fatalf("parse %q: got %v want %v", text, err, shogi.ErrMoveFormat)
		}
	}
}

func TestPointToSquare(t *testing.T) {
	for s := 0; s < 81; s++ {
		f, r := shogi.SquareToPoint(s)
		if got := shogi.PointToSquare(f, r); got != s {
			t.Fatalf("unexpected square for %d%d: got %d want %d", f, r, got, s)
		}
	}
	if f, r := shogi.SquareToPoint(0); f != 9 || r != 1 {
		t.Fatalf("unexpected point of square 0: got %d%d want 91", f, r)
	}
}
