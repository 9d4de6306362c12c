package shogi_test

import (
	"testing"

	"shogirule/pkg/shogi"
)

func TestPerft_InitialPosition(t *testing.T) {
	want := []uint64{1, 30, 900, 25470}
	if testing.Short() {
		want = want[:3]
	}
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	for depth, n := range want {
		if got := shogi.Perft(shogi.Sente, &s, &mc, depth); got != n {
			t.Fatalf("unexpected perft(%d): got %d want %d", depth, got, n)
		}
	}
}

func TestDivide(t *testing.T) {
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	entries := shogi.Divide(shogi.Sente, &s, &mc, 2)
	if len(entries) != 30 {
		t.Fatalf("unexpected root moves: got %d want 30", len(entries))
	}
	var total uint64
	for _, e := range entries {
		if e.Nodes != 30 {
			t.Fatalf("unexpected replies to %s: got %d want 30", e.Move, e.Nodes)
		}
		total += e.Nodes
	}
	if total != 900 {
		t.Fatalf("unexpected total: got %d want 900", total)
	}
}

func BenchmarkPerft3(b *testing.B) {
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	for i := 0; i < b.N; i++ {
		shogi.Perft(shogi.Sente, &s, &mc, 3)
	}
}
