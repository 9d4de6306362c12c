package shogi_test

import (
	"testing"

	"shogirule/pkg/shogi"
)

type placement struct {
	file, rank int
	kind       shogi.KomaKind
}

func at(file, rank int, kind shogi.KomaKind) placement {
	return placement{file: file, rank: rank, kind: kind}
}

func buildBanmen(ps ...placement) shogi.Banmen {
	b := shogi.EmptyBanmen()
	for _, p := range ps {
		b[p.rank-1][9-p.file] = p.kind
	}
	return b
}

func buildState(ps ...placement) shogi.State {
	return shogi.NewState(buildBanmen(ps...))
}

func sq(file, rank int) int { return shogi.PointToSquare(file, rank) }

func mustMove(t testing.TB, text string) shogi.AppliedMove {
	t.Helper()
	m, err := shogi.ParseAppliedMove(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return m
}

func mustMoves(t testing.TB, texts ...string) []shogi.AppliedMove {
	t.Helper()
	out := make([]shogi.AppliedMove, 0, len(texts))
	for _, s := range texts {
		out = append(out, mustMove(t, s))
	}
	return out
}

func containsMove(mvs []shogi.LegalMove, m shogi.AppliedMove) bool {
	for _, mv := range mvs {
		if mv.Applied() == m {
			return true
		}
	}
	return false
}

func destinations(mvs []shogi.LegalMove) map[int]bool {
	out := make(map[int]bool)
	for _, mv := range mvs {
		out[mv.Applied().Dst()] = true
	}
	return out
}

// play applies moves with validation and fails the test on the first error.
func play(t testing.TB, s shogi.State, turn shogi.Teban, mc shogi.MochigomaCollections, moves ...string) (shogi.State, shogi.Teban, shogi.MochigomaCollections) {
	t.Helper()
	for _, text := range moves {
		next, nmc, _, err := shogi.ApplyValidMove(&s, turn, &mc, mustMove(t, text))
		if err != nil {
			t.Fatalf("move %s: %v", text, err)
		}
		s, mc, turn = next, nmc, turn.Opposite()
	}
	return s, turn, mc
}
