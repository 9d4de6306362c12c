package shogi_test

import (
	"errors"
	"testing"

	"shogirule/pkg/shogi"
)

func TestApplyMoveNoneCheck_Capture(t *testing.T) {
	s, turn, mc := play(t, shogi.NewState(shogi.InitialBanmen()), shogi.Sente, shogi.MochigomaCollections{},
		"7g7f", "3c3d")
	before := s
	next, nmc, obtained := shogi.ApplyMoveNoneCheck(&s, turn, &mc, mustMove(t, "8h2b+"))
	if obtained != shogi.ObtainKaku {
		t.Fatalf("unexpected capture: got %v want %v", obtained, shogi.ObtainKaku)
	}
	if nmc.Sente[shogi.MochigomaKaku] != 1 {
		t.Fatalf("unexpected sente bishops in hand: got %d want 1", nmc.Sente[shogi.MochigomaKaku])
	}
	if got := next.Banmen().At(sq(2, 2)); got != shogi.SKakuN {
		t.Fatalf("unexpected piece on 2b: got %v want %v", got, shogi.SKakuN)
	}
	if got := next.Banmen().At(sq(8, 8)); got != shogi.Blank {
		t.Fatalf("unexpected piece on 8h: got %v want blank", got)
	}
	if err := next.Validate(&nmc); err != nil {
		t.Fatalf("unexpected invalid state: %v", err)
	}
	if before != s || mc.Sente[shogi.MochigomaKaku] != 0 {
		t.Fatal("apply mutated its input")
	}

	// Taking the horse back hands gote an unpromoted bishop.
	back, bmc, obtained := shogi.ApplyMoveNoneCheck(&next, shogi.Gote, &nmc, mustMove(t, "3a2b"))
	if obtained != shogi.ObtainKakuN {
		t.Fatalf("unexpected capture: got %v want %v", obtained, shogi.ObtainKakuN)
	}
	if bmc.Gote[shogi.MochigomaKaku] != 1 {
		t.Fatalf("unexpected gote bishops in hand: got %d want 1", bmc.Gote[shogi.MochigomaKaku])
	}
	if err := back.Validate(&bmc); err != nil {
		t.Fatalf("unexpected invalid state: %v", err)
	}

	dropped, dmc, _ := shogi.ApplyMoveNoneCheck(&back, shogi.Sente, &bmc, mustMove(t, "B*4e"))
	if dmc.Sente[shogi.MochigomaKaku] != 0 {
		t.Fatalf("unexpected bishops in hand after the drop: got %d", dmc.Sente[shogi.MochigomaKaku])
	}
	if got := dropped.Banmen().At(sq(4, 5)); got != shogi.SKaku {
		t.Fatalf("unexpected piece on 4e: got %v want %v", got, shogi.SKaku)
	}
	if err := dropped.Validate(&dmc); err != nil {
		t.Fatalf("unexpected invalid state: %v", err)
	}
}

func TestApplyMoveToPartialState(t *testing.T) {
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	m := mustMove(t, "2h2d")
	ps, moved := shogi.ApplyMoveToPartialState(&s, shogi.Sente, &mc, m)
	if moved != shogi.SHisha {
		t.Fatalf("unexpected moved kind: got %v want %v", moved, shogi.SHisha)
	}
	full, _, _ := shogi.ApplyMoveNoneCheck(&s, shogi.Sente, &mc, m)
	if ps != *full.Partial() {
		t.Fatal("partial update disagrees with the full apply")
	}
}

// TestApplyMoves_HashCoherence replays a short game and checks the
// incremental hashes against hashing the final position from scratch.
func TestApplyMoves_HashCoherence(t *testing.T) {
	hasher := shogi.NewKyokumenHash(shogi.DefaultHashSeed)
	cases := []struct {
		name  string
		moves []string
		turn  shogi.Teban
	}{
		{"pawns and knights", []string{"1g1f", "9c9d", "1f1e", "9d9e", "7g7f", "3c3d", "8i7g", "2a3c"}, shogi.Sente},
		{"captures and drops", []string{"7g7f", "3c3d", "8h2b+", "3a2b", "B*4e", "B*6e", "4e6c+"}, shogi.Gote},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			banmen := shogi.InitialBanmen()
			var mc shogi.MochigomaCollections
			m0, s0 := hasher.CalcInitialHash(&banmen, &mc, shogi.Sente)
			turn, s, nmc, mhash, shash := shogi.ApplyMoves(shogi.NewState(banmen), shogi.Sente, mc,
				mustMoves(t, c.moves...), m0, s0, nil, nil, hasher)
			if turn != c.turn {
				t.Fatalf("unexpected side to move: got %v want %v", turn, c.turn)
			}
			wantM, wantS := hasher.CalcInitialHash(s.Banmen(), &nmc, turn)
			if mhash != wantM || shash != wantS {
				t.Fatalf("unexpected hashes: got (%x, %x) want (%x, %x)", mhash, shash, wantM, wantS)
			}
			if mhash == m0 && shash == s0 {
				t.Fatal("hash did not change")
			}
			if err := s.Validate(&nmc); err != nil {
				t.Fatalf("unexpected invalid state: %v", err)
			}
		})
	}
}

// TestKyokumenHash_SideToMove verifies the same board hashes differently
// depending on who moves.
func TestKyokumenHash_SideToMove(t *testing.T) {
	hasher := shogi.NewKyokumenHash(1)
	banmen := shogi.InitialBanmen()
	var mc shogi.MochigomaCollections
	sm, ss := hasher.CalcInitialHash(&banmen, &mc, shogi.Sente)
	gm, gs := hasher.CalcInitialHash(&banmen, &mc, shogi.Gote)
	if sm == gm || ss == gs {
		t.Fatal("side to move does not reach the hash")
	}
	again := shogi.NewKyokumenHash(1)
	if m, s := again.CalcInitialHash(&banmen, &mc, shogi.Sente); m != sm || s != ss {
		t.Fatal("same seed should give the same hash")
	}
	other := shogi.NewKyokumenHash(2)
	if m, _ := other.CalcInitialHash(&banmen, &mc, shogi.Sente); m == sm {
		t.Fatal("different seeds should give different hashes")
	}
}

func TestApplyMovesWithCallback(t *testing.T) {
	hasher := shogi.NewKyokumenHash(shogi.DefaultHashSeed)
	banmen := shogi.InitialBanmen()
	var mc shogi.MochigomaCollections
	m0, s0 := hasher.CalcInitialHash(&banmen, &mc, shogi.Sente)
	var seen []string
	var captures int
	turn, _, _, _, _ := shogi.ApplyMovesWithCallback(shogi.NewState(banmen), shogi.Sente, mc,
		mustMoves(t, "7g7f", "3c3d", "8h2b+", "3a2b", "B*4e"), m0, s0, nil, nil, hasher,
		func(turn shogi.Teban, before, after *shogi.State, m shogi.AppliedMove, obtained shogi.ObtainKind) bool {
			seen = append(seen, m.String())
			if obtained != shogi.ObtainNone {
				captures++
			}
			return len(seen) < 4
		})
	if len(seen) != 4 {
		t.Fatalf("unexpected plies visited: got %d want 4", len(seen))
	}
	if captures != 2 {
		t.Fatalf("unexpected captures: got %d want 2", captures)
	}
	if turn != shogi.Sente {
		t.Fatalf("unexpected side to move: got %v want %v", turn, shogi.Sente)
	}
}

func TestValidateMove_Errors(t *testing.T) {
	s := buildState(at(5, 9, shogi.SOu), at(5, 1, shogi.GOu), at(7, 7, shogi.SFu), at(4, 8, shogi.SKin),
		at(5, 8, shogi.SGin), at(1, 5, shogi.GHisha), at(3, 9, shogi.SHisha))
	var mc shogi.MochigomaCollections
	mc.Sente[shogi.MochigomaFu] = 1
	mc.Sente[shogi.MochigomaKei] = 1
	cases := []struct {
		move string
		want error
	}{
		{"P*3a", shogi.ErrIllegalImmobile},
		{"N*3b", shogi.ErrIllegalImmobile},
		{"P*7e", shogi.ErrIllegalNifu},
		{"L*3e", shogi.ErrInvalidMove},
		{"P*5h", shogi.ErrInvalidMove},
		{"4h4g+", shogi.ErrInvalidMove},
		{"5h5f", shogi.ErrInvalidMove},
		{"6h6g", shogi.ErrInvalidMove},
		{"3i3h+", shogi.ErrInvalidMove},
		{"5i4i", nil},
		{"3i3a+", nil},
	}
	for _, c := range cases {
		t.Run(c.move, func(t *testing.T) {
			err := shogi.ValidateMove(shogi.Sente, &s, &mc, mustMove(t, c.move))
			if !errors.Is(err, c.want) || (c.want == nil && err != nil) {
				t.Fatalf("unexpected error: got %v want %v", err, c.want)
			}
			if err == nil {
				return
			}
			var me *shogi.MoveError
			if !errors.As(err, &me) || me.Move != mustMove(t, c.move) {
				t.Fatalf("error does not carry the move: %v", err)
			}
		})
	}

	pinned := buildState(at(5, 9, shogi.SOu), at(5, 7, shogi.SKin), at(5, 1, shogi.GHisha), at(1, 1, shogi.GOu))
	var none shogi.MochigomaCollections
	if err := shogi.ValidateMove(shogi.Sente, &pinned, &none, mustMove(t, "5g4g")); !errors.Is(err, shogi.ErrIllegalNotRespondedCheck) {
		t.Fatalf("unexpected error: got %v want %v", err, shogi.ErrIllegalNotRespondedCheck)
	}
	if _, _, _, err := shogi.ApplyValidMove(&pinned, shogi.Sente, &none, mustMove(t, "5g4g")); err == nil {
		t.Fatal("ApplyValidMove accepted an illegal move")
	}
}

func BenchmarkApplyMoveNoneCheck(b *testing.B) {
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	m, _ := shogi.ParseAppliedMove("7g7f")
	for i := 0; i < b.N; i++ {
		shogi.ApplyMoveNoneCheck(&s, shogi.Sente, &mc, m)
	}
}
