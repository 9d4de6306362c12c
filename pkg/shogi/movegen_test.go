package shogi_test

import (
	"fmt"
	"testing"

	"shogirule/pkg/shogi"
)

// TestLegalMovesAll_InitialPosition verifies the canonical 30 opening moves
// for either side.
func TestLegalMovesAll_InitialPosition(t *testing.T) {
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	for _, turn := range []shogi.Teban{shogi.Sente, shogi.Gote} {
		mvs := shogi.LegalMovesAll(turn, &s, &mc)
		if len(mvs) != 30 {
			t.Fatalf("unexpected move count for %s: got %d want 30", turn, len(mvs))
		}
	}
	mvs := shogi.LegalMovesAll(shogi.Sente, &s, &mc)
	if got := mvs[0].String(); got != "9g9f" {
		t.Fatalf("unexpected first move: got %s want 9g9f", got)
	}
	gote := shogi.LegalMovesAll(shogi.Gote, &s, &mc)
	if got := gote[0].String(); got != "1c1d" {
		t.Fatalf("unexpected first gote move: got %s want 1c1d", got)
	}
}

// TestLegalMovesAll_Properties walks a few plies from the initial position and
// checks every generated move.
func TestLegalMovesAll_Properties(t *testing.T) {
	s, turn, mc := play(t, shogi.NewState(shogi.InitialBanmen()), shogi.Sente, shogi.MochigomaCollections{},
		"7g7f", "3c3d", "8h2b+", "3a2b", "B*4e", "8b3b")
	positions := []shogi.State{s}
	for _, m := range shogi.LegalMovesAll(turn, &s, &mc) {
		next, _, _ := shogi.ApplyMoveNoneCheck(&s, turn, &mc, m.Applied())
		positions = append(positions, next)
	}
	for i, pos := range positions {
		for _, side := range []shogi.Teban{shogi.Sente, shogi.Gote} {
			hands := mc
			mvs := shogi.LegalMovesAll(side, &pos, &hands)
			seen := make(map[shogi.LegalMove]bool)
			for _, m := range mvs {
				if seen[m] {
					t.Fatalf("position %d: duplicate move %s", i, m)
				}
				seen[m] = true
				if !m.IsPut() && m.To().Obtained() == shogi.ObtainOu {
					continue
				}
				next, nmc, _ := shogi.ApplyMoveNoneCheck(&pos, side, &hands, m.Applied())
				if err := next.Validate(&nmc); err != nil {
					t.Fatalf("position %d: %s after %s: %v", i, side, m, err)
				}
				if w := shogi.WinOnlyMoves(side.Opposite(), &next); len(w) != 0 {
					t.Fatalf("position %d: %s leaves the king capturable", i, m)
				}
				if !shogi.IsValidMove(side, &pos, &hands, m.Applied()) {
					t.Fatalf("position %d: generated move %s fails validation", i, m)
				}
			}
		}
	}
}

func TestLegalMovesFrom_Sliders(t *testing.T) {
	cases := []struct {
		name     string
		piece    placement
		wantDsts int
		wantMvs  int
	}{
		// The corner bishop starts in the zone, so each destination has both variants.
		{"bishop in the corner", at(9, 1, shogi.SKaku), 8, 16},
		{"rook in the centre", at(5, 5, shogi.SHisha), 16, 16 + 3},
		{"horse in the centre", at(5, 5, shogi.SKakuN), 16 + 4, 16 + 4},
		{"dragon in the centre", at(5, 5, shogi.SHishaN), 16 + 4, 16 + 4},
		{"lance on the last file", at(1, 9, shogi.SKyou), 8, 8 + 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := buildState(c.piece)
			x, y := 9-c.piece.file, c.piece.rank-1
			mvs := shogi.LegalMovesFrom(shogi.Sente, &s, x, y)
			if got := len(destinations(mvs)); got != c.wantDsts {
				t.Fatalf("unexpected destination count: got %d want %d", got, c.wantDsts)
			}
			if len(mvs) != c.wantMvs {
				t.Fatalf("unexpected move count: got %d want %d", len(mvs), c.wantMvs)
			}
		})
	}
}

// TestLegalMovesFrom_Blocked verifies sliders stop at the first piece and can
// take it only when it belongs to the opponent.
func TestLegalMovesFrom_Blocked(t *testing.T) {
	s := buildState(at(5, 5, shogi.SHisha), at(5, 3, shogi.GFu), at(3, 5, shogi.SFu), at(9, 9, shogi.SOu), at(1, 1, shogi.GOu))
	mvs := shogi.LegalMovesFrom(shogi.Sente, &s, 4, 4)
	dsts := destinations(mvs)
	if !dsts[sq(5, 3)] {
		t.Fatal("rook should capture the pawn on 5c")
	}
	if dsts[sq(5, 2)] {
		t.Fatal("rook should not pass the pawn on 5c")
	}
	if dsts[sq(3, 5)] || dsts[sq(2, 5)] {
		t.Fatal("rook should stop before its own pawn on 3e")
	}
	if !dsts[sq(4, 5)] {
		t.Fatal("rook should reach 4e")
	}
	for _, m := range mvs {
		if m.To().Dst() == sq(5, 3) && m.To().Obtained() != shogi.ObtainFu {
			t.Fatalf("unexpected capture annotation: got %v want %v", m.To().Obtained(), shogi.ObtainFu)
		}
	}
}

func TestLegalMoves_Promotion(t *testing.T) {
	cases := []struct {
		name     string
		pieces   []placement
		move     string
		wantNari bool
		wantPlan bool
	}{
		{"pawn into zone", []placement{at(5, 4, shogi.SFu)}, "5d5c", true, true},
		{"pawn to last rank must promote", []placement{at(5, 2, shogi.SFu)}, "5b5a", true, false},
		{"knight to second rank must promote", []placement{at(5, 4, shogi.SKei)}, "5d4b", true, false},
		{"knight to third rank may stay", []placement{at(5, 5, shogi.SKei)}, "5e4c", true, true},
		{"silver leaving zone", []placement{at(5, 3, shogi.SGin)}, "5c4d", true, true},
		{"silver outside zone", []placement{at(5, 6, shogi.SGin)}, "5f5e", false, true},
		{"gold never promotes", []placement{at(5, 4, shogi.SKin)}, "5d5c", false, true},
		{"king never promotes", []placement{at(5, 4, shogi.SOu)}, "5d5c", false, true},
		{"promoted silver never promotes", []placement{at(5, 4, shogi.SGinN)}, "5d5c", false, true},
		{"gote pawn to last rank", []placement{at(5, 8, shogi.GFu)}, "5h5i", true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := buildState(c.pieces...)
			turn := shogi.Sente
			if c.pieces[0].kind.IsGote() {
				turn = shogi.Gote
			}
			var mc shogi.MochigomaCollections
			mvs := shogi.LegalMovesAll(turn, &s, &mc)
			if got := containsMove(mvs, mustMove(t, c.move+"+")); got != c.wantNari {
				t.Fatalf("unexpected promoting variant: got %v want %v", got, c.wantNari)
			}
			if got := containsMove(mvs, mustMove(t, c.move)); got != c.wantPlan {
				t.Fatalf("unexpected plain variant: got %v want %v", got, c.wantPlan)
			}
		})
	}
}

// TestLegalMoves_Drops covers the immobile-piece and second-pawn rules.
func TestLegalMoves_Drops(t *testing.T) {
	s := buildState(at(5, 9, shogi.SOu), at(5, 1, shogi.GOu), at(7, 7, shogi.SFu))
	var mc shogi.MochigomaCollections
	mc.Sente[shogi.MochigomaFu] = 1
	mc.Sente[shogi.MochigomaKyou] = 1
	mc.Sente[shogi.MochigomaKei] = 1
	mc.Sente[shogi.MochigomaKin] = 1
	mvs := shogi.LegalMovesFromMochigoma(shogi.Sente, &s, &mc)

	empty := 81 - 3
	counts := make(map[shogi.MochigomaKind]int)
	for _, m := range mvs {
		if !m.IsPut() {
			t.Fatalf("unexpected board move %s", m)
		}
		counts[m.Put().Kind()]++
	}
	// Pawn: no first rank, no file 7 (7a is in both); P*5b checks but can be taken.
	if want := empty - 8 - 8 + 1; counts[shogi.MochigomaFu] != want {
		t.Fatalf("unexpected pawn drops: got %d want %d", counts[shogi.MochigomaFu], want)
	}
	if want := empty - 8; counts[shogi.MochigomaKyou] != want {
		t.Fatalf("unexpected lance drops: got %d want %d", counts[shogi.MochigomaKyou], want)
	}
	if want := empty - 8 - 9; counts[shogi.MochigomaKei] != want {
		t.Fatalf("unexpected knight drops: got %d want %d", counts[shogi.MochigomaKei], want)
	}
	if counts[shogi.MochigomaKin] != empty {
		t.Fatalf("unexpected gold drops: got %d want %d", counts[shogi.MochigomaKin], empty)
	}
	for _, bad := range []string{"P*3a", "L*3a", "N*3b", "P*7e"} {
		if containsMove(mvs, mustMove(t, bad)) {
			t.Fatalf("drop %s should be rejected", bad)
		}
	}

	all := shogi.LegalMovesAll(shogi.Sente, &s, &mc)
	board := 0
	for _, m := range all {
		if !m.IsPut() {
			board++
		}
	}
	if board+len(mvs) != len(all) {
		t.Fatalf("unexpected split: board %d + drops %d != %d", board, len(mvs), len(all))
	}
	if last := all[len(all)-1]; !last.IsPut() {
		t.Fatalf("drops should come last, got %s", last)
	}
}

// TestLegalMovesAll_SelfCheck verifies a pinned piece cannot leave its line
// and a king cannot step into an attack.
func TestLegalMovesAll_SelfCheck(t *testing.T) {
	s := buildState(at(5, 9, shogi.SOu), at(5, 7, shogi.SKin), at(5, 1, shogi.GHisha), at(7, 6, shogi.GKei), at(1, 1, shogi.GOu))
	var mc shogi.MochigomaCollections
	mvs := shogi.LegalMovesAll(shogi.Sente, &s, &mc)
	if containsMove(mvs, mustMove(t, "5g4g")) {
		t.Fatal("pinned gold moved off the file")
	}
	if !containsMove(mvs, mustMove(t, "5g5f")) {
		t.Fatal("pinned gold may move along the file")
	}
	if containsMove(mvs, mustMove(t, "5i6h")) {
		t.Fatal("king stepped onto a square the knight covers")
	}
	if !containsMove(mvs, mustMove(t, "5i4h")) {
		t.Fatal("king should be able to step to 4h")
	}
	pseudo := shogi.PseudoLegalMovesAll(shogi.Sente, &s, &mc)
	if !containsMove(pseudo, mustMove(t, "5g4g")) {
		t.Fatal("pseudo-legal moves ignore pins")
	}
}

func TestForEachLegalMove_Stops(t *testing.T) {
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	n := 0
	shogi.ForEachLegalMove(shogi.Sente, &s, &mc, func(shogi.LegalMove) bool {
		n++
		return n < 5
	})
	if n != 5 {
		t.Fatalf("unexpected visits: got %d want 5", n)
	}
	buf := make([]shogi.LegalMove, 0, 64)
	buf = shogi.LegalMovesAllInto(buf, shogi.Sente, &s, &mc)
	buf = shogi.LegalMovesAllInto(buf, shogi.Sente, &s, &mc)
	if len(buf) != 30 {
		t.Fatalf("unexpected reused buffer length: got %d want 30", len(buf))
	}
}

func TestOuteOnlyMovesAll(t *testing.T) {
	// Moving the silver off the file uncovers the lance.
	s := buildState(at(5, 1, shogi.GOu), at(5, 5, shogi.SGin), at(5, 9, shogi.SKyou), at(1, 9, shogi.SOu))
	var mc shogi.MochigomaCollections
	mc.Sente[shogi.MochigomaKin] = 1
	mvs := shogi.OuteOnlyMovesAll(shogi.Sente, &s, &mc)
	for _, want := range []string{"5e4d", "5e6d", "5e4f", "5e6f", "G*5b", "G*4b", "G*6b"} {
		if !containsMove(mvs, mustMove(t, want)) {
			t.Fatalf("missing checking move %s in %v", want, mvs)
		}
	}
	for _, bad := range []string{"5e5d", "G*5c", "1i1h"} {
		if containsMove(mvs, mustMove(t, bad)) {
			t.Fatalf("non-checking move %s listed", bad)
		}
	}
	for _, m := range mvs {
		next, _, _ := shogi.ApplyMoveNoneCheck(&s, shogi.Sente, &mc, m.Applied())
		if !shogi.IsMate(shogi.Sente, &next) {
			t.Fatalf("move %s does not give check", m)
		}
	}

	open := buildState(at(5, 1, shogi.GOu), at(5, 9, shogi.SKyou), at(1, 9, shogi.SOu))
	win := shogi.OuteOnlyMovesAll(shogi.Sente, &open, &mc)
	if len(win) != 1 || win[0].String() != "5i5a+" {
		t.Fatalf("unexpected win-only moves: got %v want [5i5a+]", win)
	}
}

// TestRespondOuteOnlyMovesAll checks evasions: king steps, capturing the
// checker and interposing.
func TestRespondOuteOnlyMovesAll(t *testing.T) {
	s := buildState(at(5, 9, shogi.SOu), at(5, 5, shogi.GHisha), at(2, 5, shogi.SKaku), at(1, 1, shogi.GOu))
	var mc shogi.MochigomaCollections
	mc.Sente[shogi.MochigomaKin] = 1
	mvs := shogi.RespondOuteOnlyMovesAll(shogi.Sente, &s, &mc)
	for _, want := range []string{"5i4h", "5i6h", "5i4i", "5i6i", "G*5h", "G*5f", "2e5h"} {
		if !containsMove(mvs, mustMove(t, want)) {
			t.Fatalf("missing evasion %s in %v", want, mvs)
		}
	}
	for _, bad := range []string{"5i5h", "G*4h", "2e3d"} {
		if containsMove(mvs, mustMove(t, bad)) {
			t.Fatalf("move %s does not answer the check", bad)
		}
	}
	for _, m := range mvs {
		ok, err := shogi.RespondedOute(&s, shogi.Sente, &mc, m.Applied())
		if err != nil || !ok {
			t.Fatalf("move %s: got %v, %v", m, ok, err)
		}
	}
	legal := shogi.LegalMovesAll(shogi.Sente, &s, &mc)
	if len(legal) != len(mvs) {
		t.Fatalf("unexpected evasion count: got %d want %d", len(mvs), len(legal))
	}
}

// TestRespondOuteOnlyMovesAll_KingCapture verifies that taking the opposing
// king is kept while the mover is in check.
func TestRespondOuteOnlyMovesAll_KingCapture(t *testing.T) {
	s := buildState(at(5, 9, shogi.SOu), at(5, 5, shogi.GHisha), at(2, 2, shogi.SKaku), at(1, 1, shogi.GOu))
	var mc shogi.MochigomaCollections
	mvs := shogi.RespondOuteOnlyMovesAll(shogi.Sente, &s, &mc)
	if !containsMove(mvs, mustMove(t, "2b1a")) {
		t.Fatalf("king capture missing from %v", mvs)
	}
	if containsMove(mvs, mustMove(t, "2b3c")) {
		t.Fatal("bishop move that ignores the check was kept")
	}
}

func BenchmarkLegalMovesAll(b *testing.B) {
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	for i := 0; i < b.N; i++ {
		shogi.LegalMovesAll(shogi.Sente, &s, &mc)
	}
}

func BenchmarkLegalMovesAllInto(b *testing.B) {
	s := shogi.NewState(shogi.InitialBanmen())
	var mc shogi.MochigomaCollections
	buf := make([]shogi.LegalMove, 0, 600)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf = shogi.LegalMovesAllInto(buf, shogi.Sente, &s, &mc)
	}
}

// TestLegalMovesAll_AgreesWithValidation verifies that the generator lists
// exactly the pseudo-legal moves ValidateMove accepts, pawn drops included.
func TestLegalMovesAll_AgreesWithValidation(t *testing.T) {
	check := func(name string, turn shogi.Teban, s *shogi.State, mc *shogi.MochigomaCollections) {
		t.Helper()
		legal := shogi.LegalMovesAll(turn, s, mc)
		for _, m := range shogi.PseudoLegalMovesAll(turn, s, mc) {
			a := m.Applied()
			if shogi.IsWin(s, turn, a) {
				continue
			}
			if got, want := containsMove(legal, a), shogi.IsValidMove(turn, s, mc, a); got != want {
				t.Fatalf("%s: %s generated=%v valid=%v", name, m, got, want)
			}
		}
	}

	mate := buildState(dropMatePieces()...)
	var mc shogi.MochigomaCollections
	mc.Sente[shogi.MochigomaFu] = 1
	check("dropped-pawn mate", shogi.Sente, &mate, &mc)

	s := shogi.NewState(shogi.InitialBanmen())
	turn := shogi.Sente
	var hands shogi.MochigomaCollections
	for ply := 0; ply < 120; ply++ {
		check(fmt.Sprintf("ply %d", ply+1), turn, &s, &hands)
		var candidates []shogi.LegalMove
		for _, m := range shogi.LegalMovesAll(turn, &s, &hands) {
			if !shogi.IsWin(&s, turn, m.Applied()) {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) == 0 {
			break
		}
		m := candidates[(ply*7+3)%len(candidates)]
		s, hands, _ = shogi.ApplyMoveNoneCheck(&s, turn, &hands, m.Applied())
		turn = turn.Opposite()
	}
}
