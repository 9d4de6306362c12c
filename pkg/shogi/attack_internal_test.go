package shogi

import (
	"testing"

	"golang.org/x/exp/rand"
)

// naiveAttacks walks the board square by square.
func naiveAttacks(b *Banmen, kind KomaKind, from int) Bitboard {
	t, _ := kind.Owner()
	fwd := -1
	if t == Gote {
		fwd = 1
	}
	x, y := from/9, from%9
	var out Bitboard
	try := func(nx, ny int) bool {
		if nx < 0 || nx > 8 || ny < 0 || ny > 8 {
			return false
		}
		k := b.At(nx*9 + ny)
		if !k.BelongsTo(t) {
			out.Set(nx*9 + ny)
		}
		return k == Blank
	}
	slide := func(dx, dy int) {
		for i := 1; try(x+dx*i, y+dy*i); i++ {
		}
	}
	o, _ := kind.Obtain()
	gold := [][2]int{{-1, fwd}, {0, fwd}, {1, fwd}, {-1, 0}, {1, 0}, {0, -fwd}}
	switch o {
	case ObtainFu:
		try(x, y+fwd)
	case ObtainKyou:
		slide(0, fwd)
	case ObtainKei:
		try(x-1, y+2*fwd)
		try(x+1, y+2*fwd)
	case ObtainGin:
		for _, d := range [][2]int{{-1, fwd}, {0, fwd}, {1, fwd}, {-1, -fwd}, {1, -fwd}} {
			try(x+d[0], y+d[1])
		}
	case ObtainKin, ObtainFuN, ObtainKyouN, ObtainKeiN, ObtainGinN:
		for _, d := range gold {
			try(x+d[0], y+d[1])
		}
	case ObtainOu:
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx != 0 || dy != 0 {
					try(x+dx, y+dy)
				}
			}
		}
	case ObtainKaku, ObtainKakuN:
		slide(1, 1)
		slide(1, -1)
		slide(-1, 1)
		slide(-1, -1)
		if o == ObtainKakuN {
			try(x+1, y)
			try(x-1, y)
			try(x, y+1)
			try(x, y-1)
		}
	case ObtainHisha, ObtainHishaN:
		slide(1, 0)
		slide(-1, 0)
		slide(0, 1)
		slide(0, -1)
		if o == ObtainHishaN {
			try(x+1, y+1)
			try(x+1, y-1)
			try(x-1, y+1)
			try(x-1, y-1)
		}
	}
	return out
}

func randomBanmen(r *rand.Rand, density int) Banmen {
	b := EmptyBanmen()
	for sq := 0; sq < 81; sq++ {
		if r.Intn(100) < density {
			b.set(sq, KomaKind(r.Intn(int(Blank))))
		}
	}
	return b
}

// TestAttacks_MatchNaive compares the table and rotated-board attacks with a
// square-by-square walk on random boards.
func TestAttacks_MatchNaive(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		b := randomBanmen(r, 10+round%50)
		s := NewState(b)
		for sq := 0; sq < 81; sq++ {
			for k := KomaKind(0); k < Blank; k++ {
				saved := b.At(sq)
				if saved != Blank && saved != k {
					continue
				}
				probe := s
				if saved == Blank {
					probe.banmen.set(sq, k)
					probe.part.togglePiece(k, sq)
				}
				got := probe.part.Attacks(k, sq)
				want := naiveAttacks(&probe.banmen, k, sq)
				if got != want {
					t.Fatalf("round %d: %v on %d: got %v want %v", round, k, sq, got.Squares(), want.Squares())
				}
			}
		}
	}
}

func TestRotatedViews_Consistent(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for round := 0; round < 50; round++ {
		s := NewState(randomBanmen(r, 40))
		occ := s.part.occupied()
		for sq := 0; sq < 81; sq++ {
			if got := s.part.RotateBoard.Has(RotateMap[sq]); got != occ.Has(sq) {
				t.Fatalf("rank view disagrees on %d", sq)
			}
			if b := DiagLeftRotateMap[sq]; b >= 0 && (s.part.DiagBoard.Lo>>uint(b)&1 == 1) != occ.Has(sq) {
				t.Fatalf("left diagonal view disagrees on %d", sq)
			}
			if b := DiagRightRotateMap[sq]; b >= 0 && (s.part.DiagBoard.Hi>>uint(b)&1 == 1) != occ.Has(sq) {
				t.Fatalf("right diagonal view disagrees on %d", sq)
			}
		}
	}
}

func TestDiagTables(t *testing.T) {
	interior := 0
	for sq := 0; sq < 81; sq++ {
		x, y := sq/9, sq%9
		edge := x == 0 || x == 8 || y == 0 || y == 8
		if (DiagLeftRotateMap[sq] == -1) != edge || (DiagRightRotateMap[sq] == -1) != edge {
			t.Fatalf("unexpected diagonal mapping for %d", sq)
		}
		if !edge {
			interior++
		}
	}
	if interior != 49 {
		t.Fatalf("unexpected interior squares: got %d want 49", interior)
	}
}
