package shogi

import "math/bits"

// Bitboard is a 128-bit set of squares held as two 64-bit lanes. Square
// i = x*9+y lives at bit i+1, so every file is a nine-bit field starting at
// bit x*9+1 and bit 0 is always clear.
type Bitboard struct {
	Lo uint64
	Hi uint64
}

const fileMask = 0x1ff

// SquareBit returns the bitboard holding sq alone.
func SquareBit(sq int) Bitboard {
	return Bitboard{Lo: 1}.Shl(uint(sq + 1))
}

func (b Bitboard) Or(o Bitboard) Bitboard { return Bitboard{b.Lo | o.Lo, b.Hi | o.Hi} }

func (b Bitboard) And(o Bitboard) Bitboard { return Bitboard{b.Lo & o.Lo, b.Hi & o.Hi} }

func (b Bitboard) AndNot(o Bitboard) Bitboard { return Bitboard{b.Lo &^ o.Lo, b.Hi &^ o.Hi} }

func (b Bitboard) Xor(o Bitboard) Bitboard { return Bitboard{b.Lo ^ o.Lo, b.Hi ^ o.Hi} }

// Not complements within the board squares.
func (b Bitboard) Not() Bitboard { return Bitboard{^b.Lo, ^b.Hi}.And(BanmenMask) }

func (b Bitboard) IsZero() bool { return b.Lo == 0 && b.Hi == 0 }

func (b Bitboard) Shl(n uint) Bitboard {
	switch {
	case n == 0:
		return b
	case n >= 128:
		return Bitboard{}
	case n >= 64:
		return Bitboard{Lo: 0, Hi: b.Lo << (n - 64)}
	}
	return Bitboard{Lo: b.Lo << n, Hi: b.Hi<<n | b.Lo>>(64-n)}
}

func (b Bitboard) Shr(n uint) Bitboard {
	switch {
	case n == 0:
		return b
	case n >= 128:
		return Bitboard{}
	case n >= 64:
		return Bitboard{Lo: b.Hi >> (n - 64), Hi: 0}
	}
	return Bitboard{Lo: b.Lo>>n | b.Hi<<(64-n), Hi: b.Hi >> n}
}

func (b Bitboard) Has(sq int) bool { return !b.And(SquareBit(sq)).IsZero() }

func (b *Bitboard) Set(sq int) { *b = b.Or(SquareBit(sq)) }

func (b *Bitboard) Toggle(sq int) { *b = b.Xor(SquareBit(sq)) }

func (b Bitboard) Count() int { return bits.OnesCount64(b.Lo) + bits.OnesCount64(b.Hi) }

// PopLSB clears the lowest set square and returns it, or -1 when b is empty.
func (b *Bitboard) PopLSB() int {
	if b.Lo != 0 {
		tz := bits.TrailingZeros64(b.Lo)
		b.Lo &= b.Lo - 1
		return tz - 1
	}
	if b.Hi != 0 {
		tz := bits.TrailingZeros64(b.Hi)
		b.Hi &= b.Hi - 1
		return tz + 63
	}
	return -1
}

// File returns the nine-bit occupancy of file x, bit y set for rank y.
func (b Bitboard) File(x int) uint64 {
	return b.Shr(uint(x*9+1)).Lo & fileMask
}

// Rotate180 maps every square i to 80-i.
func (b Bitboard) Rotate180() Bitboard {
	r := Bitboard{Lo: bits.Reverse64(b.Hi), Hi: bits.Reverse64(b.Lo)}
	return r.Shr(45)
}

// Squares lists the set squares in ascending order.
func (b Bitboard) Squares() []int {
	out := make([]int, 0, b.Count())
	for sq := b.PopLSB(); sq != -1; sq = b.PopLSB() {
		out = append(out, sq)
	}
	return out
}

func maskOf(pred func(x, y int) bool) Bitboard {
	var b Bitboard
	for x := 0; x < 9; x++ {
		for y := 0; y < 9; y++ {
			if pred(x, y) {
				b.Set(x*9 + y)
			}
		}
	}
	return b
}

var (
	BanmenMask = Bitboard{Lo: ^uint64(1), Hi: 1<<(82-64) - 1}

	// SenteNariMask and GoteNariMask are the promotion zones.
	SenteNariMask = maskOf(func(_, y int) bool { return y <= 2 })
	GoteNariMask  = maskOf(func(_, y int) bool { return y >= 6 })

	DenyMoveSenteFuAndKyouMask = maskOf(func(_, y int) bool { return y == 0 })
	DenyMoveGoteFuAndKyouMask  = maskOf(func(_, y int) bool { return y == 8 })
	DenyMoveSenteKeiMask       = maskOf(func(_, y int) bool { return y <= 1 })
	DenyMoveGoteKeiMask        = maskOf(func(_, y int) bool { return y >= 7 })
)

// Candidate windows cover three files around a reference square at file 1,
// rank 2 (window bit xw*9+yw, xw = dx+1, yw = dy+2). The edge masks are in
// window coordinates.
const (
	TopMask    uint64 = 0b111111100_111111100_111111100
	BottomMask uint64 = 0b000000111_000000111_000000111
	RightMask  uint64 = 0b000000000_111111111_111111111
)

func nariMask(t Teban) Bitboard {
	if t == Sente {
		return SenteNariMask
	}
	return GoteNariMask
}

func denyMoveMask(t Teban, k KomaKind) Bitboard {
	o, _ := k.Obtain()
	switch o {
	case ObtainFu, ObtainKyou:
		if t == Sente {
			return DenyMoveSenteFuAndKyouMask
		}
		return DenyMoveGoteFuAndKyouMask
	case ObtainKei:
		if t == Sente {
			return DenyMoveSenteKeiMask
		}
		return DenyMoveGoteKeiMask
	}
	return Bitboard{}
}
