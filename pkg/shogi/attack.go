package shogi

import "math/bits"

type stepClass int

const (
	stepFu stepClass = iota
	stepKei
	stepGin
	stepKin
	stepOu
	stepKakuN
	stepHishaN
	stepClassCount
)

var stepOffsets = [stepClassCount][][2]int{
	stepFu:     {{0, -1}},
	stepKei:    {{-1, -2}, {1, -2}},
	stepGin:    {{-1, -1}, {0, -1}, {1, -1}, {-1, 1}, {1, 1}},
	stepKin:    {{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {0, 1}},
	stepOu:     {{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}},
	stepKakuN:  {{0, -1}, {-1, 0}, {1, 0}, {0, 1}},
	stepHishaN: {{-1, -1}, {1, -1}, {-1, 1}, {1, 1}},
}

// CandidateBits is the window pattern of each stepper, see TopMask.
var CandidateBits [stepClassCount]uint64

// stepTable[c][from] is the sente-view destination set of a stepper before
// own pieces are removed.
var stepTable [stepClassCount][81]Bitboard

func init() {
	for c := stepClass(0); c < stepClassCount; c++ {
		var pattern uint64
		for _, d := range stepOffsets[c] {
			pattern |= 1 << uint((d[0]+1)*9+d[1]+2)
		}
		CandidateBits[c] = pattern
		for from := 0; from < 81; from++ {
			stepTable[c][from] = genCandidateBits(c, from)
		}
	}
}

// genCandidateBits places the window pattern of c on from. The window's
// reference square sits at bit 10 of the board layout, so the pattern is
// shifted by from-10 and edge masks drop the rows and files that would wrap.
func genCandidateBits(c stepClass, from int) Bitboard {
	x, y := from/9, from%9
	mask := CandidateBits[c]
	if y == 0 || (c == stepKei && y <= 1) {
		mask &= TopMask
	}
	if y == 8 {
		mask &= BottomMask
	}
	if x == 8 {
		mask &= RightMask
	}
	board := Bitboard{Lo: mask}
	if from < 10 {
		board = board.Shr(uint(10 - from))
	} else {
		board = board.Shl(uint(from - 10))
	}
	board.Lo &^= 1
	return board.And(BanmenMask)
}

func stepClassOf(k KomaKind) (stepClass, bool) {
	o, ok := k.Obtain()
	if !ok {
		return 0, false
	}
	switch o {
	case ObtainFu:
		return stepFu, true
	case ObtainKei:
		return stepKei, true
	case ObtainGin:
		return stepGin, true
	case ObtainKin, ObtainFuN, ObtainKyouN, ObtainKeiN, ObtainGinN:
		return stepKin, true
	case ObtainOu:
		return stepOu, true
	case ObtainKakuN:
		return stepKakuN, true
	case ObtainHishaN:
		return stepHishaN, true
	}
	return 0, false
}

// occupied returns the absolute occupancy of both sides.
func (ps *PartialState) occupied() Bitboard {
	return ps.SenteSelf.Or(ps.SenteOpponent)
}

// ownAbs returns the squares of t's pieces in absolute coordinates.
func (ps *PartialState) ownAbs(t Teban) Bitboard {
	if t == Sente {
		return ps.SenteSelf
	}
	return ps.SenteOpponent
}

// stepAttacks reflects gote through 80-from so a single sente table serves
// both sides.
func (ps *PartialState) stepAttacks(t Teban, c stepClass, from int) Bitboard {
	if t == Sente {
		return stepTable[c][from].AndNot(ps.SenteSelf)
	}
	return stepTable[c][80-from].AndNot(ps.GoteSelf).Rotate180()
}

// fileCount is the length of the ray from (x,y) along its file, up (dy<0) or
// down. The last square of the ray is either a blocker or the board edge.
func fileCount(field uint64, y int, up bool) int {
	if up {
		m := field & (1<<uint(y) - 1)
		if m == 0 {
			return y
		}
		return y - (bits.Len64(m) - 1)
	}
	m := field >> uint(y+1)
	if m == 0 {
		return 8 - y
	}
	return bits.TrailingZeros64(m) + 1
}

func (ps *PartialState) hishaTopCount(from int) int {
	return fileCount(ps.occupied().File(from/9), from%9, true)
}

func (ps *PartialState) hishaBottomCount(from int) int {
	return fileCount(ps.occupied().File(from/9), from%9, false)
}

// In the rank view square (x,y) sits in field y at position 8-x, so moving
// left (x-1) walks up the field.
func (ps *PartialState) hishaLeftCount(from int) int {
	r := RotateMap[from]
	return fileCount(ps.RotateBoard.File(r/9), r%9, false)
}

func (ps *PartialState) hishaRightCount(from int) int {
	r := RotateMap[from]
	return fileCount(ps.RotateBoard.File(r/9), r%9, true)
}

// diagCount walks a diagonal forward (increasing x) or backward. Interior
// blockers come from the lane, edge squares always end the ray.
func diagCount(lane uint64, info diagSlideInfo, forward bool) int {
	interior := info.width - 2
	if interior <= 0 {
		if forward {
			return info.width - 1 - info.pos
		}
		return info.pos
	}
	field := (lane >> uint(info.offset)) & (1<<uint(interior) - 1)
	p := info.pos
	if forward {
		m := field >> uint(p)
		if m == 0 {
			return info.width - 1 - p
		}
		return bits.TrailingZeros64(m) + 1
	}
	if p == 0 {
		return 0
	}
	m := field & (1<<uint(p-1) - 1)
	if m == 0 {
		return p
	}
	return p - bits.Len64(m)
}

func (ps *PartialState) kakuRightBottomCount(from int) int {
	return diagCount(ps.DiagBoard.Lo, diagLeftSlideInfo[from], true)
}

func (ps *PartialState) kakuLeftTopCount(from int) int {
	return diagCount(ps.DiagBoard.Lo, diagLeftSlideInfo[from], false)
}

func (ps *PartialState) kakuRightTopCount(from int) int {
	return diagCount(ps.DiagBoard.Hi, diagRightSlideInfo[from], true)
}

func (ps *PartialState) kakuLeftBottomCount(from int) int {
	return diagCount(ps.DiagBoard.Hi, diagRightSlideInfo[from], false)
}

func (ps *PartialState) rayCount(from int, d direction) int {
	switch d {
	case dirTop:
		return ps.hishaTopCount(from)
	case dirBottom:
		return ps.hishaBottomCount(from)
	case dirLeft:
		return ps.hishaLeftCount(from)
	case dirRight:
		return ps.hishaRightCount(from)
	case dirLeftTop:
		return ps.kakuLeftTopCount(from)
	case dirRightTop:
		return ps.kakuRightTopCount(from)
	case dirLeftBottom:
		return ps.kakuLeftBottomCount(from)
	case dirRightBottom:
		return ps.kakuRightBottomCount(from)
	}
	return 0
}

// slide adds the squares of one ray; the last square is kept unless own
// holds it.
func (ps *PartialState) slide(dst *Bitboard, own Bitboard, from int, d direction) {
	n := ps.rayCount(from, d)
	if n == 0 {
		return
	}
	ray := rays[d][from]
	for i := 0; i < n-1; i++ {
		dst.Set(ray[i])
	}
	if last := ray[n-1]; !own.Has(last) {
		dst.Set(last)
	}
}

var (
	kakuDirections  = [4]direction{dirLeftTop, dirRightTop, dirLeftBottom, dirRightBottom}
	hishaDirections = [4]direction{dirTop, dirBottom, dirLeft, dirRight}
)

// Attacks returns the absolute destination squares of kind standing on from,
// own pieces excluded. Blank yields nothing.
func (ps *PartialState) Attacks(kind KomaKind, from int) Bitboard {
	t, ok := kind.Owner()
	if !ok {
		return Bitboard{}
	}
	var dst Bitboard
	own := ps.ownAbs(t)
	o, _ := kind.Obtain()
	switch o {
	case ObtainKyou:
		if t == Sente {
			ps.slide(&dst, own, from, dirTop)
		} else {
			ps.slide(&dst, own, from, dirBottom)
		}
		return dst
	case ObtainKaku, ObtainKakuN:
		for _, d := range kakuDirections {
			ps.slide(&dst, own, from, d)
		}
	case ObtainHisha, ObtainHishaN:
		for _, d := range hishaDirections {
			ps.slide(&dst, own, from, d)
		}
	}
	if c, ok := stepClassOf(kind); ok {
		dst = dst.Or(ps.stepAttacks(t, c, from))
	}
	return dst
}
