package shogi

import (
	"errors"
	"fmt"
)

// Move words. A board move packs src in bits 0-6, dst in bits 7-13 and the
// promotion flag in bit 14; the legal variant adds obtained+1 from bit 15.
// A drop packs the hand kind in bits 0-2 and dst in bits 3-9. Bit 31 tags
// drops in the combined LegalMove and AppliedMove words.
const (
	squareMask   = 0x7f
	dstShift     = 7
	nariFlag     = 1 << 14
	obtainShift  = 15
	appliedMask  = 0x7fff
	putDstShift  = 3
	putKindMask  = 0x7
	putFlag      = 1 << 31
	putWordMask  = 0x3ff
	obtainFields = 0xf
)

type LegalMoveTo uint32

// NewLegalMoveTo packs a board move; obtained is ObtainNone when nothing is
// captured.
func NewLegalMoveTo(src, dst int, nari bool, obtained ObtainKind) LegalMoveTo {
	m := LegalMoveTo(src&squareMask) | LegalMoveTo(dst&squareMask)<<dstShift
	if nari {
		m |= nariFlag
	}
	if obtained != ObtainNone {
		m |= LegalMoveTo(obtained+1) << obtainShift
	}
	return m
}

func (m LegalMoveTo) Src() int { return int(m & squareMask) }

func (m LegalMoveTo) Dst() int { return int(m>>dstShift) & squareMask }

func (m LegalMoveTo) IsNari() bool { return m&nariFlag != 0 }

// Obtained returns the captured kind or ObtainNone.
func (m LegalMoveTo) Obtained() ObtainKind {
	o := (m >> obtainShift) & obtainFields
	if o == 0 {
		return ObtainNone
	}
	return ObtainKind(o - 1)
}

func (m LegalMoveTo) Applied() AppliedMoveTo { return AppliedMoveTo(m & appliedMask) }

type LegalMovePut uint32

func NewLegalMovePut(kind MochigomaKind, dst int) LegalMovePut {
	return LegalMovePut(kind)&putKindMask | LegalMovePut(dst&squareMask)<<putDstShift
}

func (m LegalMovePut) Kind() MochigomaKind { return MochigomaKind(m & putKindMask) }

func (m LegalMovePut) Dst() int { return int(m>>putDstShift) & squareMask }

func (m LegalMovePut) Applied() AppliedMovePut { return AppliedMovePut(m) }

// LegalMove is either a board move or a drop, as produced by the generator.
type LegalMove uint32

func LegalMoveFromTo(m LegalMoveTo) LegalMove { return LegalMove(m) }

func LegalMoveFromPut(m LegalMovePut) LegalMove { return LegalMove(m) | putFlag }

func (m LegalMove) IsPut() bool { return m&putFlag != 0 }

func (m LegalMove) To() LegalMoveTo { return LegalMoveTo(m) }

func (m LegalMove) Put() LegalMovePut { return LegalMovePut(m &^ putFlag) }

// Applied drops the capture annotation.
func (m LegalMove) Applied() AppliedMove {
	if m.IsPut() {
		return AppliedMove(m & (putFlag | putWordMask))
	}
	return AppliedMove(m & appliedMask)
}

func (m LegalMove) String() string { return m.Applied().String() }

type AppliedMoveTo uint32

func NewAppliedMoveTo(src, dst int, nari bool) AppliedMoveTo {
	return NewLegalMoveTo(src, dst, nari, ObtainNone).Applied()
}

func (m AppliedMoveTo) Src() int { return int(m & squareMask) }

func (m AppliedMoveTo) Dst() int { return int(m>>dstShift) & squareMask }

func (m AppliedMoveTo) IsNari() bool { return m&nariFlag != 0 }

type AppliedMovePut uint32

func NewAppliedMovePut(kind MochigomaKind, dst int) AppliedMovePut {
	return NewLegalMovePut(kind, dst).Applied()
}

func (m AppliedMovePut) Kind() MochigomaKind { return MochigomaKind(m & putKindMask) }

func (m AppliedMovePut) Dst() int { return int(m>>putDstShift) & squareMask }

// AppliedMove is what the transition engine consumes.
type AppliedMove uint32

func AppliedMoveFromTo(m AppliedMoveTo) AppliedMove { return AppliedMove(m) }

func AppliedMoveFromPut(m AppliedMovePut) AppliedMove { return AppliedMove(m) | putFlag }

func (m AppliedMove) IsPut() bool { return m&putFlag != 0 }

func (m AppliedMove) To() AppliedMoveTo { return AppliedMoveTo(m) }

func (m AppliedMove) Put() AppliedMovePut { return AppliedMovePut(m &^ putFlag) }

func (m AppliedMove) Dst() int {
	if m.IsPut() {
		return m.Put().Dst()
	}
	return m.To().Dst()
}

// Legal re-attaches the capture found on banmen.
func (m AppliedMove) Legal(banmen *Banmen) LegalMove {
	if m.IsPut() {
		return LegalMoveFromPut(LegalMovePut(m.Put()))
	}
	to := m.To()
	obtained, ok := banmen.At(to.Dst()).Obtain()
	if !ok {
		obtained = ObtainNone
	}
	return LegalMoveFromTo(NewLegalMoveTo(to.Src(), to.Dst(), to.IsNari(), obtained))
}

func (m AppliedMove) String() string { return m.Move().String() }

// Move is the coordinate form used at the I/O boundary. Files run 1..9 from
// sente's right, ranks 1..9 from gote's side.
type Move struct {
	Drop    bool
	Kind    MochigomaKind
	SrcFile int
	SrcRank int
	DstFile int
	DstRank int
	Nari    bool
}

// SquareToPoint converts a square to (file, rank).
func SquareToPoint(sq int) (int, int) {
	return 9 - sq/9, sq%9 + 1
}

// PointToSquare converts (file, rank) to a square.
func PointToSquare(file, rank int) int {
	return (9-file)*9 + rank - 1
}

// Move converts to the coordinate form.
func (m AppliedMove) Move() Move {
	if m.IsPut() {
		p := m.Put()
		f, r := SquareToPoint(p.Dst())
		return Move{Drop: true, Kind: p.Kind(), DstFile: f, DstRank: r}
	}
	to := m.To()
	sf, sr := SquareToPoint(to.Src())
	df, dr := SquareToPoint(to.Dst())
	return Move{SrcFile: sf, SrcRank: sr, DstFile: df, DstRank: dr, Nari: to.IsNari()}
}

var ErrMoveFormat = errors.New("invalid move format")

func validPoint(file, rank int) bool {
	return file >= 1 && file <= 9 && rank >= 1 && rank <= 9
}

// Applied converts from the coordinate form.
func (m Move) Applied() (AppliedMove, error) {
	if !validPoint(m.DstFile, m.DstRank) {
		return 0, fmt.Errorf("%w: destination %d%d", ErrMoveFormat, m.DstFile, m.DstRank)
	}
	dst := PointToSquare(m.DstFile, m.DstRank)
	if m.Drop {
		if int(m.Kind) >= MochigomaKindCount || m.Nari {
			return 0, fmt.Errorf("%w: drop of %v", ErrMoveFormat, m.Kind)
		}
		return AppliedMoveFromPut(NewAppliedMovePut(m.Kind, dst)), nil
	}
	if !validPoint(m.SrcFile, m.SrcRank) {
		return 0, fmt.Errorf("%w: source %d%d", ErrMoveFormat, m.SrcFile, m.SrcRank)
	}
	src := PointToSquare(m.SrcFile, m.SrcRank)
	if src == dst {
		return 0, fmt.Errorf("%w: null move", ErrMoveFormat)
	}
	return AppliedMoveFromTo(NewAppliedMoveTo(src, dst, m.Nari)), nil
}

// String renders the move in USI notation: 7g7f, 8h2b+, P*5e.
func (m Move) String() string {
	if m.Drop {
		return fmt.Sprintf("%s*%d%c", m.Kind, m.DstFile, rankLetter(m.DstRank))
	}
	s := fmt.Sprintf("%d%c%d%c", m.SrcFile, rankLetter(m.SrcRank), m.DstFile, rankLetter(m.DstRank))
	if m.Nari {
		s += "+"
	}
	return s
}

func rankLetter(rank int) byte {
	return byte('a' + rank - 1)
}

// ParseMove reads a move in USI notation.
func ParseMove(text string) (Move, error) {
	if len(text) == 4 && text[1] == '*' {
		kind, ok := mochigomaFromLetter(text[0])
		if !ok {
			return Move{}, fmt.Errorf("%w: unknown drop piece in %q", ErrMoveFormat, text)
		}
		file, rank, err := parseSquare(text[2:4])
		if err != nil {
			return Move{}, fmt.Errorf("%w: %q", err, text)
		}
		return Move{Drop: true, Kind: kind, DstFile: file, DstRank: rank}, nil
	}
	if len(text) != 4 && !(len(text) == 5 && text[4] == '+') {
		return Move{}, fmt.Errorf("%w: %q", ErrMoveFormat, text)
	}
	sf, sr, err := parseSquare(text[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", err, text)
	}
	df, dr, err := parseSquare(text[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", err, text)
	}
	return Move{SrcFile: sf, SrcRank: sr, DstFile: df, DstRank: dr, Nari: len(text) == 5}, nil
}

// ParseAppliedMove reads USI notation straight into an AppliedMove.
func ParseAppliedMove(text string) (AppliedMove, error) {
	m, err := ParseMove(text)
	if err != nil {
		return 0, err
	}
	return m.Applied()
}

func parseSquare(text string) (int, int, error) {
	file := int(text[0] - '0')
	rank := int(text[1]-'a') + 1
	if !validPoint(file, rank) {
		return 0, 0, fmt.Errorf("%w: square %s", ErrMoveFormat, text)
	}
	return file, rank, nil
}

func mochigomaFromLetter(c byte) (MochigomaKind, bool) {
	switch c {
	case 'P':
		return MochigomaFu, true
	case 'L':
		return MochigomaKyou, true
	case 'N':
		return MochigomaKei, true
	case 'S':
		return MochigomaGin, true
	case 'G':
		return MochigomaKin, true
	case 'B':
		return MochigomaKaku, true
	case 'R':
		return MochigomaHisha, true
	}
	return 0, false
}
