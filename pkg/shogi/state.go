package shogi

import (
	"errors"
	"fmt"
)

// Banmen is the board indexed [y][x]; x=0 is file 9, y=0 is rank 1.
type Banmen [9][9]KomaKind

// At returns the piece on square sq = x*9+y.
func (b *Banmen) At(sq int) KomaKind { return b[sq%9][sq/9] }

func (b *Banmen) set(sq int, k KomaKind) { b[sq%9][sq/9] = k }

// InitialBanmen returns the standard starting position.
func InitialBanmen() Banmen {
	return Banmen{
		{GKyou, GKei, GGin, GKin, GOu, GKin, GGin, GKei, GKyou},
		{Blank, GHisha, Blank, Blank, Blank, Blank, Blank, GKaku, Blank},
		{GFu, GFu, GFu, GFu, GFu, GFu, GFu, GFu, GFu},
		{Blank, Blank, Blank, Blank, Blank, Blank, Blank, Blank, Blank},
		{Blank, Blank, Blank, Blank, Blank, Blank, Blank, Blank, Blank},
		{Blank, Blank, Blank, Blank, Blank, Blank, Blank, Blank, Blank},
		{SFu, SFu, SFu, SFu, SFu, SFu, SFu, SFu, SFu},
		{Blank, SKaku, Blank, Blank, Blank, Blank, Blank, SHisha, Blank},
		{SKyou, SKei, SGin, SKin, SOu, SKin, SGin, SKei, SKyou},
	}
}

// EmptyBanmen returns a board with no pieces.
func EmptyBanmen() Banmen {
	var b Banmen
	for y := range b {
		for x := range b[y] {
			b[y][x] = Blank
		}
	}
	return b
}

// PartialState holds the bitboards derived from a board. GoteSelf and
// GoteOpponent are in gote's view (square i stored as 80-i); every other
// board is absolute.
type PartialState struct {
	SenteSelf     Bitboard
	SenteOpponent Bitboard
	GoteSelf      Bitboard
	GoteOpponent  Bitboard
	SenteFu       Bitboard
	GoteFu        Bitboard
	SenteKyou     Bitboard
	GoteKyou      Bitboard
	SenteKaku     Bitboard
	GoteKaku      Bitboard
	SenteHisha    Bitboard
	GoteHisha     Bitboard
	SenteOu       Bitboard
	GoteOu        Bitboard
	RotateBoard   Bitboard
	DiagBoard     Bitboard
}

// State is a board together with its derived bitboards. States are values:
// applying a move returns a new one.
type State struct {
	banmen Banmen
	part   PartialState
}

// NewState scans the board once and builds every derived bitboard.
func NewState(banmen Banmen) State {
	s := State{banmen: banmen}
	for sq := 0; sq < 81; sq++ {
		k := banmen.At(sq)
		if k == Blank {
			continue
		}
		s.part.togglePiece(k, sq)
	}
	return s
}

// Banmen returns the board.
func (s *State) Banmen() *Banmen { return &s.banmen }

// Partial returns the derived bitboards.
func (s *State) Partial() *PartialState { return &s.part }

// OuSquare returns the absolute square of t's king, or -1.
func (s *State) OuSquare(t Teban) int { return s.part.ouSquare(t) }

func (ps *PartialState) ouSquare(t Teban) int {
	b := ps.SenteOu
	if t == Gote {
		b = ps.GoteOu
	}
	return b.PopLSB()
}

// togglePiece flips every bitboard that records kind on sq.
func (ps *PartialState) togglePiece(k KomaKind, sq int) {
	t, ok := k.Owner()
	if !ok {
		return
	}
	if t == Sente {
		ps.SenteSelf.Toggle(sq)
		ps.GoteOpponent.Toggle(80 - sq)
	} else {
		ps.GoteSelf.Toggle(80 - sq)
		ps.SenteOpponent.Toggle(sq)
	}
	if b := ps.kindBoard(k); b != nil {
		b.Toggle(sq)
	}
	toggleRotated(&ps.RotateBoard, &ps.DiagBoard, sq)
}

// kindBoard returns the per-kind board that tracks k, if any.
func (ps *PartialState) kindBoard(k KomaKind) *Bitboard {
	switch k {
	case SFu:
		return &ps.SenteFu
	case GFu:
		return &ps.GoteFu
	case SKyou:
		return &ps.SenteKyou
	case GKyou:
		return &ps.GoteKyou
	case SKaku, SKakuN:
		return &ps.SenteKaku
	case GKaku, GKakuN:
		return &ps.GoteKaku
	case SHisha, SHishaN:
		return &ps.SenteHisha
	case GHisha, GHishaN:
		return &ps.GoteHisha
	case SOu:
		return &ps.SenteOu
	case GOu:
		return &ps.GoteOu
	}
	return nil
}

var (
	ErrBrokenState = errors.New("inconsistent state")
)

// Validate checks the invariants tying the board to its bitboards and hands.
// It is meant for tests and for positions read from outside.
func (s *State) Validate(mc *MochigomaCollections) error {
	want := NewState(s.banmen)
	if want.part != s.part {
		return fmt.Errorf("%w: derived bitboards out of sync", ErrBrokenState)
	}
	ps := &s.part
	if !ps.SenteSelf.And(ps.GoteSelf.Rotate180()).IsZero() {
		return fmt.Errorf("%w: square owned by both sides", ErrBrokenState)
	}
	if ps.SenteOu.Count() != 1 || ps.GoteOu.Count() != 1 {
		return fmt.Errorf("%w: each side needs exactly one king", ErrBrokenState)
	}
	for _, pair := range [][2]Bitboard{
		{ps.SenteFu, ps.SenteSelf}, {ps.SenteKyou, ps.SenteSelf},
		{ps.SenteKaku, ps.SenteSelf}, {ps.SenteHisha, ps.SenteSelf},
		{ps.GoteFu, ps.SenteOpponent}, {ps.GoteKyou, ps.SenteOpponent},
		{ps.GoteKaku, ps.SenteOpponent}, {ps.GoteHisha, ps.SenteOpponent},
	} {
		if !pair[0].AndNot(pair[1]).IsZero() {
			return fmt.Errorf("%w: kind board escapes its side", ErrBrokenState)
		}
	}
	occ := ps.occupied()
	if ps.RotateBoard.Count() != occ.Count() {
		return fmt.Errorf("%w: rank view popcount %d, occupancy %d", ErrBrokenState, ps.RotateBoard.Count(), occ.Count())
	}
	interior := occ.And(maskOf(func(x, y int) bool { return x > 0 && x < 8 && y > 0 && y < 8 })).Count()
	if bitsCount(ps.DiagBoard.Lo) != interior || bitsCount(ps.DiagBoard.Hi) != interior {
		return fmt.Errorf("%w: diagonal view popcount mismatch", ErrBrokenState)
	}
	if mc != nil {
		if err := checkMaterial(&s.banmen, mc); err != nil {
			return err
		}
	}
	return nil
}

func bitsCount(v uint64) int { return Bitboard{Lo: v}.Count() }

// checkMaterial verifies that board and hands never hold more of a kind
// than a full set, and that hand counts are non-negative.
func checkMaterial(b *Banmen, mc *MochigomaCollections) error {
	var total Mochigoma
	for sq := 0; sq < 81; sq++ {
		o, ok := b.At(sq).Obtain()
		if !ok || o == ObtainOu {
			continue
		}
		m, _ := o.Mochigoma()
		total[m]++
	}
	full := FilledMochigoma()
	for _, k := range MochigomaKinds {
		if mc.Sente[k] < 0 || mc.Gote[k] < 0 {
			return fmt.Errorf("%w: negative hand count for %s", ErrBrokenState, k)
		}
		if n := total[k] + mc.Sente[k] + mc.Gote[k]; n > 2*full[k] {
			return fmt.Errorf("%w: %d pieces of %s", ErrBrokenState, n, k)
		}
	}
	return nil
}
