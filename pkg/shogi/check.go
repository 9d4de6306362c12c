package shogi

import (
	"errors"
	"fmt"
)

// nearTable[sq] holds every square from which a stepper could reach sq:
// one file either side and two ranks either way.
var nearTable [81]Bitboard

func init() {
	for sq := 0; sq < 81; sq++ {
		x, y := sq/9, sq%9
		nearTable[sq] = maskOf(func(nx, ny int) bool {
			dx, dy := nx-x, ny-y
			return (nx != x || ny != y) && dx >= -1 && dx <= 1 && dy >= -2 && dy <= 2
		})
	}
}

func (ps *PartialState) sliderBoards(t Teban) [3]Bitboard {
	if t == Sente {
		return [3]Bitboard{ps.SenteKyou, ps.SenteKaku, ps.SenteHisha}
	}
	return [3]Bitboard{ps.GoteKyou, ps.GoteKaku, ps.GoteHisha}
}

func isSliderKind(k KomaKind) bool {
	o, ok := k.Obtain()
	if !ok {
		return false
	}
	switch o {
	case ObtainKyou, ObtainKaku, ObtainHisha, ObtainKakuN, ObtainHishaN:
		return true
	}
	return false
}

// forEachAttacker calls fn with every piece of t that can move onto target.
func (s *State) forEachAttacker(t Teban, target int, fn func(from int, kind KomaKind) bool) {
	near := nearTable[target].And(s.part.ownAbs(t))
	for from := near.PopLSB(); from != -1; from = near.PopLSB() {
		kind := s.banmen.At(from)
		if isSliderKind(kind) {
			continue
		}
		c, ok := stepClassOf(kind)
		if !ok {
			continue
		}
		if s.part.stepAttacks(t, c, from).Has(target) && !fn(from, kind) {
			return
		}
	}
	for _, b := range s.part.sliderBoards(t) {
		for from := b.PopLSB(); from != -1; from = b.PopLSB() {
			kind := s.banmen.At(from)
			if s.part.Attacks(kind, from).Has(target) && !fn(from, kind) {
				return
			}
		}
	}
}

// checkers lists the opponent pieces giving check to t's king.
func (s *State) checkers(t Teban) []int {
	ou := s.part.ouSquare(t)
	if ou == -1 {
		return nil
	}
	var out []int
	s.forEachAttacker(t.Opposite(), ou, func(from int, _ KomaKind) bool {
		out = append(out, from)
		return true
	})
	return out
}

// slidersAttack reports whether a lance, bishop or rook of t reaches target
// by sliding. Promoted bishops and rooks count by their slides only.
func (ps *PartialState) slidersAttack(t Teban, target int) bool {
	boards := ps.sliderBoards(t)
	kinds := [3]KomaKind{NewKomaKind(t, ObtainKyou), NewKomaKind(t, ObtainKaku), NewKomaKind(t, ObtainHisha)}
	for i, b := range boards {
		for from := b.PopLSB(); from != -1; from = b.PopLSB() {
			if ps.Attacks(kinds[i], from).Has(target) {
				return true
			}
		}
	}
	return false
}

// IsMate reports whether t can capture the opponent's king in s, i.e. the
// opponent is in check.
func IsMate(t Teban, s *State) bool {
	ou := s.part.ouSquare(t.Opposite())
	if ou == -1 {
		return false
	}
	found := false
	s.forEachAttacker(t, ou, func(int, KomaKind) bool {
		found = true
		return false
	})
	return found
}

// IsWin reports whether t's move m takes the opponent's king.
func IsWin(s *State, t Teban, m AppliedMove) bool {
	if m.IsPut() {
		return false
	}
	return s.banmen.At(m.To().Dst()) == NewKomaKind(t.Opposite(), ObtainOu)
}

var ErrNotInCheck = errors.New("side to move is not in check")

// RespondedOute reports whether t's move m, played while t was in check,
// leaves t's king safe. It fails when t was not in check.
func RespondedOute(s *State, t Teban, mc *MochigomaCollections, m AppliedMove) (bool, error) {
	if !IsMate(t.Opposite(), s) {
		return false, fmt.Errorf("%w: %s", ErrNotInCheck, t)
	}
	next, _, _ := ApplyMoveNoneCheck(s, t, mc, m)
	return !IsMate(t.Opposite(), &next), nil
}

// IsPutFuAndMate reports whether m is a pawn drop by t that checkmates: after
// the drop the opponent is in check and has no reply that saves the king.
func IsPutFuAndMate(s *State, t Teban, mc *MochigomaCollections, m AppliedMove) bool {
	if !m.IsPut() || m.Put().Kind() != MochigomaFu {
		return false
	}
	if mc.Get(t)[MochigomaFu] <= 0 {
		return false
	}
	next, nmc, _ := ApplyMoveNoneCheck(s, t, mc, m)
	if !IsMate(t, &next) {
		return false
	}
	return !next.hasLegalReply(t.Opposite(), &nmc)
}
