package shogi

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMove              = errors.New("invalid move")
	ErrIllegalNifu              = errors.New("illegal move: second pawn on a file")
	ErrIllegalImmobile          = errors.New("illegal move: piece would have no further move")
	ErrIllegalDroppedPawnMate   = errors.New("illegal move: checkmate by dropped pawn")
	ErrIllegalNotRespondedCheck = errors.New("illegal move: king left in check")
)

// MoveError carries a rejected move and the side that tried it.
type MoveError struct {
	Teban Teban
	Move  AppliedMove
	Err   error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Teban, e.Move, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// ValidateMove checks m against every rule and returns a *MoveError wrapping
// one of the Err* sentinels, or nil.
func ValidateMove(t Teban, s *State, mc *MochigomaCollections, m AppliedMove) error {
	if err := validateMove(t, s, mc, m); err != nil {
		return &MoveError{Teban: t, Move: m, Err: err}
	}
	return nil
}

// IsValidMove reports whether t may play m.
func IsValidMove(t Teban, s *State, mc *MochigomaCollections, m AppliedMove) bool {
	return validateMove(t, s, mc, m) == nil
}

func validateMove(t Teban, s *State, mc *MochigomaCollections, m AppliedMove) error {
	if m.IsPut() {
		if err := validatePut(t, s, mc, m); err != nil {
			return err
		}
	} else {
		if err := validateTo(t, s, m); err != nil {
			return err
		}
		if IsWin(s, t, m) {
			return nil
		}
	}
	next, _, _ := ApplyMoveNoneCheck(s, t, mc, m)
	if IsMate(t.Opposite(), &next) {
		return ErrIllegalNotRespondedCheck
	}
	if IsPutFuAndMate(s, t, mc, m) {
		return ErrIllegalDroppedPawnMate
	}
	return nil
}

func validatePut(t Teban, s *State, mc *MochigomaCollections, m AppliedMove) error {
	if uint32(m)&^(putFlag|putWordMask) != 0 {
		return fmt.Errorf("%w: malformed drop %#x", ErrInvalidMove, uint32(m))
	}
	p := m.Put()
	kind, dst := p.Kind(), p.Dst()
	if int(kind) >= MochigomaKindCount || dst >= 81 {
		return fmt.Errorf("%w: malformed drop %#x", ErrInvalidMove, uint32(m))
	}
	if mc.Get(t)[kind] <= 0 {
		return fmt.Errorf("%w: no %s in hand", ErrInvalidMove, kind)
	}
	if s.banmen.At(dst) != Blank {
		return fmt.Errorf("%w: drop on an occupied square", ErrInvalidMove)
	}
	if denyMoveMask(t, KomaKindFromMochigoma(t, kind)).Has(dst) {
		return ErrIllegalImmobile
	}
	if kind == MochigomaFu && !s.dropTargets(t, kind).Has(dst) {
		return ErrIllegalNifu
	}
	return nil
}

func validateTo(t Teban, s *State, m AppliedMove) error {
	if uint32(m)&^appliedMask != 0 {
		return fmt.Errorf("%w: malformed move %#x", ErrInvalidMove, uint32(m))
	}
	to := m.To()
	src, dst := to.Src(), to.Dst()
	if src >= 81 || dst >= 81 {
		return fmt.Errorf("%w: square out of range", ErrInvalidMove)
	}
	kind := s.banmen.At(src)
	if !kind.BelongsTo(t) {
		return fmt.Errorf("%w: no piece of %s on the source square", ErrInvalidMove, t)
	}
	if !s.part.Attacks(kind, src).Has(dst) {
		return fmt.Errorf("%w: %s cannot reach the destination", ErrInvalidMove, kind)
	}
	if to.IsNari() {
		zone := nariMask(t)
		if !kind.Promotable() || !(zone.Has(src) || zone.Has(dst)) {
			return fmt.Errorf("%w: %s cannot promote here", ErrInvalidMove, kind)
		}
		return nil
	}
	if denyMoveMask(t, kind).Has(dst) {
		return ErrIllegalImmobile
	}
	return nil
}
