package shogi

// Moves are generated in the mover's own view: board moves by source square
// in PopLSB order of the mover's occupancy, destinations likewise with the
// promoting variant first, then drops by hand kind and destination.

// viewSquare converts between absolute squares and t's view.
func viewSquare(t Teban, sq int) int {
	if t == Sente {
		return sq
	}
	return 80 - sq
}

func toView(t Teban, b Bitboard) Bitboard {
	if t == Sente {
		return b
	}
	return b.Rotate180()
}

func (ps *PartialState) selfView(t Teban) Bitboard {
	if t == Sente {
		return ps.SenteSelf
	}
	return ps.GoteSelf
}

// forEachTarget emits the moves of the piece on from towards targets,
// applying the promotion rules.
func (s *State) forEachTarget(t Teban, from int, kind KomaKind, targets Bitboard, fn func(LegalMove) bool) bool {
	promotable := kind.Promotable()
	zone := nariMask(t)
	deny := denyMoveMask(t, kind)
	fromInZone := zone.Has(from)
	view := toView(t, targets)
	for v := view.PopLSB(); v != -1; v = view.PopLSB() {
		to := viewSquare(t, v)
		obtained, ok := s.banmen.At(to).Obtain()
		if !ok {
			obtained = ObtainNone
		}
		if promotable && (fromInZone || zone.Has(to)) {
			if !fn(LegalMoveFromTo(NewLegalMoveTo(from, to, true, obtained))) {
				return false
			}
		}
		if !deny.Has(to) {
			if !fn(LegalMoveFromTo(NewLegalMoveTo(from, to, false, obtained))) {
				return false
			}
		}
	}
	return true
}

func (s *State) forEachBoardMove(t Teban, fn func(LegalMove) bool) bool {
	own := s.part.selfView(t)
	for v := own.PopLSB(); v != -1; v = own.PopLSB() {
		from := viewSquare(t, v)
		kind := s.banmen.At(from)
		if !s.forEachTarget(t, from, kind, s.part.Attacks(kind, from), fn) {
			return false
		}
	}
	return true
}

// dropTargets returns the squares kind may be dropped on, ignoring the
// dropped-pawn mate rule.
func (s *State) dropTargets(t Teban, kind MochigomaKind) Bitboard {
	targets := s.part.occupied().Not().AndNot(denyMoveMask(t, KomaKindFromMochigoma(t, kind)))
	if kind == MochigomaFu {
		fu := s.part.SenteFu
		if t == Gote {
			fu = s.part.GoteFu
		}
		for x := 0; x < 9; x++ {
			if fu.File(x) != 0 {
				targets = targets.AndNot(fileBoard(x))
			}
		}
	}
	return targets
}

var fileBoards [9]Bitboard

func init() {
	for x := 0; x < 9; x++ {
		fileBoards[x] = Bitboard{Lo: fileMask}.Shl(uint(x*9 + 1))
	}
}

func fileBoard(x int) Bitboard { return fileBoards[x] }

func (s *State) forEachDrop(t Teban, mc *MochigomaCollections, fn func(LegalMove) bool) bool {
	if mc == nil {
		return true
	}
	hand := mc.Get(t)
	for _, kind := range MochigomaKinds {
		if hand[kind] <= 0 {
			continue
		}
		view := toView(t, s.dropTargets(t, kind))
		for v := view.PopLSB(); v != -1; v = view.PopLSB() {
			if !fn(LegalMoveFromPut(NewLegalMovePut(kind, viewSquare(t, v)))) {
				return false
			}
		}
	}
	return true
}

// forEachPseudoLegalMove emits every move allowed by piece geometry and the
// drop rules, without looking at the mover's king.
func (s *State) forEachPseudoLegalMove(t Teban, mc *MochigomaCollections, fn func(LegalMove) bool) bool {
	if !s.forEachBoardMove(t, fn) {
		return false
	}
	return s.forEachDrop(t, mc, fn)
}

// PseudoLegalMovesAll lists the moves allowed by geometry, promotion and drop
// rules; moves that leave the mover's king capturable are included.
func PseudoLegalMovesAll(t Teban, s *State, mc *MochigomaCollections) []LegalMove {
	var mvs []LegalMove
	s.forEachPseudoLegalMove(t, mc, func(m LegalMove) bool {
		mvs = append(mvs, m)
		return true
	})
	return mvs
}

// isLegalAfter reports whether m keeps the mover's king safe and is not a
// dropped-pawn mate. Capturing the king is always allowed.
func (s *State) isLegalAfter(t Teban, mc *MochigomaCollections, m LegalMove) bool {
	if !m.IsPut() && m.To().Obtained() == ObtainOu {
		return true
	}
	next, nmc, _ := ApplyMoveNoneCheck(s, t, mc, m.Applied())
	if IsMate(t.Opposite(), &next) {
		return false
	}
	if m.IsPut() && m.Put().Kind() == MochigomaFu && IsMate(t, &next) {
		return next.hasLegalReply(t.Opposite(), &nmc)
	}
	return true
}

// hasLegalReply reports whether t has any move that leaves its king safe.
// Drops never answer a pawn check, so the pawn-drop rule is not consulted.
func (s *State) hasLegalReply(t Teban, mc *MochigomaCollections) bool {
	found := false
	s.forEachPseudoLegalMove(t, mc, func(m LegalMove) bool {
		if !m.IsPut() && m.To().Obtained() == ObtainOu {
			found = true
			return false
		}
		next, _, _ := ApplyMoveNoneCheck(s, t, mc, m.Applied())
		if !IsMate(t.Opposite(), &next) {
			found = true
			return false
		}
		return true
	})
	return found
}

// ForEachLegalMove calls fn for every strictly legal move until fn returns
// false.
func ForEachLegalMove(t Teban, s *State, mc *MochigomaCollections, fn func(LegalMove) bool) {
	s.forEachPseudoLegalMove(t, mc, func(m LegalMove) bool {
		if !s.isLegalAfter(t, mc, m) {
			return true
		}
		return fn(m)
	})
}

// LegalMovesAll lists every strictly legal move of t.
func LegalMovesAll(t Teban, s *State, mc *MochigomaCollections) []LegalMove {
	return LegalMovesAllInto(nil, t, s, mc)
}

// LegalMovesAllInto appends the legal moves to buf[:0] so callers can reuse
// one buffer across positions.
func LegalMovesAllInto(buf []LegalMove, t Teban, s *State, mc *MochigomaCollections) []LegalMove {
	buf = buf[:0]
	ForEachLegalMove(t, s, mc, func(m LegalMove) bool {
		buf = append(buf, m)
		return true
	})
	return buf
}

// LegalMovesFrom lists the legal moves of t's piece on (x, y).
func LegalMovesFrom(t Teban, s *State, x, y int) []LegalMove {
	from := x*9 + y
	kind := s.banmen.At(from)
	if !kind.BelongsTo(t) {
		return nil
	}
	var (
		mvs []LegalMove
		mc  MochigomaCollections
	)
	s.forEachTarget(t, from, kind, s.part.Attacks(kind, from), func(m LegalMove) bool {
		if s.isLegalAfter(t, &mc, m) {
			mvs = append(mvs, m)
		}
		return true
	})
	return mvs
}

// LegalMovesFromMochigoma lists the legal drops of t.
func LegalMovesFromMochigoma(t Teban, s *State, mc *MochigomaCollections) []LegalMove {
	var mvs []LegalMove
	s.forEachDrop(t, mc, func(m LegalMove) bool {
		if s.isLegalAfter(t, mc, m) {
			mvs = append(mvs, m)
		}
		return true
	})
	return mvs
}

// WinOnlyMoves lists the moves of t that capture the opponent's king. It is
// non-empty exactly when the opponent is in check.
func WinOnlyMoves(t Teban, s *State) []LegalMove {
	ou := s.part.ouSquare(t.Opposite())
	if ou == -1 {
		return nil
	}
	var mvs []LegalMove
	target := SquareBit(ou)
	s.forEachAttacker(t, ou, func(from int, kind KomaKind) bool {
		s.forEachTarget(t, from, kind, target, func(m LegalMove) bool {
			mvs = append(mvs, m)
			return true
		})
		return true
	})
	return mvs
}

// OuteOnlyMovesAll lists the moves of t that leave the opponent in check,
// directly or by uncovering a rook, bishop or lance. When the king can be
// taken those moves are returned instead.
func OuteOnlyMovesAll(t Teban, s *State, mc *MochigomaCollections) []LegalMove {
	if w := WinOnlyMoves(t, s); len(w) > 0 {
		return w
	}
	ou := s.part.ouSquare(t.Opposite())
	if ou == -1 {
		return nil
	}
	var mvs []LegalMove
	ForEachLegalMove(t, s, mc, func(m LegalMove) bool {
		ps, moved := ApplyMoveToPartialState(s, t, mc, m.Applied())
		dst := m.Applied().Dst()
		if ps.Attacks(moved, dst).Has(ou) || ps.slidersAttack(t, ou) {
			mvs = append(mvs, m)
		}
		return true
	})
	return mvs
}

// RespondOuteOnlyMovesAll lists the moves of t after which t's king is not
// attacked. While in check only king moves, captures of the checker,
// interpositions and captures of the opposing king are kept.
func RespondOuteOnlyMovesAll(t Teban, s *State, mc *MochigomaCollections) []LegalMove {
	ou := s.part.ouSquare(t)
	if ou == -1 {
		return LegalMovesAll(t, s, mc)
	}
	checkers := s.checkers(t)
	if len(checkers) == 0 {
		return LegalMovesAll(t, s, mc)
	}
	var evasion Bitboard
	if len(checkers) == 1 {
		evasion = SquareBit(checkers[0]).Or(between(ou, checkers[0]))
	}
	var mvs []LegalMove
	ForEachLegalMove(t, s, mc, func(m LegalMove) bool {
		if m.IsPut() {
			if evasion.Has(m.Put().Dst()) {
				mvs = append(mvs, m)
			}
			return true
		}
		to := m.To()
		if to.Src() == ou || evasion.Has(to.Dst()) || to.Obtained() == ObtainOu {
			mvs = append(mvs, m)
		}
		return true
	})
	return mvs
}

// between returns the squares strictly between a and b when they share a
// line.
func between(a, b int) Bitboard {
	for d := direction(0); d < directionCount; d++ {
		var sq Bitboard
		for _, r := range rays[d][a] {
			if r == b {
				return sq
			}
			sq.Set(r)
		}
	}
	return Bitboard{}
}
