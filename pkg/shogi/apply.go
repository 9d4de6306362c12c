package shogi

// applyToPartial plays m on ps using b for the pieces involved. It returns
// the kind standing on the destination afterwards and the captured kind.
func applyToPartial(ps *PartialState, b *Banmen, t Teban, m AppliedMove) (KomaKind, KomaKind) {
	if m.IsPut() {
		p := m.Put()
		k := KomaKindFromMochigoma(t, p.Kind())
		ps.togglePiece(k, p.Dst())
		return k, Blank
	}
	to := m.To()
	src, dst := to.Src(), to.Dst()
	k := b.At(src)
	captured := b.At(dst)
	if captured != Blank {
		ps.togglePiece(captured, dst)
	}
	ps.togglePiece(k, src)
	moved := k
	if to.IsNari() {
		moved = k.Nari()
	}
	ps.togglePiece(moved, dst)
	return moved, captured
}

// ApplyMoveNoneCheck plays m for t without validating it and returns the new
// state, the new hands and the captured kind (ObtainNone when nothing was
// taken). Capturing a king reports ObtainOu and adds nothing to the hand.
func ApplyMoveNoneCheck(s *State, t Teban, mc *MochigomaCollections, m AppliedMove) (State, MochigomaCollections, ObtainKind) {
	next := *s
	nmc := *mc
	moved, captured := applyToPartial(&next.part, &s.banmen, t, m)
	if m.IsPut() {
		p := m.Put()
		nmc.Of(t).Pull(p.Kind())
		next.banmen.set(p.Dst(), moved)
		return next, nmc, ObtainNone
	}
	to := m.To()
	next.banmen.set(to.Src(), Blank)
	next.banmen.set(to.Dst(), moved)
	obtained, ok := captured.Obtain()
	if !ok {
		return next, nmc, ObtainNone
	}
	if hand, ok := obtained.Mochigoma(); ok {
		nmc.Of(t).Put(hand)
	}
	return next, nmc, obtained
}

// ApplyMoveToPartialState updates only the bitboards, for callers that need
// attack information after a move but not the board itself. It also returns
// the kind now standing on the destination.
func ApplyMoveToPartialState(s *State, t Teban, mc *MochigomaCollections, m AppliedMove) (PartialState, KomaKind) {
	ps := s.part
	moved, _ := applyToPartial(&ps, &s.banmen, t, m)
	return ps, moved
}

// ApplyValidMove validates m and plays it.
func ApplyValidMove(s *State, t Teban, mc *MochigomaCollections, m AppliedMove) (State, MochigomaCollections, ObtainKind, error) {
	if err := ValidateMove(t, s, mc, m); err != nil {
		return State{}, MochigomaCollections{}, ObtainNone, err
	}
	next, nmc, o := ApplyMoveNoneCheck(s, t, mc, m)
	return next, nmc, o, nil
}

// ApplyMoves plays moves in order starting with t, without validation. It
// updates the hashes and, when non-nil, the repetition maps: each position
// reached is recorded under the side that moved into it.
func ApplyMoves(s State, t Teban, mc MochigomaCollections, moves []AppliedMove, mhash, shash uint64,
	kyokumenMap, outeMap *KyokumenMap, hasher *KyokumenHash) (Teban, State, MochigomaCollections, uint64, uint64) {
	return ApplyMovesWithCallback(s, t, mc, moves, mhash, shash, kyokumenMap, outeMap, hasher, nil)
}

// MoveCallback sees each move with the state it was played from, the state
// it produced and the captured kind. Returning false stops the replay.
type MoveCallback func(t Teban, before, after *State, m AppliedMove, obtained ObtainKind) bool

// ApplyMovesWithCallback is ApplyMoves with a hook run after every ply.
func ApplyMovesWithCallback(s State, t Teban, mc MochigomaCollections, moves []AppliedMove, mhash, shash uint64,
	kyokumenMap, outeMap *KyokumenMap, hasher *KyokumenHash, cb MoveCallback) (Teban, State, MochigomaCollections, uint64, uint64) {
	for _, m := range moves {
		mhash = hasher.CalcMainHash(mhash, t, &s.banmen, &mc, m)
		shash = hasher.CalcSubHash(shash, t, &s.banmen, &mc, m)
		next, nmc, obtained := ApplyMoveNoneCheck(&s, t, &mc, m)
		if kyokumenMap != nil {
			UpdateSennichiteMap(&next, t, mhash, shash, kyokumenMap)
		}
		if outeMap != nil {
			UpdateSennichiteByOuteMap(&next, t, mhash, shash, outeMap)
		}
		stop := cb != nil && !cb(t, &s, &next, m, obtained)
		s, mc, t = next, nmc, t.Opposite()
		if stop {
			break
		}
	}
	return t, s, mc, mhash, shash
}
