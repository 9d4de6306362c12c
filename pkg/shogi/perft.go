package shogi

// Perft counts the leaf positions reachable from s in depth plies of legal
// moves. Positions where the king can be taken are counted but not expanded.
func Perft(t Teban, s *State, mc *MochigomaCollections, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var bufs [][]LegalMove
	for i := 0; i < depth; i++ {
		bufs = append(bufs, make([]LegalMove, 0, 128))
	}
	return perft(t, s, mc, depth, bufs)
}

func perft(t Teban, s *State, mc *MochigomaCollections, depth int, bufs [][]LegalMove) uint64 {
	mvs := LegalMovesAllInto(bufs[depth-1], t, s, mc)
	bufs[depth-1] = mvs
	if depth == 1 {
		return uint64(len(mvs))
	}
	var nodes uint64
	for _, m := range mvs {
		if IsWin(s, t, m.Applied()) {
			nodes++
			continue
		}
		next, nmc, _ := ApplyMoveNoneCheck(s, t, mc, m.Applied())
		nodes += perft(t.Opposite(), &next, &nmc, depth-1, bufs)
	}
	return nodes
}

// DivideEntry is the perft count below one root move.
type DivideEntry struct {
	Move  LegalMove
	Nodes uint64
}

// Divide runs Perft below every root move, in generation order.
func Divide(t Teban, s *State, mc *MochigomaCollections, depth int) []DivideEntry {
	if depth <= 0 {
		return nil
	}
	var out []DivideEntry
	for _, m := range LegalMovesAll(t, s, mc) {
		if IsWin(s, t, m.Applied()) {
			out = append(out, DivideEntry{Move: m, Nodes: 1})
			continue
		}
		next, nmc, _ := ApplyMoveNoneCheck(s, t, mc, m.Applied())
		out = append(out, DivideEntry{Move: m, Nodes: Perft(t.Opposite(), &next, &nmc, depth-1)})
	}
	return out
}
