package shogi

import (
	"golang.org/x/exp/rand"
)

// DefaultHashSeed seeds the Zobrist tables when no seed is configured.
const DefaultHashSeed uint64 = 0x5f3759df9e3779b9

// maxHandCount bounds the hand seed table; only pawns reach 18.
const maxHandCount = 18

// KyokumenHash holds the Zobrist seeds. Two independent hashes are kept: the
// main one combines seeds with XOR, the sub one with wrapping addition, so a
// collision has to happen in both at once.
type KyokumenHash struct {
	board [KomaKindCount][81]uint64
	hand  [2][maxHandCount][MochigomaKindCount]uint64
	teban uint64
}

// NewKyokumenHash draws every seed from a PCG stream started at seed, so
// hashes are stable for a given seed.
func NewKyokumenHash(seed uint64) *KyokumenHash {
	r := rand.New(rand.NewSource(seed))
	h := &KyokumenHash{}
	for k := range h.board {
		for sq := range h.board[k] {
			h.board[k][sq] = r.Uint64()
		}
	}
	for t := range h.hand {
		for c := range h.hand[t] {
			for k := range h.hand[t][c] {
				h.hand[t][c][k] = r.Uint64()
			}
		}
	}
	h.teban = r.Uint64()
	return h
}

// CalcInitialHash hashes a position from scratch. Empty squares contribute
// the Blank seed, a hand of n pieces contributes the seeds for counts 0..n-1
// and the gote-to-move seed is included when t is Gote.
func (h *KyokumenHash) CalcInitialHash(banmen *Banmen, mc *MochigomaCollections, t Teban) (uint64, uint64) {
	var mhash, shash uint64
	for sq := 0; sq < 81; sq++ {
		seed := h.board[banmen.At(sq)][sq]
		mhash ^= seed
		shash += seed
	}
	for side := Sente; side <= Gote; side++ {
		hand := mc.Get(side)
		for _, k := range MochigomaKinds {
			for c := 0; c < hand[k] && c < maxHandCount; c++ {
				seed := h.hand[side][c][k]
				mhash ^= seed
				shash += seed
			}
		}
	}
	if t == Gote {
		mhash ^= h.teban
		shash += h.teban
	}
	return mhash, shash
}

// hashDelta lists the seeds a move removes and adds, computed on the
// position before the move.
func (h *KyokumenHash) hashDelta(t Teban, banmen *Banmen, mc *MochigomaCollections, m AppliedMove) (pull, add [3]uint64) {
	hand := mc.Get(t)
	if m.IsPut() {
		p := m.Put()
		dst := p.Dst()
		if c := hand[p.Kind()] - 1; c >= 0 && c < maxHandCount {
			pull[0] = h.hand[t][c][p.Kind()]
		}
		pull[1] = h.board[Blank][dst]
		add[0] = h.board[KomaKindFromMochigoma(t, p.Kind())][dst]
		return pull, add
	}
	to := m.To()
	src, dst := to.Src(), to.Dst()
	k := banmen.At(src)
	moved := k
	if to.IsNari() {
		moved = k.Nari()
	}
	captured := banmen.At(dst)
	pull[0] = h.board[k][src]
	pull[1] = h.board[captured][dst]
	add[0] = h.board[Blank][src]
	add[1] = h.board[moved][dst]
	if o, ok := captured.Obtain(); ok {
		if mk, ok := o.Mochigoma(); ok {
			if c := hand[mk]; c < maxHandCount {
				add[2] = h.hand[t][c][mk]
			}
		}
	}
	return pull, add
}

// CalcMainHash updates mhash for t playing m on the position before the
// move.
func (h *KyokumenHash) CalcMainHash(mhash uint64, t Teban, banmen *Banmen, mc *MochigomaCollections, m AppliedMove) uint64 {
	pull, add := h.hashDelta(t, banmen, mc, m)
	for i := range pull {
		mhash ^= pull[i] ^ add[i]
	}
	return mhash ^ h.teban
}

// CalcSubHash is CalcMainHash for the additive hash.
func (h *KyokumenHash) CalcSubHash(shash uint64, t Teban, banmen *Banmen, mc *MochigomaCollections, m AppliedMove) uint64 {
	pull, add := h.hashDelta(t, banmen, mc, m)
	for i := range pull {
		shash = shash - pull[i] + add[i]
	}
	if t == Sente {
		return shash + h.teban
	}
	return shash - h.teban
}
