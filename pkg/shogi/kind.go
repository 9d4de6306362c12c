package shogi

import "fmt"

// Teban is the side to move.
type Teban int

const (
	Sente Teban = iota
	Gote
)

func (t Teban) Opposite() Teban {
	if t == Sente {
		return Gote
	}
	return Sente
}

func (t Teban) String() string {
	if t == Sente {
		return "sente"
	}
	return "gote"
}

// KomaKind is a piece on the board together with its owner. Sente kinds come
// first, then gote kinds in the same order, then Blank.
type KomaKind uint8

const (
	SFu KomaKind = iota
	SKyou
	SKei
	SGin
	SKin
	SKaku
	SHisha
	SOu
	SFuN
	SKyouN
	SKeiN
	SGinN
	SKakuN
	SHishaN
	GFu
	GKyou
	GKei
	GGin
	GKin
	GKaku
	GHisha
	GOu
	GFuN
	GKyouN
	GKeiN
	GGinN
	GKakuN
	GHishaN
	Blank
)

// KomaKindCount includes Blank.
const KomaKindCount = int(Blank) + 1

const kindsPerSide = int(GFu)

func (k KomaKind) IsSente() bool { return k < GFu }

func (k KomaKind) IsGote() bool { return k >= GFu && k < Blank }

// Owner reports the side owning the piece; ok is false for Blank.
func (k KomaKind) Owner() (Teban, bool) {
	switch {
	case k.IsSente():
		return Sente, true
	case k.IsGote():
		return Gote, true
	default:
		return Sente, false
	}
}

// BelongsTo reports whether the piece is owned by t.
func (k KomaKind) BelongsTo(t Teban) bool {
	if t == Sente {
		return k.IsSente()
	}
	return k.IsGote()
}

// Obtain strips the owner. Blank has no obtain kind.
func (k KomaKind) Obtain() (ObtainKind, bool) {
	switch {
	case k.IsSente():
		return ObtainKind(k), true
	case k.IsGote():
		return ObtainKind(int(k) - kindsPerSide), true
	default:
		return 0, false
	}
}

func (k KomaKind) IsNari() bool {
	o, ok := k.Obtain()
	return ok && o >= ObtainFuN
}

// Promotable is true for Fu, Kyou, Kei, Gin, Kaku and Hisha of either side.
func (k KomaKind) Promotable() bool {
	o, ok := k.Obtain()
	if !ok {
		return false
	}
	switch o {
	case ObtainFu, ObtainKyou, ObtainKei, ObtainGin, ObtainKaku, ObtainHisha:
		return true
	}
	return false
}

// Nari returns the promoted form, or k itself when it cannot promote.
func (k KomaKind) Nari() KomaKind {
	if !k.Promotable() {
		return k
	}
	switch k {
	case SKaku, SHisha, GKaku, GHisha:
		return k + 7
	}
	return k + 8
}

// Unnari returns the unpromoted form.
func (k KomaKind) Unnari() KomaKind {
	if !k.IsNari() {
		return k
	}
	switch k {
	case SKakuN, SHishaN, GKakuN, GHishaN:
		return k - 7
	}
	return k - 8
}

// NewKomaKind attaches an owner to an obtain kind.
func NewKomaKind(t Teban, o ObtainKind) KomaKind {
	if t == Sente {
		return KomaKind(o)
	}
	return KomaKind(int(o) + kindsPerSide)
}

// KomaKindFromMochigoma gives the kind a dropped hand piece has on the board.
func KomaKindFromMochigoma(t Teban, m MochigomaKind) KomaKind {
	return NewKomaKind(t, ObtainKind(m))
}

var sfenLetters = [kindsPerSide]string{"P", "L", "N", "S", "G", "B", "R", "K", "+P", "+L", "+N", "+S", "+B", "+R"}

// String gives the SFEN letter, lower case for gote.
func (k KomaKind) String() string {
	o, ok := k.Obtain()
	if !ok {
		return "."
	}
	s := sfenLetters[o]
	if k.IsGote() {
		b := []byte(s)
		for i := range b {
			if b[i] >= 'A' && b[i] <= 'Z' {
				b[i] += 'a' - 'A'
			}
		}
		return string(b)
	}
	return s
}

// ObtainKind is a piece kind without its owner; captures are reported with it.
type ObtainKind uint8

const (
	ObtainFu ObtainKind = iota
	ObtainKyou
	ObtainKei
	ObtainGin
	ObtainKin
	ObtainKaku
	ObtainHisha
	ObtainOu
	ObtainFuN
	ObtainKyouN
	ObtainKeiN
	ObtainGinN
	ObtainKakuN
	ObtainHishaN
)

// ObtainNone marks a move that captured nothing.
const ObtainNone ObtainKind = 0xff

// Mochigoma maps a captured kind to what goes into the hand. Ou never does.
func (o ObtainKind) Mochigoma() (MochigomaKind, bool) {
	switch {
	case o <= ObtainHisha:
		return MochigomaKind(o), true
	case o == ObtainOu || o == ObtainNone:
		return 0, false
	case o == ObtainKakuN || o == ObtainHishaN:
		return MochigomaKind(o - 7), true
	case o <= ObtainHishaN:
		return MochigomaKind(o - 8), true
	}
	return 0, false
}

func (o ObtainKind) String() string {
	if o == ObtainNone {
		return "-"
	}
	if int(o) >= kindsPerSide {
		return fmt.Sprintf("ObtainKind(%d)", o)
	}
	return sfenLetters[o]
}

// MochigomaKind is a kind that can sit in a hand.
type MochigomaKind uint8

const (
	MochigomaFu MochigomaKind = iota
	MochigomaKyou
	MochigomaKei
	MochigomaGin
	MochigomaKin
	MochigomaKaku
	MochigomaHisha
)

const MochigomaKindCount = 7

// MochigomaKinds lists hand kinds in generation order.
var MochigomaKinds = [MochigomaKindCount]MochigomaKind{
	MochigomaFu, MochigomaKyou, MochigomaKei, MochigomaGin, MochigomaKin, MochigomaKaku, MochigomaHisha,
}

func (m MochigomaKind) String() string {
	if int(m) >= MochigomaKindCount {
		return fmt.Sprintf("MochigomaKind(%d)", m)
	}
	return sfenLetters[m]
}

// Mochigoma is one side's hand.
type Mochigoma [MochigomaKindCount]int

func (m Mochigoma) Get(k MochigomaKind) int { return m[k] }

func (m *Mochigoma) Put(k MochigomaKind) { m[k]++ }

// Pull removes one piece and reports whether there was one.
func (m *Mochigoma) Pull(k MochigomaKind) bool {
	if m[k] <= 0 {
		return false
	}
	m[k]--
	return true
}

func (m Mochigoma) IsEmpty() bool {
	for _, c := range m {
		if c != 0 {
			return false
		}
	}
	return true
}

// MochigomaCollections holds both hands.
type MochigomaCollections struct {
	Sente Mochigoma
	Gote  Mochigoma
}

// Of returns a pointer to the hand of t.
func (mc *MochigomaCollections) Of(t Teban) *Mochigoma {
	if t == Sente {
		return &mc.Sente
	}
	return &mc.Gote
}

// Get returns a copy of the hand of t.
func (mc MochigomaCollections) Get(t Teban) Mochigoma {
	if t == Sente {
		return mc.Sente
	}
	return mc.Gote
}

// FilledMochigoma is the full set of non-king pieces one side starts with,
// used to check that material is conserved.
func FilledMochigoma() Mochigoma {
	return Mochigoma{
		MochigomaFu:    9,
		MochigomaKyou:  2,
		MochigomaKei:   2,
		MochigomaGin:   2,
		MochigomaKin:   2,
		MochigomaKaku:  1,
		MochigomaHisha: 1,
	}
}
