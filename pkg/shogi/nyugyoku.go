package shogi

import "time"

// NyugyokuRule holds the thresholds of the entering-king declaration.
type NyugyokuRule struct {
	SentePoints int
	GotePoints  int
	MinPieces   int
}

// DefaultNyugyokuRule asks 28 points of either side and ten pieces besides
// the king inside the opponent's camp.
var DefaultNyugyokuRule = NyugyokuRule{SentePoints: 28, GotePoints: 28, MinPieces: 10}

func (r NyugyokuRule) points(t Teban) int {
	if t == Sente {
		return r.SentePoints
	}
	return r.GotePoints
}

func nyugyokuPoints(o ObtainKind) int {
	switch o {
	case ObtainKaku, ObtainHisha, ObtainKakuN, ObtainHishaN:
		return 5
	case ObtainOu:
		return 0
	}
	return 1
}

// IsNyugyokuWin applies DefaultNyugyokuRule at the current time.
func IsNyugyokuWin(s *State, t Teban, mc *MochigomaCollections, deadline *time.Time) bool {
	return DefaultNyugyokuRule.IsWinAt(s, t, mc, deadline, time.Now())
}

// IsWin reports whether t may declare a win by entering king.
func (r NyugyokuRule) IsWin(s *State, t Teban, mc *MochigomaCollections, deadline *time.Time) bool {
	return r.IsWinAt(s, t, mc, deadline, time.Now())
}

// IsWinAt is IsWin with an explicit clock. A deadline after now makes the
// declaration premature and the result false.
func (r NyugyokuRule) IsWinAt(s *State, t Teban, mc *MochigomaCollections, deadline *time.Time, now time.Time) bool {
	if deadline != nil && deadline.After(now) {
		return false
	}
	ou := s.part.ouSquare(t)
	zone := nariMask(t)
	if ou == -1 || !zone.Has(ou) {
		return false
	}
	if IsMate(t.Opposite(), s) {
		return false
	}
	pieces := s.part.ownAbs(t).And(zone)
	count, points := 0, 0
	for sq := pieces.PopLSB(); sq != -1; sq = pieces.PopLSB() {
		o, _ := s.banmen.At(sq).Obtain()
		if o == ObtainOu {
			continue
		}
		count++
		points += nyugyokuPoints(o)
	}
	if count < r.MinPieces {
		return false
	}
	hand := mc.Get(t)
	for _, k := range MochigomaKinds {
		points += hand[k] * nyugyokuPoints(ObtainKind(k))
	}
	return points >= r.points(t)
}
