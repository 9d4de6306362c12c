package kifu

import (
	"context"
	"errors"
	"fmt"

	"shogirule/pkg/shogi"
)

// Outcome is what the rule engine concluded about a replayed game.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeSennichite     Outcome = "sennichite"
	OutcomePerpetualCheck Outcome = "perpetual_check"
	OutcomeMate           Outcome = "mate"
	OutcomeNyugyoku       Outcome = "nyugyoku"
	OutcomeIllegal        Outcome = "illegal"
	OutcomeKingCaptured   Outcome = "king_captured"
)

type PlyInfo struct {
	Move     shogi.AppliedMove
	Captured shogi.ObtainKind
	Check    bool
}

type ReplayResult struct {
	Plies []PlyInfo
	Final Position
	// MainHash and SubHash identify Final.
	MainHash uint64
	SubHash  uint64
	Outcome  Outcome
	// IllegalPly is the 1-based ply of the rejected move, with the reason
	// in IllegalErr.
	IllegalPly int
	IllegalErr error
	// Consistent reports whether the record's terminal marker agrees with
	// Outcome.
	Consistent bool
}

// Replayer plays records through the rule engine, tracking repetitions.
type Replayer struct {
	Hasher *shogi.KyokumenHash
	Rule   shogi.NyugyokuRule
	// MaxPly stops the replay early when positive.
	MaxPly int
}

func NewReplayer() *Replayer {
	return &Replayer{Hasher: shogi.NewKyokumenHash(shogi.DefaultHashSeed), Rule: shogi.DefaultNyugyokuRule}
}

func (r *Replayer) Replay(ctx context.Context, b *Board) (ReplayResult, error) {
	pos := b.InitialPosition()
	s := pos.State()
	if err := s.Validate(&pos.Hands); err != nil {
		return ReplayResult{}, err
	}
	t, mc := pos.Turn, pos.Hands
	mhash, shash := r.Hasher.CalcInitialHash(s.Banmen(), &mc, t)
	km, om := shogi.NewKyokumenMap(), shogi.NewKyokumenMap()
	shogi.UpdateSennichiteMap(&s, t.Opposite(), mhash, shash, km)

	res := ReplayResult{}
	moves := b.Moves()
	if r.MaxPly > 0 && len(moves) > r.MaxPly {
		moves = moves[:r.MaxPly]
	}
	for i, m := range moves {
		if err := ctx.Err(); err != nil {
			return ReplayResult{}, err
		}
		if err := shogi.ValidateMove(t, &s, &mc, m); err != nil {
			res.Outcome = OutcomeIllegal
			res.IllegalPly = i + 1
			res.IllegalErr = err
			break
		}
		mhash = r.Hasher.CalcMainHash(mhash, t, s.Banmen(), &mc, m)
		shash = r.Hasher.CalcSubHash(shash, t, s.Banmen(), &mc, m)
		next, nmc, obtained := shogi.ApplyMoveNoneCheck(&s, t, &mc, m)
		check := shogi.IsMate(t, &next)
		res.Plies = append(res.Plies, PlyInfo{Move: m, Captured: obtained, Check: check})
		s, mc = next, nmc
		if obtained == shogi.ObtainOu {
			res.Outcome = OutcomeKingCaptured
			t = t.Opposite()
			break
		}
		err := shogi.SennichiteOutcome(&s, t, mhash, shash, km, om)
		shogi.UpdateSennichiteMap(&s, t, mhash, shash, km)
		shogi.UpdateSennichiteByOuteMap(&s, t, mhash, shash, om)
		t = t.Opposite()
		if errors.Is(err, shogi.ErrPerpetualCheckLose) {
			res.Outcome = OutcomePerpetualCheck
			break
		}
		if errors.Is(err, shogi.ErrSennichite) {
			res.Outcome = OutcomeSennichite
			break
		}
	}

	if res.Outcome == OutcomeNone {
		switch {
		case len(shogi.LegalMovesAll(t, &s, &mc)) == 0:
			res.Outcome = OutcomeMate
		case r.Rule.IsWin(&s, t, &mc, nil):
			res.Outcome = OutcomeNyugyoku
		}
	}
	res.Final = Position{Banmen: *s.Banmen(), Hands: mc, Turn: t, Ply: pos.Ply + len(res.Plies)}
	res.MainHash, res.SubHash = mhash, shash
	res.Consistent = res.agrees(b, len(moves))
	return res, nil
}

// agrees compares the engine's view with the record's terminal marker.
func (res *ReplayResult) agrees(b *Board, played int) bool {
	terminal, _ := b.Terminal()
	if b.IsFoulEnd() {
		return res.Outcome == OutcomePerpetualCheck ||
			(res.Outcome == OutcomeIllegal && res.IllegalPly == played)
	}
	if res.Outcome == OutcomeIllegal || res.Outcome == OutcomeKingCaptured {
		return false
	}
	switch terminal {
	case "千日手":
		return res.Outcome == OutcomeSennichite
	case "詰み":
		return res.Outcome == OutcomeMate
	case "入玉勝ち", "勝ち宣言":
		return res.Outcome == OutcomeNyugyoku
	}
	// The engine ends the game at a repetition, so nothing may follow it.
	if res.Outcome == OutcomeSennichite || res.Outcome == OutcomePerpetualCheck {
		return len(res.Plies) == played
	}
	return true
}

// Walk replays the first maxPly moves (all when maxPly <= 0) without
// validation and calls fn with every position a move was played from.
// Records should be checked with Replay first.
func Walk(b *Board, hasher *shogi.KyokumenHash, maxPly int, fn func(pos *Position, next shogi.AppliedMove)) {
	moves := b.Moves()
	if maxPly > 0 && len(moves) > maxPly {
		moves = moves[:maxPly]
	}
	start := b.InitialPosition()
	pos := start
	shogi.ApplyMovesWithCallback(start.State(), start.Turn, start.Hands, moves, 0, 0, nil, nil, hasher,
		func(t shogi.Teban, before, after *shogi.State, m shogi.AppliedMove, obtained shogi.ObtainKind) bool {
			pos.Banmen = *before.Banmen()
			fn(&pos, m)
			hand := pos.Hands.Of(t)
			if m.IsPut() {
				hand.Pull(m.Put().Kind())
			}
			if k, ok := obtained.Mochigoma(); ok {
				hand.Put(k)
			}
			pos.Turn = t.Opposite()
			pos.Ply++
			return true
		})
}

// Summary is a one-line description of a replay.
func (res *ReplayResult) Summary() string {
	s := fmt.Sprintf("%d plies", len(res.Plies))
	if res.Outcome != OutcomeNone {
		s += ", " + string(res.Outcome)
	}
	if res.IllegalErr != nil {
		s += fmt.Sprintf(" at ply %d (%v)", res.IllegalPly, res.IllegalErr)
	}
	if !res.Consistent {
		s += ", disagrees with record"
	}
	return s
}
