package shogi

import "errors"

var (
	// ErrSennichite is returned when a position occurs for the fourth time.
	ErrSennichite = errors.New("sennichite")
	// ErrPerpetualCheckLose is returned when the repetition was reached by
	// one side checking on every move; that side loses.
	ErrPerpetualCheckLose = errors.New("sennichite by perpetual check")
)

// HashKey identifies a position by both of its hashes.
type HashKey struct {
	Main uint64
	Sub  uint64
}

// KyokumenMap counts positions per side, keyed by the main and sub hash.
// The zero value is ready to use.
type KyokumenMap struct {
	m [2]map[HashKey]int
}

func NewKyokumenMap() *KyokumenMap { return &KyokumenMap{} }

func (km *KyokumenMap) Get(t Teban, mhash, shash uint64) (int, bool) {
	v, ok := km.m[t][HashKey{mhash, shash}]
	return v, ok
}

func (km *KyokumenMap) Insert(t Teban, mhash, shash uint64, count int) {
	if km.m[t] == nil {
		km.m[t] = make(map[HashKey]int)
	}
	km.m[t][HashKey{mhash, shash}] = count
}

func (km *KyokumenMap) Remove(t Teban, mhash, shash uint64) {
	delete(km.m[t], HashKey{mhash, shash})
}

// Clear forgets every position recorded for t.
func (km *KyokumenMap) Clear(t Teban) {
	km.m[t] = nil
}

// Len returns the number of distinct positions recorded for t.
func (km *KyokumenMap) Len(t Teban) int { return len(km.m[t]) }

// Clone returns an independent copy, for search code that explores and
// backtracks.
func (km *KyokumenMap) Clone() *KyokumenMap {
	c := &KyokumenMap{}
	for t := range km.m {
		if km.m[t] == nil {
			continue
		}
		c.m[t] = make(map[HashKey]int, len(km.m[t]))
		for k, v := range km.m[t] {
			c.m[t][k] = v
		}
	}
	return c
}

// sennichiteCount is the number of earlier occurrences that makes the next
// one the fourth.
const sennichiteCount = 3

// UpdateSennichiteMap records the position t just moved into.
func UpdateSennichiteMap(s *State, t Teban, mhash, shash uint64, km *KyokumenMap) {
	c, _ := km.Get(t, mhash, shash)
	km.Insert(t, mhash, shash, c+1)
}

// IsSennichite reports whether the position t just moved into has already
// occurred three times, so this is the fourth. Call it before updating the
// map.
func IsSennichite(s *State, t Teban, mhash, shash uint64, km *KyokumenMap) bool {
	c, _ := km.Get(t, mhash, shash)
	return c >= sennichiteCount
}

// UpdateSennichiteByOuteMap counts the position while t keeps checking and
// forgets t's run as soon as t plays a move that is not check.
func UpdateSennichiteByOuteMap(s *State, t Teban, mhash, shash uint64, km *KyokumenMap) {
	if !IsMate(t, s) {
		km.Clear(t)
		return
	}
	c, _ := km.Get(t, mhash, shash)
	km.Insert(t, mhash, shash, c+1)
}

// IsSennichiteByOute reports whether t gives check and has reached this
// position before during an unbroken run of checks.
func IsSennichiteByOute(s *State, t Teban, mhash, shash uint64, km *KyokumenMap) bool {
	if !IsMate(t, s) {
		return false
	}
	c, _ := km.Get(t, mhash, shash)
	return c > 0
}

// SennichiteOutcome judges the position t just moved into against the maps,
// before they are updated. It returns ErrPerpetualCheckLose when t reached
// the fourth repetition by checking throughout, ErrSennichite for any other
// fourth repetition and nil otherwise. Either map may be nil.
func SennichiteOutcome(s *State, t Teban, mhash, shash uint64, kyokumenMap, outeMap *KyokumenMap) error {
	if kyokumenMap == nil || !IsSennichite(s, t, mhash, shash, kyokumenMap) {
		return nil
	}
	if outeMap != nil && IsSennichiteByOute(s, t, mhash, shash, outeMap) {
		return ErrPerpetualCheckLose
	}
	return ErrSennichite
}
