package logic

import (
	"github.com/samber/lo"
)

// Pairing splits a group of four into two teams.
type Pairing struct {
	PairA Pair
	PairB Pair
}

// Opponents returns the four cross-team pairs.
func (p Pairing) Opponents() []Pair {
	return []Pair{
		{p.PairA[0], p.PairB[0]},
		{p.PairA[0], p.PairB[1]},
		{p.PairA[1], p.PairB[0]},
		{p.PairA[1], p.PairB[1]},
	}
}

func isBeginner(p Player) bool    { return p.Level == Beginner }
func isNonBeginner(p Player) bool { return p.Level == Semi || p.Level == Advance }
func isFemale(p Player) bool      { return p.Gender == Female }
func isMale(p Player) bool        { return p.Gender == Male }

// LevelGroupValid allows 0 or 4 beginners, or exactly 2 beginners with 2 semi/advance.
func LevelGroupValid(players []Player) bool {
	switch lo.CountBy(players, isBeginner) {
	case 0, 4:
		return true
	case 2:
		return lo.CountBy(players, isNonBeginner) == 2
	}
	return false
}

// GenderGroupValid allows 0, 2 or 4 women in a group.
func GenderGroupValid(players []Player) bool {
	f := lo.CountBy(players, isFemale)
	return f == 0 || f == 2 || f == 4
}

func mixed(p Pair, in, out map[string]bool) bool {
	return (in[p[0]] && out[p[1]]) || (in[p[1]] && out[p[0]])
}

func idSet(players []Player, pred func(Player) bool) map[string]bool {
	set := make(map[string]bool, len(players))
	for _, p := range players {
		if pred(p) {
			set[p.ID] = true
		}
	}
	return set
}

// CandidatePairings lists the three splits of ids in fixed order
// ({a,b}|{c,d}, {a,c}|{b,d}, {a,d}|{b,c}) and keeps the ones that mix
// beginners with non-beginners when the group is 2+2, and women with men
// when the group is 2F+2M.
func CandidatePairings(ids [4]string, byID map[string]Player) []Pairing {
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	combos := []Pairing{
		{PairA: Pair{a, b}, PairB: Pair{c, d}},
		{PairA: Pair{a, c}, PairB: Pair{b, d}},
		{PairA: Pair{a, d}, PairB: Pair{b, c}},
	}
	players := make([]Player, 0, 4)
	for _, id := range ids {
		players = append(players, byID[id])
	}

	beginners := idSet(players, isBeginner)
	others := idSet(players, isNonBeginner)
	if len(beginners) == 2 && len(others) == 2 {
		combos = lo.Filter(combos, func(p Pairing, _ int) bool {
			return mixed(p.PairA, beginners, others) && mixed(p.PairB, beginners, others)
		})
	}

	women := idSet(players, isFemale)
	men := idSet(players, isMale)
	if len(women) == 2 && len(men) == 2 {
		combos = lo.Filter(combos, func(p Pairing, _ int) bool {
			return mixed(p.PairA, women, men) && mixed(p.PairB, women, men)
		})
	}
	return combos
}

// PairingPenalty sums teammate and opponent repeats of a split.
// ok is false when any counter already reached its limit.
func PairingPenalty(p Pairing, teammates, opponents PairCounts, limits RepeatLimit) (penalty int, ok bool) {
	tA := teammates.Get(p.PairA[0], p.PairA[1])
	tB := teammates.Get(p.PairB[0], p.PairB[1])
	if tA >= limits.Teammate || tB >= limits.Teammate {
		return 0, false
	}
	penalty = tA + tB
	for _, o := range p.Opponents() {
		c := opponents.Get(o[0], o[1])
		if c >= limits.Opponent {
			return 0, false
		}
		penalty += c
	}
	return penalty, true
}

// BestPairing returns the admissible split with the lowest penalty;
// the earlier split wins a tie.
func BestPairing(ids [4]string, byID map[string]Player, teammates, opponents PairCounts, limits RepeatLimit) (Pairing, int, bool) {
	var (
		best    Pairing
		bestPen int
		found   bool
	)
	for _, p := range CandidatePairings(ids, byID) {
		pen, ok := PairingPenalty(p, teammates, opponents, limits)
		if !ok {
			continue
		}
		if !found || pen < bestPen {
			best, bestPen, found = p, pen, true
		}
	}
	return best, bestPen, found
}
