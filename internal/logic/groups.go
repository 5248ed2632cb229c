package logic

// MaxPool bounds how many of the least-played players enter the subset search.
// C(16,4) = 1820 groups per court.
const MaxPool = 16

// Candidate is a group chosen for one court.
type Candidate struct {
	IDs     [4]string
	Pairing Pairing
	Penalty int
}

// Combinations calls fn with every k-subset of 0..n-1 in lexicographic
// order until fn returns false. idx is reused between calls.
func Combinations(n, k int, fn func(idx []int) bool) {
	if k > n || k <= 0 {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(idx) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func searchGroups(pool []string, byID map[string]Player, teammates, opponents PairCounts, limits RepeatLimit) (Candidate, bool) {
	var (
		best  Candidate
		found bool
	)
	players := make([]Player, 4)
	Combinations(len(pool), 4, func(idx []int) bool {
		var ids [4]string
		for i, j := range idx {
			ids[i] = pool[j]
			players[i] = byID[pool[j]]
		}
		if !LevelGroupValid(players) || !GenderGroupValid(players) {
			return true
		}
		pairing, pen, ok := BestPairing(ids, byID, teammates, opponents, limits)
		if !ok {
			return true
		}
		if !found || pen < best.Penalty {
			best = Candidate{IDs: ids, Pairing: pairing, Penalty: pen}
			found = true
		}
		return best.Penalty != 0
	})
	return best, found
}

// SelectGroup picks the best group for one court out of pool, which must
// already be in fairness order. soft reports that the relaxed limits were
// needed; ok is false when no group fits.
func SelectGroup(pool []string, byID map[string]Player, teammates, opponents PairCounts, settings Settings) (c Candidate, soft bool, ok bool) {
	if len(pool) > MaxPool {
		pool = pool[:MaxPool]
	}
	strict := settings.RepeatLimit
	c, ok = searchGroups(pool, byID, teammates, opponents, strict)
	if !ok && settings.AllowSoftOverride {
		c, ok = searchGroups(pool, byID, teammates, opponents, strict.Relaxed())
		soft = ok
	}
	if !ok {
		return Candidate{}, false, false
	}

	// re-check the split against the counters as they are now
	if p, pen, found := BestPairing(c.IDs, byID, teammates, opponents, strict); found {
		c.Pairing, c.Penalty = p, pen
	} else if settings.AllowSoftOverride {
		if p, pen, found := BestPairing(c.IDs, byID, teammates, opponents, strict.Relaxed()); found {
			c.Pairing, c.Penalty = p, pen
		}
	}
	return c, soft, true
}
