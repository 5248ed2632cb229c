package logic

import (
	"sort"
	"strconv"
)

// FairnessOrder returns player ids sorted by games played, then by the round
// they last played in. Equal players keep roster order.
func FairnessOrder(players []Player) []string {
	sorted := make([]Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].GamesPlayed != sorted[j].GamesPlayed {
			return sorted[i].GamesPlayed < sorted[j].GamesPlayed
		}
		return sorted[i].LastPlayedAt < sorted[j].LastPlayedAt
	})
	ids := make([]string, len(sorted))
	for i, p := range sorted {
		ids[i] = p.ID
	}
	return ids
}

func record(p Pairing, teammates, opponents PairCounts) {
	teammates.Inc(p.PairA[0], p.PairA[1])
	teammates.Inc(p.PairB[0], p.PairB[1])
	for _, o := range p.Opponents() {
		opponents.Inc(o[0], o[1])
	}
}

// GenerateRound fills up to Settings.Courts courts one after another and
// returns the next session with the new round appended. s is not modified.
func GenerateRound(s Session) Session {
	roundIndex := len(s.Rounds) + 1
	byID := s.PlayersByID()
	order := FairnessOrder(s.Players)

	// scratch counters so later courts see earlier picks
	simTeammates := s.TeammatePairs.Clone()
	simOpponents := s.OpponentPairs.Clone()

	used := make(map[string]bool, len(order))
	matches := []Match{}
	softUsed := false

	for court := 1; court <= s.Settings.Courts; court++ {
		pool := make([]string, 0, len(order))
		for _, id := range order {
			if !used[id] {
				pool = append(pool, id)
			}
		}
		if len(pool) < 4 {
			break
		}
		c, soft, ok := SelectGroup(pool, byID, simTeammates, simOpponents, s.Settings)
		if !ok {
			break
		}
		softUsed = softUsed || soft
		m := Match{Court: len(matches) + 1, PairA: c.Pairing.PairA, PairB: c.Pairing.PairB}
		for _, id := range m.Players() {
			used[id] = true
		}
		record(c.Pairing, simTeammates, simOpponents)
		matches = append(matches, m)
	}

	bench := []string{}
	for _, id := range order {
		if !used[id] {
			bench = append(bench, id)
		}
	}

	next := Session{
		Players:       make([]Player, len(s.Players)),
		Rounds:        make([]Round, 0, len(s.Rounds)+1),
		TeammatePairs: s.TeammatePairs.Clone(),
		OpponentPairs: s.OpponentPairs.Clone(),
		Settings:      s.Settings,
		NextID:        s.NextID,
	}
	for _, m := range matches {
		record(Pairing{PairA: m.PairA, PairB: m.PairB}, next.TeammatePairs, next.OpponentPairs)
	}
	for i, p := range s.Players {
		if used[p.ID] {
			p.GamesPlayed++
			p.LastPlayedAt = roundIndex
		}
		next.Players[i] = p
	}
	next.Rounds = append(next.Rounds, s.Rounds...)
	next.Rounds = append(next.Rounds, Round{
		ID:               strconv.Itoa(roundIndex),
		Index:            roundIndex,
		Matches:          matches,
		Bench:            bench,
		SoftOverrideUsed: softUsed,
	})
	return next
}

// Preview reports how many courts the next round would fill.
func Preview(s Session) int {
	r, _ := GenerateRound(s).LastRound()
	return len(r.Matches)
}
