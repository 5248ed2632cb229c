package logic

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWith(players []Player, courts int) Session {
	s := NewSession()
	s.Players = players
	s.NextID = len(players) + 1
	s.Settings.Courts = courts
	return s
}

func lastRound(t *testing.T, s Session) Round {
	t.Helper()
	r, ok := s.LastRound()
	require.True(t, ok)
	return r
}

func deepCopy(t *testing.T, s Session) Session {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	var out Session
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestGenerateRoundFourPlayers(t *testing.T) {
	s := sessionWith(sameRoster(4, "Ms"), 1)
	next := GenerateRound(s)

	r := lastRound(t, next)
	assert.Equal(t, 1, r.Index)
	assert.Equal(t, "1", r.ID)
	require.Len(t, r.Matches, 1)
	assert.Empty(t, r.Bench)
	assert.False(t, r.SoftOverrideUsed)
	assert.Equal(t, Match{Court: 1, PairA: Pair{"1", "2"}, PairB: Pair{"3", "4"}}, r.Matches[0])

	for _, p := range next.Players {
		assert.Equal(t, 1, p.GamesPlayed)
		assert.Equal(t, 1, p.LastPlayedAt)
	}
}

func TestGenerateRoundFivePlayersTwoCourts(t *testing.T) {
	s := sessionWith(sameRoster(5, "Ms"), 2)
	r := lastRound(t, GenerateRound(s))
	assert.Len(t, r.Matches, 1)
	assert.Equal(t, []string{"5"}, r.Bench)
}

func TestGenerateRoundBenchedPlayerPlaysNext(t *testing.T) {
	s := sessionWith(sameRoster(5, "Ms"), 1)
	s = GenerateRound(s)
	s = GenerateRound(s)
	r := lastRound(t, s)
	require.Len(t, r.Matches, 1)
	assert.Contains(t, r.Matches[0].Players(), "5")
	assert.Equal(t, 2, r.Index)
}

func TestGenerateRoundBlockedCourt(t *testing.T) {
	players := sameRoster(8, "Ms")
	s := sessionWith(players, 2)
	// player 1 has already partnered everybody up to the limit
	for _, id := range ids(8)[1:] {
		s.TeammatePairs[PairKey("1", id)] = 2
	}

	r := lastRound(t, GenerateRound(s))
	assert.Len(t, r.Matches, 1)
	assert.Contains(t, r.Bench, "1")
	assert.False(t, r.SoftOverrideUsed)
	assert.Equal(t, 1, Preview(s))

	s.Settings.AllowSoftOverride = true
	r = lastRound(t, GenerateRound(s))
	assert.Len(t, r.Matches, 2)
	assert.Empty(t, r.Bench)
	assert.True(t, r.SoftOverrideUsed)
}

func TestGenerateRoundNoMatches(t *testing.T) {
	s := sessionWith(sameRoster(4, "Ms"), 1)
	s.TeammatePairs = PairCounts{"1|2": 2, "1|3": 2, "1|4": 2}

	next := GenerateRound(s)
	r := lastRound(t, next)
	assert.Empty(t, r.Matches)
	assert.Len(t, r.Bench, 4)
	assert.Equal(t, 0, Preview(s))
	for _, p := range next.Players {
		assert.Zero(t, p.GamesPlayed)
	}
}

func TestGenerateRoundZeroCourts(t *testing.T) {
	s := sessionWith(sameRoster(4, "Ms"), 0)
	r := lastRound(t, GenerateRound(s))
	assert.Empty(t, r.Matches)
	assert.Len(t, r.Bench, 4)
}

func TestGenerateRoundDoesNotMutateInput(t *testing.T) {
	s := sessionWith(roster("Ms", "Fs", "Mb", "Fb", "Ma", "Fa", "Ms", "Ms", "Fs"), 2)
	s = GenerateRound(s)
	before := deepCopy(t, s)

	a := GenerateRound(s)
	b := GenerateRound(s)
	if diff := cmp.Diff(before, s); diff != "" {
		t.Errorf("input changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two runs differ (-first +second):\n%s", diff)
	}
}

func TestGenerateRoundCountersAndHistory(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	codes := []string{"Mb", "Ms", "Ma", "Fb", "Fs", "Fa"}
	picked := make([]string, 14)
	for i := range picked {
		picked[i] = codes[r.Intn(len(codes))]
	}
	s := sessionWith(roster(picked...), 3)
	s.Settings.AllowSoftOverride = true

	for round := 1; round <= 8; round++ {
		next := GenerateRound(s)
		rd := lastRound(t, next)
		require.Len(t, next.Rounds, len(s.Rounds)+1)
		assert.Equal(t, round, rd.Index)

		played := map[string]bool{}
		for i, m := range rd.Matches {
			assert.Equal(t, i+1, m.Court)
			for _, id := range m.Players() {
				assert.False(t, played[id], "player %s twice in round %d", id, round)
				played[id] = true
			}
		}
		assert.Equal(t, len(s.Players), len(played)+len(rd.Bench))

		before := s.PlayersByID()
		for _, p := range next.Players {
			old := before[p.ID]
			if played[p.ID] {
				assert.Equal(t, old.GamesPlayed+1, p.GamesPlayed)
				assert.Equal(t, round, p.LastPlayedAt)
			} else {
				assert.Equal(t, old, p)
			}
		}

		wantT, wantO := s.TeammatePairs.Clone(), s.OpponentPairs.Clone()
		for _, m := range rd.Matches {
			record(Pairing{PairA: m.PairA, PairB: m.PairB}, wantT, wantO)
		}
		assert.Equal(t, wantT, next.TeammatePairs)
		assert.Equal(t, wantO, next.OpponentPairs)

		s = next
	}
}

func TestGenerateRoundCompositionInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	codes := []string{"Mb", "Ms", "Ma", "Fb", "Fs", "Fa"}
	for trial := 0; trial < 20; trial++ {
		picked := make([]string, 6+r.Intn(14))
		for i := range picked {
			picked[i] = codes[r.Intn(len(codes))]
		}
		s := sessionWith(roster(picked...), 1+r.Intn(4))
		s.Settings.AllowSoftOverride = r.Intn(2) == 0
		for i := 0; i < 5; i++ {
			s = GenerateRound(s)
			byID := s.PlayersByID()
			for _, m := range lastRound(t, s).Matches {
				players := make([]Player, 0, 4)
				for _, id := range m.Players() {
					players = append(players, byID[id])
				}
				assert.True(t, LevelGroupValid(players), "level mix in %+v", m)
				assert.True(t, GenderGroupValid(players), "gender mix in %+v", m)
			}
		}
	}
}

func TestFairnessOrder(t *testing.T) {
	players := []Player{
		{ID: "1", GamesPlayed: 2, LastPlayedAt: 3},
		{ID: "2", GamesPlayed: 1, LastPlayedAt: 3},
		{ID: "3", GamesPlayed: 1, LastPlayedAt: 1},
		{ID: "4", GamesPlayed: 0},
		{ID: "5", GamesPlayed: 1, LastPlayedAt: 1},
	}
	assert.Equal(t, []string{"4", "3", "5", "2", "1"}, FairnessOrder(players))
}
