package logic

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinations(t *testing.T) {
	var got [][]int
	Combinations(6, 4, func(idx []int) bool {
		got = append(got, append([]int(nil), idx...))
		return true
	})
	require.Len(t, got, 15)
	assert.Equal(t, []int{0, 1, 2, 3}, got[0])
	assert.Equal(t, []int{0, 1, 2, 4}, got[1])
	assert.Equal(t, []int{2, 3, 4, 5}, got[14])

	calls := 0
	Combinations(10, 4, func([]int) bool {
		calls++
		return calls < 3
	})
	assert.Equal(t, 3, calls)

	Combinations(3, 4, func([]int) bool {
		t.Fatal("no subsets of size 4 in 3 elements")
		return false
	})
}

func TestGroupRules(t *testing.T) {
	cases := []struct {
		codes  []string
		level  bool
		gender bool
	}{
		{[]string{"Ms", "Ms", "Ma", "Ma"}, true, true},
		{[]string{"Mb", "Ms", "Ma", "Ma"}, false, true},
		{[]string{"Mb", "Mb", "Ms", "Ma"}, true, true},
		{[]string{"Mb", "Mb", "Mb", "Ma"}, false, true},
		{[]string{"Mb", "Mb", "Mb", "Mb"}, true, true},
		{[]string{"Fs", "Ms", "Ms", "Ms"}, true, false},
		{[]string{"Fs", "Fs", "Ms", "Ms"}, true, true},
		{[]string{"Fs", "Fs", "Fs", "Ms"}, true, false},
		{[]string{"Fs", "Fs", "Fs", "Fs"}, true, true},
	}
	for _, tc := range cases {
		players := roster(tc.codes...)
		assert.Equal(t, tc.level, LevelGroupValid(players), "level %v", tc.codes)
		assert.Equal(t, tc.gender, GenderGroupValid(players), "gender %v", tc.codes)
	}
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

func sameRoster(n int, code string) []Player {
	codes := make([]string, n)
	for i := range codes {
		codes[i] = code
	}
	return roster(codes...)
}

func TestSelectGroupTakesFirstPerfectGroup(t *testing.T) {
	players := sameRoster(20, "Ms")
	c, soft, ok := SelectGroup(ids(20), index(players), PairCounts{}, PairCounts{}, DefaultSettings())
	require.True(t, ok)
	assert.False(t, soft)
	assert.Equal(t, [4]string{"1", "2", "3", "4"}, c.IDs)
	assert.Equal(t, 0, c.Penalty)
}

func TestSelectGroupPoolCap(t *testing.T) {
	// only players 17..20 can form a group, but they sit outside the cap
	players := roster(append(
		[]string{"Fb", "Mb", "Mb", "Mb", "Fb", "Mb", "Mb", "Mb", "Fb", "Mb", "Mb", "Mb", "Fb", "Mb", "Mb", "Mb"},
		"Ms", "Ms", "Ms", "Ms")...)
	teammates := PairCounts{}
	for _, a := range ids(16) {
		for _, b := range ids(16) {
			if a < b {
				teammates[PairKey(a, b)] = 5
			}
		}
	}
	_, _, ok := SelectGroup(ids(20), index(players), teammates, PairCounts{}, DefaultSettings())
	assert.False(t, ok)

	c, _, ok := SelectGroup(ids(20)[16:], index(players), teammates, PairCounts{}, DefaultSettings())
	require.True(t, ok)
	assert.Equal(t, [4]string{"17", "18", "19", "20"}, c.IDs)
}

func TestSelectGroupPrefersLowestPenalty(t *testing.T) {
	players := sameRoster(5, "Ms")
	// every split of 1..4 repeats twice, a group with 5 repeats once
	teammates := PairCounts{"1|2": 1, "3|4": 1, "1|3": 1, "2|4": 1, "1|4": 1, "2|3": 1}
	c, _, ok := SelectGroup(ids(5), index(players), teammates, PairCounts{}, DefaultSettings())
	require.True(t, ok)
	assert.Contains(t, c.IDs[:], "5")
	assert.Equal(t, 1, c.Penalty)
}

func TestSelectGroupSoftOverride(t *testing.T) {
	players := sameRoster(4, "Ms")
	teammates := PairCounts{"1|2": 2, "1|3": 2, "1|4": 2}
	settings := DefaultSettings()

	_, _, ok := SelectGroup(ids(4), index(players), teammates, PairCounts{}, settings)
	assert.False(t, ok)

	settings.AllowSoftOverride = true
	c, soft, ok := SelectGroup(ids(4), index(players), teammates, PairCounts{}, settings)
	require.True(t, ok)
	assert.True(t, soft)
	assert.Equal(t, 2, c.Penalty)
}

func TestSelectGroupRejectsBadCompositions(t *testing.T) {
	_, _, ok := SelectGroup(ids(4), index(roster("Mb", "Ms", "Ms", "Ms")), PairCounts{}, PairCounts{}, DefaultSettings())
	assert.False(t, ok)
	_, _, ok = SelectGroup(ids(4), index(roster("Fs", "Fs", "Fs", "Ms")), PairCounts{}, PairCounts{}, DefaultSettings())
	assert.False(t, ok)
	_, _, ok = SelectGroup(ids(3), index(roster("Ms", "Ms", "Ms")), PairCounts{}, PairCounts{}, DefaultSettings())
	assert.False(t, ok)
}
