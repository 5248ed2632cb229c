package logic

import (
	"sort"
	"strings"
)

type Gender string

const (
	Male   Gender = "M"
	Female Gender = "F"
)

type Level string

const (
	Beginner Level = "beginner"
	Semi     Level = "semi"
	Advance  Level = "advance"
)

type Player struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Gender       Gender `json:"gender" yaml:"gender"`
	Level        Level  `json:"level" yaml:"level"`
	GamesPlayed  int    `json:"gamesPlayed" yaml:"gamesPlayed"`
	LastPlayedAt int    `json:"lastPlayedAt" yaml:"lastPlayedAt"`
	// PartyID is stored and shown but the search does not enforce it.
	PartyID string `json:"partyId,omitempty" yaml:"partyId,omitempty"`
	Arrived bool   `json:"arrived,omitempty" yaml:"arrived,omitempty"`
}

// Pair is an unordered pair of player ids.
type Pair [2]string

type Match struct {
	Court int  `json:"court" yaml:"court"`
	PairA Pair `json:"pairA" yaml:"pairA"`
	PairB Pair `json:"pairB" yaml:"pairB"`
}

// Players returns the four ids of the match.
func (m Match) Players() []string {
	return []string{m.PairA[0], m.PairA[1], m.PairB[0], m.PairB[1]}
}

type Round struct {
	ID               string   `json:"id" yaml:"id"`
	Index            int      `json:"index" yaml:"index"`
	Matches          []Match  `json:"matches" yaml:"matches"`
	Bench            []string `json:"bench" yaml:"bench"`
	SoftOverrideUsed bool     `json:"softOverrideUsed,omitempty" yaml:"softOverrideUsed,omitempty"`
}

type RepeatLimit struct {
	Teammate int `json:"teammate" yaml:"teammate"`
	Opponent int `json:"opponent" yaml:"opponent"`
}

// Relaxed returns both limits raised by one.
func (l RepeatLimit) Relaxed() RepeatLimit {
	return RepeatLimit{Teammate: l.Teammate + 1, Opponent: l.Opponent + 1}
}

type Settings struct {
	Courts            int         `json:"courts" yaml:"courts"`
	RepeatLimit       RepeatLimit `json:"repeatLimit" yaml:"repeatLimit"`
	AllowSoftOverride bool        `json:"allowSoftOverride" yaml:"allowSoftOverride"`
}

func DefaultSettings() Settings {
	return Settings{
		Courts:      2,
		RepeatLimit: RepeatLimit{Teammate: 2, Opponent: 2},
	}
}

// Session is the whole state of one club evening. Every operation in this
// package takes a Session by value and returns a new one.
type Session struct {
	Players       []Player   `json:"players" yaml:"players"`
	Rounds        []Round    `json:"rounds" yaml:"rounds"`
	TeammatePairs PairCounts `json:"teammatePairs" yaml:"teammatePairs"`
	OpponentPairs PairCounts `json:"opponentPairs" yaml:"opponentPairs"`
	Settings      Settings   `json:"settings" yaml:"settings"`
	NextID        int        `json:"nextId,omitempty" yaml:"nextId,omitempty"`
}

func NewSession() Session {
	return Session{
		Players:       []Player{},
		Rounds:        []Round{},
		TeammatePairs: PairCounts{},
		OpponentPairs: PairCounts{},
		Settings:      DefaultSettings(),
		NextID:        1,
	}
}

// PlayersByID indexes the roster.
func (s Session) PlayersByID() map[string]Player {
	m := make(map[string]Player, len(s.Players))
	for _, p := range s.Players {
		m[p.ID] = p
	}
	return m
}

// LastRound returns the most recent round, if any.
func (s Session) LastRound() (Round, bool) {
	if len(s.Rounds) == 0 {
		return Round{}, false
	}
	return s.Rounds[len(s.Rounds)-1], true
}

// PairKey is the canonical key of an unordered pair: ids sorted and joined by "|".
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// SplitPairKey is the inverse of PairKey.
func SplitPairKey(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, "|")
	return a, b, ok
}

// PairCounts maps PairKey to the number of rounds the pair met.
type PairCounts map[string]int

func (c PairCounts) Get(a, b string) int { return c[PairKey(a, b)] }

func (c PairCounts) Inc(a, b string) { c[PairKey(a, b)]++ }

func (c PairCounts) Clone() PairCounts {
	out := make(PairCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Purge returns a copy without any entry mentioning id.
func (c PairCounts) Purge(id string) PairCounts {
	out := make(PairCounts, len(c))
	for k, v := range c {
		a, b, _ := SplitPairKey(k)
		if a == id || b == id {
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (c PairCounts) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
