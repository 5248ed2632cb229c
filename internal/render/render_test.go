package render

import (
	"strconv"
	"testing"

	"courtshuffle/internal/logic"
	"courtshuffle/internal/messages"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	players := map[string]logic.Player{"1": {Name: "Ann"}, "2": {Name: "Bob"}, "3": {Name: "Cat"}, "4": {Name: "Dan"}, "5": {Name: "Eve"}}
	r := logic.Round{
		Index:            3,
		Matches:          []logic.Match{{Court: 1, PairA: logic.Pair{"1", "2"}, PairB: logic.Pair{"3", "4"}}},
		Bench:            []string{"5", "9"},
		SoftOverrideUsed: true,
	}
	want := "Раунд 3\nКорт 1: Ann & Bob vs Cat & Dan\nОтдыхают: Eve, -\n" + messages.SoftOverrideUsed
	assert.Equal(t, want, Round(r, players))

	empty := logic.Round{Index: 1, Bench: []string{"1"}}
	assert.Equal(t, "Раунд 1\nНи одного корта.\nОтдыхают: Ann", Round(empty, players))
}

func TestHistoryNewestFirst(t *testing.T) {
	s := logic.NewSession()
	assert.Equal(t, messages.NoRounds, History(s, 3))

	for i := 1; i <= 4; i++ {
		s.Rounds = append(s.Rounds, logic.Round{ID: strconv.Itoa(i), Index: i, Matches: []logic.Match{}, Bench: []string{}})
	}
	got := History(s, 2)
	assert.Equal(t, "Раунд 4\nНи одного корта.\n\nРаунд 3\nНи одного корта.", got)
	assert.Equal(t, 1, s.Rounds[0].Index)
}

func TestPlayers(t *testing.T) {
	s := logic.NewSession()
	assert.Equal(t, messages.NoPlayers, Players(s))

	s.Players = []logic.Player{{ID: "1", Name: "Ann", Gender: logic.Female, Level: logic.Beginner, PartyID: "red", Arrived: true}}
	out := Players(s)
	assert.Contains(t, out, "Игроки (1), кортов: 2")
	assert.Contains(t, out, "1. Ann — F beginner, игр: 0, группа red ✓")
}
