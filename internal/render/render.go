// Package render turns sessions into chat text.
package render

import (
	"fmt"
	"strings"

	"courtshuffle/internal/logic"
	"courtshuffle/internal/messages"

	"github.com/samber/lo"
)

func nameOf(players map[string]logic.Player, id string) string {
	if p, ok := players[id]; ok && p.Name != "" {
		return p.Name
	}
	return "-"
}

// Round prints one round court by court.
func Round(r logic.Round, players map[string]logic.Player) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Раунд %d\n", r.Index))
	for _, m := range r.Matches {
		sb.WriteString(fmt.Sprintf("Корт %d: %s & %s vs %s & %s\n", m.Court,
			nameOf(players, m.PairA[0]), nameOf(players, m.PairA[1]),
			nameOf(players, m.PairB[0]), nameOf(players, m.PairB[1])))
	}
	if len(r.Matches) == 0 {
		sb.WriteString("Ни одного корта.\n")
	}
	if len(r.Bench) > 0 {
		names := lo.Map(r.Bench, func(id string, _ int) string { return nameOf(players, id) })
		sb.WriteString("Отдыхают: " + strings.Join(names, ", ") + "\n")
	}
	if r.SoftOverrideUsed {
		sb.WriteString(messages.SoftOverrideUsed + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// History prints the last n rounds, newest first.
func History(s logic.Session, n int) string {
	if len(s.Rounds) == 0 {
		return messages.NoRounds
	}
	players := s.PlayersByID()
	rounds := lo.Reverse(append([]logic.Round{}, s.Rounds...))
	if n > 0 && n < len(rounds) {
		rounds = rounds[:n]
	}
	parts := lo.Map(rounds, func(r logic.Round, _ int) string { return Round(r, players) })
	return strings.Join(parts, "\n\n")
}

// Players prints the roster with settings on top.
func Players(s logic.Session) string {
	if len(s.Players) == 0 {
		return messages.NoPlayers
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Игроки (%d), кортов: %d, лимиты: партнёр %d / соперник %d",
		len(s.Players), s.Settings.Courts, s.Settings.RepeatLimit.Teammate, s.Settings.RepeatLimit.Opponent))
	if s.Settings.AllowSoftOverride {
		sb.WriteString(", override вкл.")
	}
	sb.WriteString("\n")
	for _, p := range s.Players {
		sb.WriteString(fmt.Sprintf("%s. %s — %s %s, игр: %d", p.ID, p.Name, p.Gender, p.Level, p.GamesPlayed))
		if p.PartyID != "" {
			sb.WriteString(", группа " + p.PartyID)
		}
		if p.Arrived {
			sb.WriteString(" ✓")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
