package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrEmptyName       = errors.New("player name is empty")
	ErrInvalidGender   = errors.New("invalid gender")
	ErrInvalidLevel    = errors.New("invalid level")
	ErrInvalidSettings = errors.New("invalid settings")
)

type PlayerInput struct {
	Name    string
	Gender  Gender
	Level   Level
	PartyID string
}

// PlayerPatch changes only the non-nil fields.
type PlayerPatch struct {
	Gender  *Gender
	Level   *Level
	PartyID *string
	Arrived *bool
}

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "м", "муж":
		return Male, nil
	case "f", "female", "ж", "жен":
		return Female, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "beginner":
		return Beginner, nil
	case "s", "semi":
		return Semi, nil
	case "a", "adv", "advance", "advanced":
		return Advance, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

func (g Gender) Valid() bool { return g == Male || g == Female }

func (l Level) Valid() bool { return l == Beginner || l == Semi || l == Advance }

func cloneSession(s Session) Session {
	out := s
	out.Players = append([]Player{}, s.Players...)
	out.Rounds = append([]Round{}, s.Rounds...)
	out.TeammatePairs = s.TeammatePairs.Clone()
	out.OpponentPairs = s.OpponentPairs.Clone()
	return out
}

// Normalize fills nil collections and moves NextID past every numeric id in
// the roster, so sessions saved without nextId keep ids unique.
func Normalize(s Session) Session {
	out := cloneSession(s)
	if out.NextID < 1 {
		out.NextID = 1
	}
	for _, p := range out.Players {
		if n, err := strconv.Atoi(p.ID); err == nil && n >= out.NextID {
			out.NextID = n + 1
		}
	}
	return out
}

func newPlayer(s *Session, in PlayerInput) (Player, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Player{}, ErrEmptyName
	}
	if in.Gender == "" {
		in.Gender = Male
	}
	if in.Level == "" {
		in.Level = Semi
	}
	if !in.Gender.Valid() {
		return Player{}, fmt.Errorf("%w: %q", ErrInvalidGender, in.Gender)
	}
	if !in.Level.Valid() {
		return Player{}, fmt.Errorf("%w: %q", ErrInvalidLevel, in.Level)
	}
	if s.NextID < 1 {
		s.NextID = 1
	}
	p := Player{
		ID:      strconv.Itoa(s.NextID),
		Name:    name,
		Gender:  in.Gender,
		Level:   in.Level,
		PartyID: strings.TrimSpace(in.PartyID),
	}
	s.NextID++
	return p, nil
}

// AddPlayer appends a new player with fresh counters. Gender and level
// default to male / semi.
func AddPlayer(s Session, in PlayerInput) (Session, Player, error) {
	out := cloneSession(s)
	p, err := newPlayer(&out, in)
	if err != nil {
		return s, Player{}, err
	}
	out.Players = append(out.Players, p)
	return out, p, nil
}

// AddPlayers adds all inputs or none of them.
func AddPlayers(s Session, in []PlayerInput) (Session, []Player, error) {
	out := cloneSession(s)
	added := make([]Player, 0, len(in))
	for _, item := range in {
		p, err := newPlayer(&out, item)
		if err != nil {
			return s, nil, fmt.Errorf("add %q: %w", item.Name, err)
		}
		added = append(added, p)
	}
	out.Players = append(out.Players, added...)
	return out, added, nil
}

// RemovePlayer drops the player and every history entry mentioning it.
// Past rounds are left as they were.
func RemovePlayer(s Session, id string) (Session, error) {
	idx := -1
	for i, p := range s.Players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	out := cloneSession(s)
	out.Players = append(out.Players[:idx], out.Players[idx+1:]...)
	out.TeammatePairs = s.TeammatePairs.Purge(id)
	out.OpponentPairs = s.OpponentPairs.Purge(id)
	return out, nil
}

func UpdatePlayer(s Session, id string, patch PlayerPatch) (Session, error) {
	out := cloneSession(s)
	for i := range out.Players {
		p := &out.Players[i]
		if p.ID != id {
			continue
		}
		if patch.Gender != nil {
			if !patch.Gender.Valid() {
				return s, fmt.Errorf("%w: %q", ErrInvalidGender, *patch.Gender)
			}
			p.Gender = *patch.Gender
		}
		if patch.Level != nil {
			if !patch.Level.Valid() {
				return s, fmt.Errorf("%w: %q", ErrInvalidLevel, *patch.Level)
			}
			p.Level = *patch.Level
		}
		if patch.PartyID != nil {
			p.PartyID = strings.TrimSpace(*patch.PartyID)
		}
		if patch.Arrived != nil {
			p.Arrived = *patch.Arrived
		}
		return out, nil
	}
	return s, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
}

// SetCourts clamps n to at least one court.
func SetCourts(s Session, n int) Session {
	out := cloneSession(s)
	out.Settings.Courts = max(1, n)
	return out
}

func SetRepeatLimits(s Session, teammate, opponent int) (Session, error) {
	if teammate < 0 || opponent < 0 {
		return s, fmt.Errorf("%w: repeat limits must be non-negative, got %d/%d", ErrInvalidSettings, teammate, opponent)
	}
	out := cloneSession(s)
	out.Settings.RepeatLimit = RepeatLimit{Teammate: teammate, Opponent: opponent}
	return out, nil
}

func SetSoftOverride(s Session, on bool) Session {
	out := cloneSession(s)
	out.Settings.AllowSoftOverride = on
	return out
}

// SoftReset starts a new evening with the same people: rounds and history
// are cleared, counters zeroed, ids and settings kept.
func SoftReset(s Session) Session {
	out := cloneSession(s)
	for i := range out.Players {
		out.Players[i].GamesPlayed = 0
		out.Players[i].LastPlayedAt = 0
	}
	out.Rounds = []Round{}
	out.TeammatePairs = PairCounts{}
	out.OpponentPairs = PairCounts{}
	return out
}

// FullReset forgets everything, including id allocation.
func FullReset() Session { return NewSession() }
