package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courtshuffle/internal/logic"

	"github.com/jmoiron/sqlx"
)

const (
	kindTeammate = "teammate"
	kindOpponent = "opponent"
)

type chatRow struct {
	ChatID           int64          `db:"chat_id"`
	Title            sql.NullString `db:"title"`
	Courts           int            `db:"courts"`
	TeammateLimit    int            `db:"teammate_limit"`
	OpponentLimit    int            `db:"opponent_limit"`
	SoftOverride     bool           `db:"soft_override"`
	NextPlayerID     int            `db:"next_player_id"`
	AutoRoundMinutes int            `db:"auto_round_minutes"`
	NextAutoRoundAt  sql.NullTime   `db:"next_auto_round_at"`
}

type playerRow struct {
	ChatID          int64  `db:"chat_id"`
	ID              string `db:"id"`
	Position        int    `db:"position"`
	Name            string `db:"name"`
	Gender          string `db:"gender"`
	Level           string `db:"level"`
	GamesPlayed     int    `db:"games_played"`
	LastPlayedRound int    `db:"last_played_round"`
	PartyID         string `db:"party_id"`
	Arrived         bool   `db:"arrived"`
}

type pairRow struct {
	ChatID  int64  `db:"chat_id"`
	Kind    string `db:"kind"`
	PairKey string `db:"pair_key"`
	Count   int    `db:"count"`
}

type roundRow struct {
	ChatID       int64  `db:"chat_id"`
	Idx          int    `db:"idx"`
	SoftOverride bool   `db:"soft_override"`
	Bench        string `db:"bench"`
}

type matchRow struct {
	ChatID   int64  `db:"chat_id"`
	RoundIdx int    `db:"round_idx"`
	Court    int    `db:"court"`
	A1       string `db:"a1"`
	A2       string `db:"a2"`
	B1       string `db:"b1"`
	B2       string `db:"b2"`
}

// UpsertChat registers a chat with default settings, or refreshes its title.
func (s *Store) UpsertChat(chatID int64, title string, defaults logic.Settings) error {
	_, err := s.DB.Exec(`INSERT INTO chats (chat_id, title, courts, teammate_limit, opponent_limit, soft_override)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET title=excluded.title`,
		chatID, title, defaults.Courts, defaults.RepeatLimit.Teammate, defaults.RepeatLimit.Opponent, defaults.AllowSoftOverride)
	return err
}

func (s *Store) ChatIDs() ([]int64, error) {
	var ids []int64
	err := s.DB.Select(&ids, "SELECT chat_id FROM chats ORDER BY chat_id")
	return ids, err
}

// LoadSession assembles the chat's session from its rows.
func (s *Store) LoadSession(ctx context.Context, chatID int64) (logic.Session, error) {
	var chat chatRow
	err := s.DB.GetContext(ctx, &chat, `SELECT chat_id, title, courts, teammate_limit, opponent_limit, soft_override,
		next_player_id, auto_round_minutes, next_auto_round_at FROM chats WHERE chat_id=?`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return logic.Session{}, fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
	}
	if err != nil {
		return logic.Session{}, fmt.Errorf("load chat %d: %w", chatID, err)
	}

	sess := logic.NewSession()
	sess.NextID = chat.NextPlayerID
	sess.Settings = logic.Settings{
		Courts:            chat.Courts,
		RepeatLimit:       logic.RepeatLimit{Teammate: chat.TeammateLimit, Opponent: chat.OpponentLimit},
		AllowSoftOverride: chat.SoftOverride,
	}

	var players []playerRow
	if err := s.DB.SelectContext(ctx, &players, `SELECT chat_id, id, position, name, gender, level, games_played,
		last_played_round, party_id, arrived FROM players WHERE chat_id=? ORDER BY position`, chatID); err != nil {
		return logic.Session{}, fmt.Errorf("load players chat=%d: %w", chatID, err)
	}
	for _, p := range players {
		sess.Players = append(sess.Players, logic.Player{
			ID:           p.ID,
			Name:         p.Name,
			Gender:       logic.Gender(p.Gender),
			Level:        logic.Level(p.Level),
			GamesPlayed:  p.GamesPlayed,
			LastPlayedAt: p.LastPlayedRound,
			PartyID:      p.PartyID,
			Arrived:      p.Arrived,
		})
	}

	var pairs []pairRow
	if err := s.DB.SelectContext(ctx, &pairs, "SELECT chat_id, kind, pair_key, count FROM pair_history WHERE chat_id=?", chatID); err != nil {
		return logic.Session{}, fmt.Errorf("load pair history chat=%d: %w", chatID, err)
	}
	for _, p := range pairs {
		switch p.Kind {
		case kindTeammate:
			sess.TeammatePairs[p.PairKey] = p.Count
		case kindOpponent:
			sess.OpponentPairs[p.PairKey] = p.Count
		}
	}

	var rounds []roundRow
	if err := s.DB.SelectContext(ctx, &rounds, "SELECT chat_id, idx, soft_override, bench FROM rounds WHERE chat_id=? ORDER BY idx", chatID); err != nil {
		return logic.Session{}, fmt.Errorf("load rounds chat=%d: %w", chatID, err)
	}
	var matches []matchRow
	if err := s.DB.SelectContext(ctx, &matches, `SELECT chat_id, round_idx, court, a1, a2, b1, b2 FROM matches
		WHERE chat_id=? ORDER BY round_idx, court`, chatID); err != nil {
		return logic.Session{}, fmt.Errorf("load matches chat=%d: %w", chatID, err)
	}
	byRound := make(map[int][]logic.Match, len(rounds))
	for _, m := range matches {
		byRound[m.RoundIdx] = append(byRound[m.RoundIdx], logic.Match{
			Court: m.Court,
			PairA: logic.Pair{m.A1, m.A2},
			PairB: logic.Pair{m.B1, m.B2},
		})
	}
	for _, r := range rounds {
		bench := []string{}
		if err := json.Unmarshal([]byte(r.Bench), &bench); err != nil {
			return logic.Session{}, fmt.Errorf("decode bench chat=%d round=%d: %w", chatID, r.Idx, err)
		}
		ms := byRound[r.Idx]
		if ms == nil {
			ms = []logic.Match{}
		}
		sess.Rounds = append(sess.Rounds, logic.Round{
			ID:               fmt.Sprint(r.Idx),
			Index:            r.Idx,
			Matches:          ms,
			Bench:            bench,
			SoftOverrideUsed: r.SoftOverride,
		})
	}
	return logic.Normalize(sess), nil
}

// SaveSession replaces everything stored for the chat with sess.
func (s *Store) SaveSession(ctx context.Context, chatID int64, sess logic.Session) error {
	return retry(fmt.Sprintf("save session chat=%d", chatID), func() error {
		return s.WithTx(ctx, func(tx *sqlx.Tx) error {
			return saveSession(ctx, tx, chatID, sess)
		})
	})
}

func saveSession(ctx context.Context, tx *sqlx.Tx, chatID int64, sess logic.Session) error {
	res, err := tx.ExecContext(ctx, `UPDATE chats SET courts=?, teammate_limit=?, opponent_limit=?, soft_override=?,
		next_player_id=? WHERE chat_id=?`,
		sess.Settings.Courts, sess.Settings.RepeatLimit.Teammate, sess.Settings.RepeatLimit.Opponent,
		sess.Settings.AllowSoftOverride, sess.NextID, chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
	}
	for _, table := range []string{"matches", "rounds", "pair_history", "players"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE chat_id=?", chatID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	players := make([]playerRow, 0, len(sess.Players))
	for i, p := range sess.Players {
		players = append(players, playerRow{
			ChatID:          chatID,
			ID:              p.ID,
			Position:        i,
			Name:            p.Name,
			Gender:          string(p.Gender),
			Level:           string(p.Level),
			GamesPlayed:     p.GamesPlayed,
			LastPlayedRound: p.LastPlayedAt,
			PartyID:         p.PartyID,
			Arrived:         p.Arrived,
		})
	}
	if err := insertRows(ctx, tx, `INSERT INTO players (chat_id, id, position, name, gender, level, games_played,
		last_played_round, party_id, arrived) VALUES (:chat_id, :id, :position, :name, :gender, :level, :games_played,
		:last_played_round, :party_id, :arrived)`, players); err != nil {
		return fmt.Errorf("insert players: %w", err)
	}

	pairs := make([]pairRow, 0, len(sess.TeammatePairs)+len(sess.OpponentPairs))
	for _, k := range sess.TeammatePairs.Keys() {
		pairs = append(pairs, pairRow{ChatID: chatID, Kind: kindTeammate, PairKey: k, Count: sess.TeammatePairs[k]})
	}
	for _, k := range sess.OpponentPairs.Keys() {
		pairs = append(pairs, pairRow{ChatID: chatID, Kind: kindOpponent, PairKey: k, Count: sess.OpponentPairs[k]})
	}
	if err := insertRows(ctx, tx, `INSERT INTO pair_history (chat_id, kind, pair_key, count)
		VALUES (:chat_id, :kind, :pair_key, :count)`, pairs); err != nil {
		return fmt.Errorf("insert pair history: %w", err)
	}

	rounds := make([]roundRow, 0, len(sess.Rounds))
	var matches []matchRow
	for _, r := range sess.Rounds {
		bench, err := json.Marshal(r.Bench)
		if err != nil {
			return err
		}
		if r.Bench == nil {
			bench = []byte("[]")
		}
		rounds = append(rounds, roundRow{ChatID: chatID, Idx: r.Index, SoftOverride: r.SoftOverrideUsed, Bench: string(bench)})
		for _, m := range r.Matches {
			matches = append(matches, matchRow{
				ChatID: chatID, RoundIdx: r.Index, Court: m.Court,
				A1: m.PairA[0], A2: m.PairA[1], B1: m.PairB[0], B2: m.PairB[1],
			})
		}
	}
	if err := insertRows(ctx, tx, `INSERT INTO rounds (chat_id, idx, soft_override, bench)
		VALUES (:chat_id, :idx, :soft_override, :bench)`, rounds); err != nil {
		return fmt.Errorf("insert rounds: %w", err)
	}
	if err := insertRows(ctx, tx, `INSERT INTO matches (chat_id, round_idx, court, a1, a2, b1, b2)
		VALUES (:chat_id, :round_idx, :court, :a1, :a2, :b1, :b2)`, matches); err != nil {
		return fmt.Errorf("insert matches: %w", err)
	}
	return nil
}

// insertRows inserts one row at a time; a single multi-row VALUES list
// would run into SQLite's bound parameter limit on long sessions.
func insertRows[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// SetAutoRounds turns periodic rounds on (minutes > 0) or off for a chat.
func (s *Store) SetAutoRounds(chatID int64, minutes int, now time.Time) error {
	var next sql.NullTime
	if minutes > 0 {
		next = sql.NullTime{Time: dbTime(now.Add(time.Duration(minutes) * time.Minute)), Valid: true}
	} else {
		minutes = 0
	}
	res, err := s.DB.Exec("UPDATE chats SET auto_round_minutes=?, next_auto_round_at=? WHERE chat_id=?", minutes, next, chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
	}
	return nil
}

// AutoRounds returns the configured interval and the next planned round, if any.
func (s *Store) AutoRounds(chatID int64) (minutes int, next sql.NullTime, err error) {
	err = s.DB.QueryRowx("SELECT auto_round_minutes, next_auto_round_at FROM chats WHERE chat_id=?", chatID).Scan(&minutes, &next)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
	}
	return
}

// DueAutoRounds lists chats whose next automatic round is at or before now.
func (s *Store) DueAutoRounds(now time.Time) ([]int64, error) {
	var ids []int64
	err := s.DB.Select(&ids, `SELECT chat_id FROM chats WHERE auto_round_minutes > 0
		AND next_auto_round_at IS NOT NULL AND next_auto_round_at <= ? ORDER BY chat_id`, dbTime(now))
	return ids, err
}

// BumpAutoRound moves the chat's next automatic round one interval past now.
func (s *Store) BumpAutoRound(chatID int64, now time.Time) error {
	minutes, _, err := s.AutoRounds(chatID)
	if err != nil {
		return err
	}
	if minutes <= 0 {
		return nil
	}
	next := dbTime(now.Add(time.Duration(minutes) * time.Minute))
	_, err = s.DB.Exec("UPDATE chats SET next_auto_round_at=? WHERE chat_id=?", next, chatID)
	return err
}

// ChatsToReset lists chats not yet reset on date (YYYY-MM-DD).
func (s *Store) ChatsToReset(date string) ([]int64, error) {
	var ids []int64
	err := s.DB.Select(&ids, "SELECT chat_id FROM chats WHERE last_reset_date IS NULL OR last_reset_date <> ? ORDER BY chat_id", date)
	return ids, err
}

func (s *Store) MarkReset(chatID int64, date string) error {
	_, err := s.DB.Exec("UPDATE chats SET last_reset_date=? WHERE chat_id=?", date, chatID)
	return err
}
