package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"courtshuffle/internal/logic"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSessionRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertChat(100, "club", logic.DefaultSettings()))

	sess, err := st.LoadSession(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, sess.Players)
	assert.Equal(t, logic.DefaultSettings(), sess.Settings)
	assert.Equal(t, 1, sess.NextID)

	sess, _, err = logic.AddPlayers(sess, []logic.PlayerInput{
		{Name: "Ann", Gender: logic.Female, Level: logic.Beginner},
		{Name: "Bob", Gender: logic.Male, Level: logic.Semi},
		{Name: "Cat", Gender: logic.Female, Level: logic.Advance, PartyID: "x"},
		{Name: "Dan", Gender: logic.Male, Level: logic.Beginner},
		{Name: "Eve", Gender: logic.Female, Level: logic.Semi},
	})
	require.NoError(t, err)
	sess = logic.SetSoftOverride(sess, true)
	sess = logic.GenerateRound(logic.GenerateRound(sess))
	require.Len(t, sess.Rounds, 2)

	require.NoError(t, st.SaveSession(ctx, 100, sess))
	loaded, err := st.LoadSession(ctx, 100)
	require.NoError(t, err)
	if diff := cmp.Diff(sess, loaded); diff != "" {
		t.Errorf("session changed after save/load (-saved +loaded):\n%s", diff)
	}

	// a second save replaces rows instead of appending
	sess, err = logic.RemovePlayer(sess, "2")
	require.NoError(t, err)
	require.NoError(t, st.SaveSession(ctx, 100, sess))
	loaded, err = st.LoadSession(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, loaded.Players, 4)
	for k := range loaded.TeammatePairs {
		a, b, _ := logic.SplitPairKey(k)
		assert.NotEqual(t, "2", a)
		assert.NotEqual(t, "2", b)
	}
}

func TestSessionsAreIsolatedPerChat(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertChat(1, "a", logic.DefaultSettings()))
	require.NoError(t, st.UpsertChat(2, "b", logic.DefaultSettings()))

	sess, _, err := logic.AddPlayer(logic.NewSession(), logic.PlayerInput{Name: "Solo"})
	require.NoError(t, err)
	require.NoError(t, st.SaveSession(ctx, 1, sess))

	other, err := st.LoadSession(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other.Players)

	ids, err := st.ChatIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestUnknownChat(t *testing.T) {
	st := openTestStore(t)
	_, err := st.LoadSession(context.Background(), 7)
	assert.True(t, errors.Is(err, ErrChatNotFound))
	assert.ErrorIs(t, st.SaveSession(context.Background(), 7, logic.NewSession()), ErrChatNotFound)
	assert.ErrorIs(t, st.SetAutoRounds(7, 10, time.Now()), ErrChatNotFound)
}

func TestUpsertChatKeepsSettings(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertChat(5, "old", logic.DefaultSettings()))
	sess, err := st.LoadSession(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, st.SaveSession(ctx, 5, logic.SetCourts(sess, 4)))

	require.NoError(t, st.UpsertChat(5, "new", logic.DefaultSettings()))
	sess, err = st.LoadSession(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, sess.Settings.Courts)
}

func TestAutoRounds(t *testing.T) {
	st := openTestStore(t)
	now := time.Date(2026, 10, 18, 19, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertChat(1, "a", logic.DefaultSettings()))
	require.NoError(t, st.UpsertChat(2, "b", logic.DefaultSettings()))

	require.NoError(t, st.SetAutoRounds(1, 15, now))
	minutes, next, err := st.AutoRounds(1)
	require.NoError(t, err)
	assert.Equal(t, 15, minutes)
	require.True(t, next.Valid)
	assert.True(t, next.Time.Equal(now.Add(15*time.Minute)))

	due, err := st.DueAutoRounds(now.Add(10 * time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = st.DueAutoRounds(now.Add(15 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, due)

	require.NoError(t, st.BumpAutoRound(1, now.Add(15*time.Minute)))
	due, err = st.DueAutoRounds(now.Add(20 * time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, st.SetAutoRounds(1, 0, now))
	due, err = st.DueAutoRounds(now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDailyReset(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.EnsureSettings("05:00"))
	require.NoError(t, st.EnsureSettings("07:00"))
	daily, err := st.GetDailyTime()
	require.NoError(t, err)
	assert.Equal(t, "05:00", daily)
	require.NoError(t, st.SetDailyTime("06:30"))
	daily, err = st.GetDailyTime()
	require.NoError(t, err)
	assert.Equal(t, "06:30", daily)

	require.NoError(t, st.UpsertChat(1, "a", logic.DefaultSettings()))
	require.NoError(t, st.UpsertChat(2, "b", logic.DefaultSettings()))
	require.NoError(t, st.MarkReset(1, "2026-10-18"))

	ids, err := st.ChatsToReset("2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	ids, err = st.ChatsToReset("2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestIsLockedError(t *testing.T) {
	assert.False(t, isLockedError(nil))
	assert.True(t, isLockedError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isLockedError(errors.New("no such table")))

	calls := 0
	err := retry("op", func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
