package scheduler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"courtshuffle/internal/db"

	"go.uber.org/zap"
)

const defaultDaily = "05:00"

type Scheduler struct {
	Store        *db.Store
	Log          *zap.Logger
	OnDailyReset func(ids []int64, date string)
	OnRoundsDue  func(ids []int64)
	// Config
	RoundInterval time.Duration
	DisableDaily  bool
	Now           func() time.Time
}

func New(store *db.Store, log *zap.Logger) *Scheduler {
	return &Scheduler{Store: store, Log: log, RoundInterval: 30 * time.Second, Now: time.Now}
}

// Start runs the daily reset loop and the automatic round poller.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.DisableDaily {
		go s.loopDaily(ctx)
	}
	go s.loopRounds(ctx)
}

func parseDaily(t string) (int, int) {
	hh, mm := 5, 0
	parts := strings.Split(t, ":")
	if len(parts) != 2 {
		return hh, mm
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return hh, mm
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return hh, mm
	}
	return h, m
}

func nextDaily(hh, mm int, from time.Time) time.Time {
	n := time.Date(from.Year(), from.Month(), from.Day(), hh, mm, 0, 0, time.UTC)
	if !n.After(from) {
		n = n.Add(24 * time.Hour)
	}
	return n
}

func (s *Scheduler) dailyTime() string {
	daily, err := s.Store.GetDailyTime()
	if err != nil {
		s.Log.Warn("read daily time", zap.Error(err))
		return defaultDaily
	}
	return daily
}

func (s *Scheduler) nextReset() time.Time {
	hh, mm := parseDaily(s.dailyTime())
	return nextDaily(hh, mm, s.Now().UTC())
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (s *Scheduler) loopDaily(ctx context.Context) {
	// The setting is re-read every minute so /resettime applies without a restart.
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	next := s.nextReset()
	timer := time.NewTimer(time.Until(next))
	defer func() { stopTimer(timer) }()
	s.Log.Info("daily reset scheduled", zap.Time("at", next))

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.RunDailyReset(s.Now().UTC())
			next = s.nextReset()
			timer = time.NewTimer(time.Until(next))
		case <-ticker.C:
			newNext := s.nextReset()
			if !newNext.Equal(next) {
				next = newNext
				stopTimer(timer)
				timer = time.NewTimer(time.Until(next))
				s.Log.Info("daily reset rescheduled", zap.Time("at", next))
			}
		}
	}
}

// RunDailyReset hands every chat not yet reset on now's date to OnDailyReset.
func (s *Scheduler) RunDailyReset(now time.Time) {
	date := now.UTC().Format("2006-01-02")
	ids, err := s.Store.ChatsToReset(date)
	if err != nil {
		s.Log.Error("list chats to reset", zap.Error(err))
		return
	}
	s.Log.Info("daily reset", zap.String("date", date), zap.Int("chats", len(ids)))
	if len(ids) > 0 && s.OnDailyReset != nil {
		s.OnDailyReset(ids, date)
	}
}

func (s *Scheduler) loopRounds(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.RoundInterval):
			s.RunDueRounds(s.Now())
		}
	}
}

// RunDueRounds hands chats whose automatic round is due to OnRoundsDue.
func (s *Scheduler) RunDueRounds(now time.Time) {
	ids, err := s.Store.DueAutoRounds(now)
	if err != nil {
		s.Log.Error("list due rounds", zap.Error(err))
		return
	}
	if len(ids) > 0 && s.OnRoundsDue != nil {
		s.OnRoundsDue(ids)
	}
}
