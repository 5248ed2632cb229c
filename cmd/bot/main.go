package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courtshuffle/internal/bot"
	"courtshuffle/internal/config"
	"courtshuffle/internal/db"
	"courtshuffle/internal/logging"
	"courtshuffle/internal/scheduler"
	"courtshuffle/internal/version"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	testMode := flag.Bool("test", false, "тестовый режим: раунды дополняются тестовыми игроками, автораунды проверяются каждые 5 секунд")
	tokenFlag := flag.String("token", "", "токен бота (перекрывает TELEGRAM_BOT_TOKEN)")
	showVersion := flag.Bool("version", false, "показать версию и выйти")
	flag.Parse()
	if *showVersion {
		fmt.Println("courtshuffle version", version.Version)
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if *tokenFlag != "" {
		cfg.Token = strings.TrimSpace(*tokenFlag)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *testMode, logger); err != nil {
		logger.Fatal("bot stopped", zap.Error(err))
	}
}

func run(cfg config.Config, testMode bool, logger *zap.Logger) error {
	if cfg.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не задан")
	}
	logger.Info("startup", zap.String("version", version.Version), zap.Int("pid", os.Getpid()))

	st, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.EnsureSettings(cfg.DailyResetTime); err != nil {
		return err
	}
	var jm string
	_ = st.DB.Get(&jm, "PRAGMA journal_mode;")
	daily, _ := st.GetDailyTime()
	chats, _ := st.ChatIDs()
	logger.Info("database ready",
		zap.String("path", cfg.DatabasePath),
		zap.String("journal", jm),
		zap.String("daily_reset", daily),
		zap.Int("chats", len(chats)))

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = false
	logger.Info("authorized", zap.String("username", api.Self.UserName))

	b := bot.New(api, st, logger.Named("bot"))
	b.Defaults.Courts = cfg.DefaultCourts
	b.TestMode = testMode

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sch := scheduler.New(st, logger.Named("scheduler"))
	sch.OnDailyReset = func(ids []int64, date string) { b.DailyReset(ctx, ids, date) }
	sch.OnRoundsDue = func(ids []int64) { b.AutoRounds(ctx, ids) }
	if testMode {
		sch.DisableDaily = true
		sch.RoundInterval = 5 * time.Second
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sch.Start(ctx)
		<-ctx.Done()
		return nil
	})
	g.Go(func() error { return b.Start(ctx) })
	err = g.Wait()
	logger.Info("shutdown")
	return err
}
