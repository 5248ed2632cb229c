package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"courtshuffle/internal/db"
	"courtshuffle/internal/logic"
	"courtshuffle/internal/messages"
	"courtshuffle/internal/render"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type Bot struct {
	API   API
	Store *db.Store
	Log   *zap.Logger
	// Defaults applies to chats seen for the first time.
	Defaults logic.Settings
	TestMode bool
	Now      func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(api API, store *db.Store, log *zap.Logger) *Bot {
	return &Bot{
		API:      api,
		Store:    store,
		Log:      log,
		Defaults: logic.DefaultSettings(),
		Now:      time.Now,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (b *Bot) Start(ctx context.Context) error {
	updates := b.API.GetUpdatesChan(tgbotapi.UpdateConfig{Timeout: 30})
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return errors.New("telegram updates channel closed")
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.MyChatMember != nil:
		b.onMyChatMember(*upd.MyChatMember)
	case upd.CallbackQuery != nil:
		b.onCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.IsCommand():
		b.onCommand(ctx, upd.Message)
	}
}

func (b *Bot) onMyChatMember(m tgbotapi.ChatMemberUpdated) {
	status := m.NewChatMember.Status
	if status == "member" || status == "administrator" || status == "creator" {
		b.onAddedToGroup(m.Chat.ID, m.Chat.Title)
	}
}

func (b *Bot) onAddedToGroup(chatID int64, title string) {
	if err := b.Store.UpsertChat(chatID, title, b.Defaults); err != nil {
		b.Log.Error("register chat", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	b.Log.Info("added to chat", zap.Int64("chat_id", chatID), zap.String("title", title))
	b.send(chatID, messages.IntroMessage)
}

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	var after int
	if _, err := fmt.Sscanf(cb.Data, "round:%d", &after); err != nil {
		return
	}
	if !b.playRound(ctx, cb.Message.Chat.ID, after) {
		_, _ = b.API.Request(tgbotapi.NewCallback(cb.ID, messages.StaleButton))
		return
	}
	_, _ = b.API.Request(tgbotapi.NewCallback(cb.ID, ""))
}

func (b *Bot) chatLock(chatID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[chatID] = l
	}
	return l
}

// update runs fn on the chat's stored session and saves the result.
// Commands for one chat never interleave.
func (b *Bot) update(ctx context.Context, chatID int64, fn func(logic.Session) (logic.Session, error)) (logic.Session, error) {
	l := b.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	sess, err := b.Store.LoadSession(ctx, chatID)
	if err != nil {
		return sess, err
	}
	next, err := fn(sess)
	if err != nil {
		return sess, err
	}
	if err := b.Store.SaveSession(ctx, chatID, next); err != nil {
		return sess, err
	}
	return next, nil
}

func (b *Bot) load(ctx context.Context, chatID int64) (logic.Session, error) {
	l := b.chatLock(chatID)
	l.Lock()
	defer l.Unlock()
	return b.Store.LoadSession(ctx, chatID)
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.API.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.Log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func nextRoundKeyboard(after int) tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData(messages.NextRoundButton, fmt.Sprintf("round:%d", after))
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

// PlayRound generates, stores and posts the next round of a chat.
func (b *Bot) PlayRound(ctx context.Context, chatID int64) {
	b.playRound(ctx, chatID, -1)
}

// playRound only proceeds when the chat has exactly after rounds (any count
// when after < 0), so a double tap on an old button does not skip a round.
func (b *Bot) playRound(ctx context.Context, chatID int64, after int) bool {
	tooFew, stale := false, false
	sess, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
		if after >= 0 && len(s.Rounds) != after {
			stale = true
			return s, nil
		}
		if len(s.Players) < 4 && b.TestMode {
			var err error
			if s, err = addTestPlayers(s); err != nil {
				return s, err
			}
		}
		if len(s.Players) < 4 {
			tooFew = true
			return s, nil
		}
		return logic.GenerateRound(s), nil
	})
	if err != nil {
		b.Log.Error("generate round", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, userError(err))
		return true
	}
	if stale {
		return false
	}
	if tooFew {
		b.send(chatID, messages.NotEnoughPlayers)
		return true
	}
	r, _ := sess.LastRound()
	b.Log.Info("round generated",
		zap.Int64("chat_id", chatID),
		zap.Int("round", r.Index),
		zap.Int("matches", len(r.Matches)),
		zap.Int("bench", len(r.Bench)),
		zap.Bool("soft_override", r.SoftOverrideUsed))
	if len(r.Matches) == 0 {
		b.send(chatID, messages.NoValidMatches)
		return true
	}
	msg := tgbotapi.NewMessage(chatID, render.Round(r, sess.PlayersByID()))
	msg.ReplyMarkup = nextRoundKeyboard(r.Index)
	if _, err := b.API.Send(msg); err != nil {
		b.Log.Warn("send round", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return true
}

// DailyReset starts a new evening in every listed chat that played yesterday.
func (b *Bot) DailyReset(ctx context.Context, ids []int64, date string) {
	for _, chatID := range ids {
		hadRounds := false
		_, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
			hadRounds = len(s.Rounds) > 0
			return logic.SoftReset(s), nil
		})
		if err != nil {
			b.Log.Error("daily reset", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}
		if err := b.Store.MarkReset(chatID, date); err != nil {
			b.Log.Warn("mark reset", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		if hadRounds {
			b.send(chatID, messages.DailyReset)
		}
	}
}

// AutoRounds plays a round in every listed chat and schedules the next one.
func (b *Bot) AutoRounds(ctx context.Context, ids []int64) {
	for _, chatID := range ids {
		b.PlayRound(ctx, chatID)
		if err := b.Store.BumpAutoRound(chatID, b.Now()); err != nil {
			b.Log.Warn("bump auto round", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

// addTestPlayers tops the roster up to four so a lone tester can see a round.
func addTestPlayers(s logic.Session) (logic.Session, error) {
	var fakes []logic.PlayerInput
	for i := len(s.Players); i < 4; i++ {
		fakes = append(fakes, logic.PlayerInput{Name: fmt.Sprintf("Тестовый игрок %d", i+1)})
	}
	s, _, err := logic.AddPlayers(s, fakes)
	return s, err
}

func userError(err error) string {
	switch {
	case errors.Is(err, logic.ErrPlayerNotFound):
		return "Нет игрока с таким ID. /players"
	case errors.Is(err, logic.ErrEmptyName):
		return "Нужно имя игрока."
	case errors.Is(err, logic.ErrInvalidGender):
		return "Пол: m или f."
	case errors.Is(err, logic.ErrInvalidLevel):
		return "Уровень: beginner, semi или advance."
	case errors.Is(err, logic.ErrInvalidSettings):
		return "Лимиты должны быть неотрицательными числами."
	case errors.Is(err, errUsage):
		return strings.TrimPrefix(err.Error(), errUsage.Error()+": ")
	}
	return fmt.Sprintf("Что-то пошло не так: %v", err)
}
