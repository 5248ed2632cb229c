package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"courtshuffle/internal/logic"
	"courtshuffle/internal/messages"
	"courtshuffle/internal/render"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage")

func usage(text string) error { return fmt.Errorf("%w: %s", errUsage, text) }

func chatTitle(m *tgbotapi.Message) string {
	if m.Chat.Title != "" {
		return m.Chat.Title
	}
	if m.From != nil {
		return strings.TrimSpace(strings.Join([]string{m.From.FirstName, m.From.LastName}, " "))
	}
	return ""
}

func (b *Bot) onCommand(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil {
		return
	}
	chatID := m.Chat.ID
	if err := b.Store.UpsertChat(chatID, chatTitle(m), b.Defaults); err != nil {
		b.Log.Error("register chat", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	cmd, args := m.Command(), m.CommandArguments()
	b.Log.Debug("command", zap.Int64("chat_id", chatID), zap.String("cmd", cmd))

	reply, err := b.runCommand(ctx, chatID, cmd, args)
	if err != nil {
		if !errors.Is(err, errUsage) {
			b.Log.Warn("command failed", zap.Int64("chat_id", chatID), zap.String("cmd", cmd), zap.Error(err))
		}
		reply = userError(err)
	}
	if reply != "" {
		b.send(chatID, reply)
	}
}

// runCommand returns the text to answer with. Commands that post on their
// own (round) return an empty reply.
func (b *Bot) runCommand(ctx context.Context, chatID int64, cmd, args string) (string, error) {
	switch cmd {
	case "start":
		return messages.IntroMessage, nil
	case "help":
		return messages.HelpMessage, nil
	case "add":
		return b.cmdAdd(ctx, chatID, args)
	case "bulk":
		return b.cmdBulk(ctx, chatID, args)
	case "remove":
		return b.cmdRemove(ctx, chatID, args)
	case "set":
		return b.cmdSet(ctx, chatID, args)
	case "players":
		sess, err := b.load(ctx, chatID)
		if err != nil {
			return "", err
		}
		return render.Players(sess), nil
	case "courts":
		n, err := strconv.Atoi(strings.TrimSpace(args))
		if err != nil {
			return "", usage("/courts N")
		}
		sess, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
			return logic.SetCourts(s, n), nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Кортов: %d", sess.Settings.Courts), nil
	case "limits":
		return b.cmdLimits(ctx, chatID, args)
	case "override":
		return b.cmdOverride(ctx, chatID, args)
	case "round":
		b.PlayRound(ctx, chatID)
		return "", nil
	case "preview":
		sess, err := b.load(ctx, chatID)
		if err != nil {
			return "", err
		}
		if len(sess.Players) < 4 {
			return messages.NotEnoughPlayers, nil
		}
		made := logic.Preview(sess)
		if made == 0 {
			return messages.NoValidMatches, nil
		}
		return fmt.Sprintf("Следующий раунд заполнит кортов: %d из %d.", made, sess.Settings.Courts), nil
	case "history":
		n := 3
		if v := strings.TrimSpace(args); v != "" {
			var err error
			if n, err = strconv.Atoi(v); err != nil || n < 1 {
				return "", usage("/history [N]")
			}
		}
		sess, err := b.load(ctx, chatID)
		if err != nil {
			return "", err
		}
		return render.History(sess, n), nil
	case "auto":
		return b.cmdAuto(chatID, args)
	case "newsession":
		if _, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
			return logic.SoftReset(s), nil
		}); err != nil {
			return "", err
		}
		return messages.SessionReset, nil
	case "reset":
		if _, err := b.update(ctx, chatID, func(logic.Session) (logic.Session, error) {
			s := logic.FullReset()
			s.Settings.Courts = b.Defaults.Courts
			return s, nil
		}); err != nil {
			return "", err
		}
		if err := b.Store.SetAutoRounds(chatID, 0, b.Now()); err != nil {
			return "", err
		}
		return messages.FullReset, nil
	case "resettime":
		v := strings.TrimSpace(args)
		if _, err := time.Parse("15:04", v); err != nil {
			return "", usage("/resettime HH:MM (UTC)")
		}
		if err := b.Store.SetDailyTime(v); err != nil {
			return "", err
		}
		return messages.Saved, nil
	}
	return messages.UnknownCommand, nil
}

// parseTraits takes trailing gender/level words off fields.
func parseTraits(fields []string) (rest []string, g logic.Gender, l logic.Level) {
	rest = fields
	for len(rest) > 0 {
		last := rest[len(rest)-1]
		if l == "" {
			if lv, err := logic.ParseLevel(last); err == nil {
				l = lv
				rest = rest[:len(rest)-1]
				continue
			}
		}
		if g == "" {
			if gv, err := logic.ParseGender(last); err == nil {
				g = gv
				rest = rest[:len(rest)-1]
				continue
			}
		}
		break
	}
	return rest, g, l
}

func (b *Bot) cmdAdd(ctx context.Context, chatID int64, args string) (string, error) {
	rest, g, l := parseTraits(strings.Fields(args))
	if len(rest) == 0 {
		return "", usage("/add Имя [m|f] [beginner|semi|advance]")
	}
	var added logic.Player
	_, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
		next, p, err := logic.AddPlayer(s, logic.PlayerInput{Name: strings.Join(rest, " "), Gender: g, Level: l})
		added = p
		return next, err
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Добавлен %s. %s (%s, %s)", added.ID, added.Name, added.Gender, added.Level), nil
}

func (b *Bot) cmdBulk(ctx context.Context, chatID int64, args string) (string, error) {
	first, body, _ := strings.Cut(args, "\n")
	var inputs []logic.PlayerInput
	rest, g, l := parseTraits(strings.Fields(first))
	if len(rest) > 0 {
		// a name on the command line keeps its traits to itself
		for _, n := range logic.ExtractNames(strings.Join(rest, " ")) {
			inputs = append(inputs, logic.PlayerInput{Name: n, Gender: g, Level: l})
		}
		g, l = "", ""
	}
	for _, n := range logic.ExtractNames(body) {
		inputs = append(inputs, logic.PlayerInput{Name: n, Gender: g, Level: l})
	}
	if len(inputs) == 0 {
		return "", usage("/bulk [m|f] [уровень], затем имена по одному на строке")
	}
	var added []logic.Player
	_, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
		next, ps, err := logic.AddPlayers(s, inputs)
		added = ps
		return next, err
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Добавлено игроков: %d", len(added)), nil
}

func (b *Bot) cmdRemove(ctx context.Context, chatID int64, args string) (string, error) {
	id := strings.TrimSpace(args)
	if id == "" {
		return "", usage("/remove ID")
	}
	if _, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
		return logic.RemovePlayer(s, id)
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Игрок %s удалён.", id), nil
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "yes", "true", "да", "вкл":
		return true, true
	case "0", "off", "no", "false", "нет", "выкл":
		return false, true
	}
	return false, false
}

func (b *Bot) cmdSet(ctx context.Context, chatID int64, args string) (string, error) {
	const help = "/set ID gender|level|group|arrived значение"
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", usage(help)
	}
	id, field, value := fields[0], strings.ToLower(fields[1]), strings.Join(fields[2:], " ")
	var patch logic.PlayerPatch
	switch field {
	case "gender":
		g, err := logic.ParseGender(value)
		if err != nil {
			return "", err
		}
		patch.Gender = &g
	case "level":
		l, err := logic.ParseLevel(value)
		if err != nil {
			return "", err
		}
		patch.Level = &l
	case "group":
		if value == "-" {
			value = ""
		}
		patch.PartyID = &value
	case "arrived":
		on, ok := parseBool(value)
		if !ok {
			return "", usage("/set ID arrived on|off")
		}
		patch.Arrived = &on
	default:
		return "", usage(help)
	}
	if _, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
		return logic.UpdatePlayer(s, id, patch)
	}); err != nil {
		return "", err
	}
	return messages.Saved, nil
}

func (b *Bot) cmdLimits(ctx context.Context, chatID int64, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", usage("/limits T O")
	}
	t, err1 := strconv.Atoi(fields[0])
	o, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return "", usage("/limits T O")
	}
	sess, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
		return logic.SetRepeatLimits(s, t, o)
	})
	if err != nil {
		return "", err
	}
	lim := sess.Settings.RepeatLimit
	return fmt.Sprintf("Лимиты: партнёр %d, соперник %d", lim.Teammate, lim.Opponent), nil
}

func (b *Bot) cmdOverride(ctx context.Context, chatID int64, args string) (string, error) {
	on, ok := parseBool(args)
	if !ok {
		return "", usage("/override on|off")
	}
	if _, err := b.update(ctx, chatID, func(s logic.Session) (logic.Session, error) {
		return logic.SetSoftOverride(s, on), nil
	}); err != nil {
		return "", err
	}
	if on {
		return "Мягкое ослабление лимитов включено.", nil
	}
	return "Мягкое ослабление лимитов выключено.", nil
}

func (b *Bot) cmdAuto(chatID int64, args string) (string, error) {
	v := strings.TrimSpace(args)
	if off, ok := parseBool(v); ok && !off {
		if err := b.Store.SetAutoRounds(chatID, 0, b.Now()); err != nil {
			return "", err
		}
		return messages.AutoOff, nil
	}
	minutes, err := strconv.Atoi(v)
	if err != nil || minutes < 1 {
		return "", usage("/auto минуты|off")
	}
	if err := b.Store.SetAutoRounds(chatID, minutes, b.Now()); err != nil {
		return "", err
	}
	return fmt.Sprintf("Новый раунд каждые %d мин.", minutes), nil
}
