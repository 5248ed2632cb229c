// Command shuffle runs the court shuffler against a session file without Telegram.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"courtshuffle/internal/logic"
	"courtshuffle/internal/messages"
	"courtshuffle/internal/render"

	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "shuffle:", err)
		os.Exit(1)
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadSession reads a session file. A missing file is an empty session.
func loadSession(path string) (logic.Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return logic.NewSession(), nil
	}
	if err != nil {
		return logic.Session{}, err
	}
	var s logic.Session
	if isYAML(path) {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return logic.Session{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if s.Settings == (logic.Settings{}) {
		s.Settings = logic.DefaultSettings()
	}
	return logic.Normalize(s), nil
}

func saveSession(path string, s logic.Session) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func run(args []string, out io.Writer) error {
	fl := flag.NewFlagSet("shuffle", flag.ContinueOnError)
	fl.SetOutput(out)
	path := fl.String("session", "session.json", "session file (.json or .yaml)")
	preview := fl.Bool("preview", false, "only report how many courts the next round fills; do not save")
	courts := fl.Int("courts", 0, "set the number of courts")
	soft := fl.String("soft", "", "soft override: on or off")
	reset := fl.String("reset", "", "soft (new evening) or full (drop everything)")
	add := fl.String("add", "", "file with player names, one per line")
	if err := fl.Parse(args); err != nil {
		return err
	}

	s, err := loadSession(*path)
	if err != nil {
		return err
	}

	switch *reset {
	case "":
	case "soft":
		s = logic.SoftReset(s)
	case "full":
		s = logic.FullReset()
	default:
		return fmt.Errorf("unknown -reset %q", *reset)
	}

	if *add != "" {
		text, err := os.ReadFile(*add)
		if err != nil {
			return err
		}
		names := logic.ExtractNames(string(text))
		inputs := make([]logic.PlayerInput, len(names))
		for i, n := range names {
			inputs[i] = logic.PlayerInput{Name: n}
		}
		if s, _, err = logic.AddPlayers(s, inputs); err != nil {
			return err
		}
		fmt.Fprintf(out, "added %d players\n", len(names))
	}

	if *courts != 0 {
		s = logic.SetCourts(s, *courts)
	}
	switch strings.ToLower(*soft) {
	case "":
	case "on":
		s = logic.SetSoftOverride(s, true)
	case "off":
		s = logic.SetSoftOverride(s, false)
	default:
		return fmt.Errorf("unknown -soft %q", *soft)
	}

	if *preview {
		fmt.Fprintf(out, "next round fills %d of %d courts\n", logic.Preview(s), s.Settings.Courts)
		return nil
	}

	// Roster edits only save; a round needs a separate run.
	if *reset != "" || *add != "" {
		return saveSession(*path, s)
	}
	if len(s.Players) < 4 {
		fmt.Fprintln(out, messages.NotEnoughPlayers)
	} else {
		s = logic.GenerateRound(s)
		r, _ := s.LastRound()
		fmt.Fprintln(out, render.Round(r, s.PlayersByID()))
		if len(r.Matches) == 0 {
			fmt.Fprintln(out, messages.NoValidMatches)
		}
	}
	return saveSession(*path, s)
}
