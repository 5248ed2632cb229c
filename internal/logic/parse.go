package logic

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var (
	lineSplit     = regexp.MustCompile(`\r?\n`)
	listNumbering = regexp.MustCompile(`^\s*\d+\.?\)?\s*`)
)

// ExtractNames turns a pasted list ("1. Jordan\n2) Rafli\n...") into names.
func ExtractNames(text string) []string {
	lines := lineSplit.Split(text, -1)
	names := lo.Map(lines, func(line string, _ int) string {
		return strings.TrimSpace(listNumbering.ReplaceAllString(strings.TrimSpace(line), ""))
	})
	return lo.Filter(names, func(name string, _ int) bool { return name != "" })
}
