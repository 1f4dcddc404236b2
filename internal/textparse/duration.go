// Package textparse extracts a pause duration from free-form text.
package textparse

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoDuration means the input contained no parseable magnitude.
var ErrNoDuration = errors.New("textparse: no duration found")

var magnitudeRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Minutes parses inputs like "5 минут", "1 час", "30", "0.5 ч".
// The magnitude is the first decimal number in the text; the unit
// defaults to minutes unless an hour token follows. Inputs without
// digits fail so the caller can re-prompt.
func Minutes(input string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	match := magnitudeRe.FindString(s)
	if match == "" {
		return 0, ErrNoDuration
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return 0, ErrNoDuration
	}

	rest := strings.TrimSpace(strings.Replace(s, match, "", 1))
	if hasHourUnit(rest) {
		value *= 60
	}

	minutes := int(math.Round(value))
	if minutes <= 0 {
		return 0, ErrNoDuration
	}
	return minutes, nil
}

// hasHourUnit recognizes Russian and English hour markers, including
// glued forms like "2ч".
func hasHourUnit(rest string) bool {
	if strings.Contains(rest, "час") {
		return true
	}
	for _, field := range strings.Fields(rest) {
		switch strings.Trim(field, ".,!?") {
		case "ч", "h", "hr", "hrs", "hour", "hours":
			return true
		}
	}
	return false
}
