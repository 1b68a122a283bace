package report

import (
	"strconv"
	"strings"
)

// breakoutScore ranks the upstream "Breakout" sentinel above any numeric
// score.
const breakoutScore = 9999

// ParseValue turns a raw trend value ("100", "+500%", "Breakout") into a
// comparable magnitude and a rising flag.
func ParseValue(raw string) (int, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}

	breakout := strings.Contains(strings.ToLower(value), "breakout")
	rising := breakout || strings.HasPrefix(value, "+")

	if breakout {
		return breakoutScore, rising
	}

	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	numeric, err := strconv.Atoi(digits.String())
	if err != nil {
		numeric = 0
	}
	return numeric, rising
}
