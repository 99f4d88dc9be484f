package display

import (
	"strconv"
	"strings"
)

// FormatDuration renders whole seconds as "1h 1m 1s", dropping zero parts.
// Zero or negative input renders as "0s".
func FormatDuration(seconds float64) string {
	total := int64(seconds)
	if total <= 0 {
		return "0s"
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	parts := make([]string, 0, 3)
	if h > 0 {
		parts = append(parts, strconv.FormatInt(h, 10)+"h")
	}
	if m > 0 {
		parts = append(parts, strconv.FormatInt(m, 10)+"m")
	}
	if s > 0 {
		parts = append(parts, strconv.FormatInt(s, 10)+"s")
	}
	return strings.Join(parts, " ")
}
