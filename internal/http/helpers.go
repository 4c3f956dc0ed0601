package http

import (
	"fmt"
	"strconv"
	"strings"

	"sweetdiary/internal/core"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1 // remove character
		}
		return r
	}, s)
	return result
}

func monthLabel(m core.Month) string {
	return fmt.Sprintf("%s %d", m.Month.String(), m.Year)
}

func formatYen(y core.Yen) string {
	return "¥" + groupThousands(int64(y))
}

func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		var b strings.Builder
		lead := len(s) % 3
		if lead > 0 {
			b.WriteString(s[:lead])
		}
		for i := lead; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// parseAmount parses a non-negative integer form field; empty means 0.
func parseAmount(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a whole number: %q", v)
	}
	if n < 0 {
		return 0, fmt.Errorf("cannot be negative: %q", v)
	}
	return n, nil
}

// parseOptionalAmount is parseAmount but empty means absent.
func parseOptionalAmount(v string) (*int64, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	n, err := parseAmount(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
