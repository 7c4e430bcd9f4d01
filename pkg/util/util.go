package util

import "strings"

// CalendarDaysFor estimates how many calendar days cover n trading sessions,
// with a week of slack for holidays.
func CalendarDaysFor(n int) int {
	if n <= 0 {
		return 0
	}
	return n*7/5 + 7
}

// NormalizeSymbols upper-cases and trims tickers, dropping blanks and repeats
// while keeping first-seen order.
func NormalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
