package models

import (
	"strconv"
	"strings"
)

const (
	MinPriceLevel = 1
	MaxPriceLevel = 4
)

// ParsePriceLevels reads a raw price field. "$$" yields [2], "1,2" yields
// [1 2]; every level is clamped to [1,4]. Unparseable input yields nil.
func ParsePriceLevels(raw string) []int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if n := strings.Count(s, "$"); n > 0 {
		return []int{clampLevel(n)}
	}

	var levels []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		levels = append(levels, clampLevel(n))
	}
	return levels
}

// MeanPriceLevel averages levels. ok is false for an empty slice.
func MeanPriceLevel(levels []int) (mean float64, ok bool) {
	if len(levels) == 0 {
		return 0, false
	}
	var sum int
	for _, l := range levels {
		sum += clampLevel(l)
	}
	return float64(sum) / float64(len(levels)), true
}

func clampLevel(n int) int {
	if n < MinPriceLevel {
		return MinPriceLevel
	}
	if n > MaxPriceLevel {
		return MaxPriceLevel
	}
	return n
}
