// Package render turns Analytics snapshots into presentation artifacts:
// percentage tiles, star ratings, inline SVG charts, the live widget
// fragment and the two-page HTML report.
package render

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
)

// PercentOf returns round(100*part/total), or 0 when total is not positive.
// Each share is rounded on its own, so three shares may not add up to 100.
func PercentOf(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// NPS derives the badge score from the positive and negative shares,
// bounded to [10, 100].
func NPS(positivePct, negativePct int) int {
	n := 50 + positivePct - negativePct
	if n < 10 {
		return 10
	}
	if n > 100 {
		return 100
	}
	return n
}

type StarCounts struct {
	Full  int
	Half  int
	Empty int
}

// ClampScore bounds a rating to [0,5]; NaN becomes 0.
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 5:
		return 5
	}
	return score
}

// Stars splits a clamped score into full, half and empty symbols. The three
// always add up to 5.
func Stars(score float64) StarCounts {
	s := ClampScore(score)
	full := int(math.Floor(s))
	half := 0
	if s-float64(full) >= 0.5 {
		half = 1
	}
	return StarCounts{Full: full, Half: half, Empty: 5 - full - half}
}

// StarRating renders the star symbols followed by the (clamped) score.
func StarRating(score float64) template.HTML {
	c := Stars(score)
	return template.HTML(fmt.Sprintf(`<span class="rating-stars">%s%s%s</span> %s`,
		strings.Repeat("★", c.Full),
		strings.Repeat("½", c.Half),
		strings.Repeat("☆", c.Empty),
		FormatScore(ClampScore(score)),
	))
}

// FormatScore prints the shortest decimal form: 4.2, 5, 3.75.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// TruncateLabel shortens long chart labels to n runes plus "...".
func TruncateLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
