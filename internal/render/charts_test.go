package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/analytics"
)

func TestSentimentDonutNoData(t *testing.T) {
	assert.Nil(t, DonutSegments(0, 0, 0))
	assert.Equal(t, noDataMarkup, string(SentimentDonut(0, 0, 0)))
}

func TestDonutSegments(t *testing.T) {
	segs := DonutSegments(60, 30, 10)
	require.Len(t, segs, 3)

	assert.Equal(t, []string{"Positive", "Neutral", "Negative"},
		[]string{segs[0].Label, segs[1].Label, segs[2].Label})
	assert.Equal(t, []int{60, 30, 10}, []int{segs[0].Percent, segs[1].Percent, segs[2].Percent})

	assert.InDelta(t, 0, segs[0].Offset, 1)
	assert.InDelta(t, 60*5.03, segs[1].Offset, 1)
	assert.InDelta(t, 90*5.03, segs[2].Offset, 1)

	assert.InDelta(t, 301.2, segs[0].Length, 1e-9)
	assert.InDelta(t, 150.6, segs[1].Length, 1e-9)
	assert.InDelta(t, 50.2, segs[2].Length, 1e-9)
}

func TestDonutSegmentsUseCountShares(t *testing.T) {
	segs := DonutSegments(2, 1, 1)
	require.Len(t, segs, 3)
	assert.Equal(t, 50, segs[0].Percent)
	assert.Equal(t, 25, segs[1].Percent)
	assert.InDelta(t, 75*5.02, segs[2].Offset, 1e-9)
}

func TestSentimentDonutMarkup(t *testing.T) {
	out := string(SentimentDonut(60, 30, 10))
	assert.True(t, strings.HasPrefix(out, `<svg class="sentiment-donut"`))
	assert.Contains(t, out, `r="80"`)
	assert.Contains(t, out, `rotate(-90 100 100)`)
	assert.Contains(t, out, `stroke-dasharray="301.20 502" stroke-dashoffset="0.00"`)
	assert.Contains(t, out, `stroke-dasharray="150.60 502" stroke-dashoffset="-301.20"`)
	assert.Contains(t, out, `stroke-dasharray="50.20 502" stroke-dashoffset="-451.80"`)
	assert.Contains(t, out, `>60%</text>`)
}

func TestSentimentDonutSkipsEmptySegments(t *testing.T) {
	out := string(SentimentDonut(5, 0, 0))
	assert.Equal(t, 1, strings.Count(out, `class="segment-`))
	assert.Contains(t, out, `segment-positive`)
}

func TestRatingsBars(t *testing.T) {
	assert.Equal(t, noDataMarkup, string(RatingsBars(nil)))

	out := string(RatingsBars([]analytics.Rating{
		{Question: "How was the <food>?", Average: 4.2},
		{Question: "Speed", Average: 3.8},
	}))
	assert.Equal(t, 2, strings.Count(out, "<rect "))
	assert.Contains(t, out, "How was th...")
	assert.Contains(t, out, "&lt;food&gt;")
	assert.NotContains(t, out, "<food>")
	assert.Contains(t, out, "Speed: 3.8")
}
