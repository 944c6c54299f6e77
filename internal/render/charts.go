package render

import (
	"fmt"
	"html/template"
	"strings"

	"review-insights-go/internal/analytics"
)

const (
	DonutRadius = 80
	// Circumference is 2*pi*DonutRadius rounded to a whole number.
	Circumference = 502

	donutSize   = 200
	donutStroke = 24
)

// Segment colours by sentiment label.
var sentimentColors = map[string]string{
	analytics.Positive: "#10b981",
	analytics.Neutral:  "#f59e0b",
	analytics.Negative: "#ef4444",
}

const noDataMarkup = `<div class="chart-empty">No data</div>`

type Segment struct {
	Label   string
	Color   string
	Percent int
	// Length is the visible arc, Offset the arc already used by earlier
	// segments. Both are in the same units as Circumference.
	Length float64
	Offset float64
}

// DonutSegments lays out positive, neutral and negative arcs clockwise from
// 12 o'clock. It returns nil when there is nothing to draw.
func DonutSegments(positive, neutral, negative int) []Segment {
	total := positive + neutral + negative
	if total <= 0 {
		return nil
	}
	unit := float64(Circumference) / 100

	counts := []struct {
		label string
		n     int
	}{
		{analytics.Positive, positive},
		{analytics.Neutral, neutral},
		{analytics.Negative, negative},
	}
	segs := make([]Segment, 0, len(counts))
	cum := 0
	for _, c := range counts {
		pct := PercentOf(c.n, total)
		segs = append(segs, Segment{
			Label:   c.label,
			Color:   sentimentColors[c.label],
			Percent: pct,
			Length:  float64(pct) * unit,
			Offset:  float64(cum) * unit,
		})
		cum += pct
	}
	return segs
}

// SentimentDonut renders the sentiment split as an inline SVG donut, or a
// "No data" placeholder when all counts are zero.
func SentimentDonut(positive, neutral, negative int) template.HTML {
	segs := DonutSegments(positive, neutral, negative)
	if segs == nil {
		return template.HTML(noDataMarkup)
	}
	c := donutSize / 2

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg class="sentiment-donut" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		donutSize, donutSize, donutSize, donutSize))
	sb.WriteString(fmt.Sprintf(`<circle cx="%d" cy="%d" r="%d" fill="none" stroke="#e2e8f0" stroke-width="%d"/>`,
		c, c, DonutRadius, donutStroke))
	sb.WriteString(fmt.Sprintf(`<g transform="rotate(-90 %d %d)">`, c, c))
	for _, s := range segs {
		if s.Percent == 0 {
			continue
		}
		offset := 0.0
		if s.Offset > 0 {
			offset = -s.Offset
		}
		sb.WriteString(fmt.Sprintf(`<circle class="segment-%s" cx="%d" cy="%d" r="%d" fill="none" stroke="%s" stroke-width="%d" stroke-dasharray="%.2f %d" stroke-dashoffset="%.2f"><title>%s %d%%</title></circle>`,
			strings.ToLower(s.Label), c, c, DonutRadius, s.Color, donutStroke, s.Length, Circumference, offset, s.Label, s.Percent))
	}
	sb.WriteString(`</g>`)

	lead := segs[0]
	for _, s := range segs[1:] {
		if s.Percent > lead.Percent {
			lead = s
		}
	}
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" font-size="22" font-weight="700">%d%%</text>`, c, c-2, lead.Percent))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" font-size="11" fill="#64748b">%s</text>`, c, c+16, lead.Label))
	sb.WriteString(`</svg>`)
	return template.HTML(sb.String())
}

const (
	barsWidth  = 320
	barsHeight = 200
	barsPadX   = 28
	barsPadY   = 20
	barsLabelH = 28
)

// RatingsBars renders question averages as a vertical bar chart on a 0-5
// scale.
func RatingsBars(ratings []analytics.Rating) template.HTML {
	if len(ratings) == 0 {
		return template.HTML(noDataMarkup)
	}
	plotW := barsWidth - 2*barsPadX
	plotH := barsHeight - barsPadY - barsLabelH
	slot := float64(plotW) / float64(len(ratings))
	barW := slot * 0.6

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg class="ratings-bars" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		barsWidth, barsHeight, barsWidth, barsHeight))
	for i := 0; i <= 5; i++ {
		y := float64(barsPadY) + float64(plotH)*float64(5-i)/5
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#e2e8f0" stroke-dasharray="3,3"/>`,
			barsPadX, y, barsPadX+plotW, y))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="9" fill="#64748b" text-anchor="end">%d</text>`,
			barsPadX-4, y+3, i))
	}
	for i, r := range ratings {
		v := ClampScore(r.Average)
		h := float64(plotH) * v / 5
		x := float64(barsPadX) + slot*float64(i) + (slot-barW)/2
		y := float64(barsPadY+plotH) - h
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4" fill="#3b82f6"><title>%s: %s</title></rect>`,
			x, y, barW, h, template.HTMLEscapeString(r.Question), FormatScore(v)))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="9" fill="#334155" text-anchor="middle">%s</text>`,
			x+barW/2, barsPadY+plotH+14, template.HTMLEscapeString(TruncateLabel(r.Question, 10))))
	}
	sb.WriteString(`</svg>`)
	return template.HTML(sb.String())
}
