package widget

import (
	"html/template"

	"review-insights-go/internal/render"
)

// SVGCharts draws charts as inline SVG pushed into the container.
func SVGCharts(kind ChartKind, c Container) Chart {
	ch := &svgChart{kind: kind, container: c}
	ch.Update(ChartData{})
	return ch
}

type svgChart struct {
	kind      ChartKind
	container Container
	destroyed bool
}

func (s *svgChart) Update(d ChartData) {
	if s.destroyed {
		return
	}
	var markup template.HTML
	switch s.kind {
	case SentimentChart:
		markup = render.SentimentDonut(d.Positive, d.Neutral, d.Negative)
	case RatingsChart:
		markup = render.RatingsBars(d.Ratings)
	default:
		return
	}
	s.container.SetChart(s.kind, markup)
}

func (s *svgChart) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.container.SetChart(s.kind, "")
}
