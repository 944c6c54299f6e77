package render

import (
	"bytes"
	"fmt"
	"html/template"
)

// WidgetView is everything the live widget shows at one moment.
type WidgetView struct {
	ContainerID    string
	Theme          string
	ShowCharts     bool
	Status         string
	Error          bool
	Total          int
	PositivePct    int
	NeutralPct     int
	NegativePct    int
	PositiveThemes []string
	NegativeThemes []string
	SentimentChart template.HTML
	RatingsChart   template.HTML
}

// WidgetFragment renders the embeddable dashboard markup.
func WidgetFragment(v WidgetView) (string, error) {
	if v.Theme != "dark" {
		v.Theme = "light"
	}
	if v.Status == "" {
		v.Status = "Loading..."
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "widget.html.tmpl", v); err != nil {
		return "", fmt.Errorf("render widget: %w", err)
	}
	return buf.String(), nil
}
