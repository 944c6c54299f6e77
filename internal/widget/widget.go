// Package widget drives an embedded analytics dashboard: it owns one display
// container, polls the analytics endpoint and pushes each snapshot into the
// container and its charts.
package widget

import (
	"context"
	"errors"
	"html/template"

	"review-insights-go/internal/analytics"
)

var ErrContainerNotFound = errors.New("container not found")

type Status int

const (
	Idle Status = iota
	Loading
	Live
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "Loading..."
	case Live:
		return "Live"
	case Error:
		return "Error"
	default:
		return "Idle"
	}
}

var allStatuses = []string{Idle.String(), Loading.String(), Live.String(), Error.String()}

type ChartKind string

const (
	SentimentChart ChartKind = "sentiment"
	RatingsChart   ChartKind = "ratings"
)

// Layout is what a container needs to draw the widget skeleton.
type Layout struct {
	ContainerID string
	Theme       string
	ShowCharts  bool
}

// Metrics are the values shown in the tiles and theme lists.
type Metrics struct {
	Total          int      `json:"total"`
	PositivePct    int      `json:"positivePct"`
	NeutralPct     int      `json:"neutralPct"`
	NegativePct    int      `json:"negativePct"`
	PositiveThemes []string `json:"positiveThemes"`
	NegativeThemes []string `json:"negativeThemes"`
}

// ChartData feeds both charts.
type ChartData struct {
	Positive int
	Neutral  int
	Negative int
	Ratings  []analytics.Rating
}

// Host resolves container ids to display surfaces.
type Host interface {
	Lookup(id string) (Container, bool)
}

// Container is the display surface the controller owns after Start.
type Container interface {
	Mount(Layout)
	SetStatus(Status)
	Show(Metrics)
	SetChart(kind ChartKind, markup template.HTML)
	Clear()
}

type Chart interface {
	Update(ChartData)
	Destroy()
}

type ChartFactory func(kind ChartKind, c Container) Chart

// Source produces one analytics payload per call.
type Source interface {
	Fetch(ctx context.Context) (analytics.Payload, error)
}

type SourceFunc func(ctx context.Context) (analytics.Payload, error)

func (f SourceFunc) Fetch(ctx context.Context) (analytics.Payload, error) { return f(ctx) }

const maxThemes = 5
