package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"review-insights-go/internal/actionable"
	"review-insights-go/internal/analytics"
)

// Disclaimer is appended verbatim to every report.
const Disclaimer = "This analysis is generated by AI based on transcript metadata and automated sentiment analysis. Results should be verified by human review for business-critical decisions."

const (
	maxThemes           = 5
	maxQuotes           = 3
	maxImprovementAreas = 4
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("render").ParseFS(templateFS, "templates/*.tmpl"))

type ReportOptions struct {
	City        string
	Industry    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	GeneratedAt time.Time
}

type quote struct {
	Text string
	Tone string
}

type questionRow struct {
	Question string
	Stars    template.HTML
}

type reportView struct {
	CompanyName string
	City        string
	Industry    string
	PeriodStart string
	PeriodEnd   string
	Generated   string

	Total       int
	Positive    int
	Neutral     int
	Negative    int
	PositivePct int
	NeutralPct  int
	NegativePct int
	Donut       template.HTML

	PositiveThemes   []string
	NegativeThemes   []string
	Quotes           []quote
	Questions        []questionRow
	Recommendation   string
	SurveyResponses  int
	Complaints       int
	Satisfaction     string
	ActionItems      int
	ImprovementAreas []string
	NextSteps        actionable.ActionCard
	NPS              int
	Disclaimer       string
}

var quoteTones = []string{"positive", "neutral", "negative"}

// BuildHTMLReport renders the two-page printable report.
func BuildHTMLReport(a analytics.Analytics, companyName string, opts ReportOptions) (string, error) {
	opts = opts.withDefaults()

	pos := a.Sentiment(analytics.Positive)
	neu := a.Sentiment(analytics.Neutral)
	neg := a.Sentiment(analytics.Negative)

	v := reportView{
		CompanyName: companyName,
		City:        opts.City,
		Industry:    opts.Industry,
		PeriodStart: opts.PeriodStart.Format("January 2, 2006"),
		PeriodEnd:   opts.PeriodEnd.Format("January 2, 2006"),
		Generated:   opts.GeneratedAt.Format("January 02, 2006 at 03:04:05 PM"),

		Total:       a.TotalRecords,
		Positive:    pos,
		Neutral:     neu,
		Negative:    neg,
		PositivePct: PercentOf(pos, a.TotalRecords),
		NeutralPct:  PercentOf(neu, a.TotalRecords),
		NegativePct: PercentOf(neg, a.TotalRecords),
		Donut:       SentimentDonut(pos, neu, neg),

		PositiveThemes:   head(a.PositiveThemes, maxThemes),
		NegativeThemes:   head(a.NegativeThemes, maxThemes),
		Recommendation:   strings.Join(a.Recommendations, ". "),
		SurveyResponses:  len(a.AverageRatings),
		Complaints:       len(a.NegativeThemes),
		Satisfaction:     Satisfaction(a),
		ActionItems:      len(a.Recommendations),
		ImprovementAreas: head(a.NegativeThemes, maxImprovementAreas),
		NextSteps:        actionable.Generate(a),
		Disclaimer:       Disclaimer,
	}
	v.NPS = NPS(v.PositivePct, v.NegativePct)

	for i, q := range head(a.Recommendations, maxQuotes) {
		v.Quotes = append(v.Quotes, quote{Text: q, Tone: quoteTones[i]})
	}
	for _, r := range a.AverageRatings {
		v.Questions = append(v.Questions, questionRow{Question: r.Question, Stars: StarRating(r.Average)})
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "report.html.tmpl", v); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Satisfaction is the mean rating to one decimal, or "0" without ratings.
func Satisfaction(a analytics.Analytics) string {
	mean, ok := a.RatingMean()
	if !ok {
		return "0"
	}
	return fmt.Sprintf("%.1f", mean)
}

func (o ReportOptions) withDefaults() ReportOptions {
	if o.GeneratedAt.IsZero() {
		o.GeneratedAt = time.Now()
	}
	if o.PeriodEnd.IsZero() {
		o.PeriodEnd = o.GeneratedAt
	}
	if o.PeriodStart.IsZero() {
		o.PeriodStart = o.PeriodEnd.AddDate(0, 0, -7)
	}
	if o.City == "" {
		o.City = "Unknown"
	}
	if o.Industry == "" {
		o.Industry = "Unknown"
	}
	return o
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
