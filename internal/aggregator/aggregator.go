package aggregator

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"review-insights-go/internal/analytics"
	"review-insights-go/internal/render"
	"review-insights-go/internal/types"
)

const (
	maxThemes          = 5
	maxRecommendations = 3
	maxQuotes          = 3
)

// indicators too generic to quote back to the customer
var genericIndicators = map[string]bool{"neutral": true, "okay": true, "uh": true}

// Aggregate folds raw feedback records into the payload the dashboard reads.
func Aggregate(items []types.FeedbackItem) types.ReportPayload {
	questionTotals := map[string]float64{}
	questionCounts := map[string]int{}
	responses := 0

	sentiment := map[string]int{analytics.Positive: 0, analytics.Neutral: 0, analytics.Negative: 0}
	var positive, negative orderedSet
	var recommendations, quotes []string
	audio := 0

	for _, it := range items {
		for _, q := range it.Quess {
			responses++
			questionTotals[q.Question] += q.Answer
			questionCounts[q.Question]++
		}
		if it.MetaData.Empty() {
			continue
		}
		audio++
		fa := it.MetaData.FeedbackAnalysis
		if fa.OverallSentiment != "" {
			sentiment[fa.OverallSentiment]++
		}
		positive.add(fa.PositiveIndicators...)
		negative.add(fa.NegativeIndicators...)
		recommendations = append(recommendations, fa.Recommendations...)

		for _, ind := range append(append([]string{}, fa.PositiveIndicators...), fa.NegativeIndicators...) {
			ind = strings.TrimSpace(ind)
			if len(ind) <= 3 || genericIndicators[strings.ToLower(ind)] {
				continue
			}
			q := "Customer mentioned: " + ind
			if !contains(quotes, q) {
				quotes = append(quotes, q)
			}
		}
	}

	averages := make(map[string]float64, len(questionTotals))
	for q, total := range questionTotals {
		averages[q] = math.Round(total/float64(questionCounts[q])*10) / 10
	}

	if len(quotes) == 0 {
		quotes = []string{"No transcript available"}
	}

	return types.ReportPayload{
		SurveyMetrics: types.SurveyMetrics{
			TotalResponses:   responses,
			QuestionAverages: averages,
		},
		AudioMetrics: types.AudioMetrics{
			TotalFeedback:         audio,
			SentimentDistribution: sentiment,
			PositiveThemes:        head(positive.items, maxThemes),
			NegativeThemes:        head(negative.items, maxThemes),
			Recommendations:       head(recommendations, maxRecommendations),
			SampleTranscripts:     head(quotes, maxQuotes),
		},
		OverallStats: types.OverallStats{
			TotalFeedback:      responses + audio,
			PositivePercentage: render.PercentOf(sentiment[analytics.Positive], audio),
			NeutralPercentage:  render.PercentOf(sentiment[analytics.Neutral], audio),
			NegativePercentage: render.PercentOf(sentiment[analytics.Negative], audio),
		},
	}
}

// FilterCompany keeps records for one company. An empty id keeps everything.
func FilterCompany(items []types.FeedbackItem, companyID string) []types.FeedbackItem {
	if companyID == "" {
		return items
	}
	var out []types.FeedbackItem
	for _, it := range items {
		if it.CompanyID == companyID {
			out = append(out, it)
		}
	}
	return out
}

// ErrNoData is returned by PayloadFor when no record matches.
var ErrNoData = errors.New("No data found")

// PayloadFor aggregates one company's records (all when companyID is empty)
// into the generic payload the extractor reads. It also returns the number
// of matching records.
func PayloadFor(items []types.FeedbackItem, companyID string) (analytics.Payload, int, error) {
	items = FilterCompany(items, companyID)
	if len(items) == 0 {
		return nil, 0, ErrNoData
	}
	data, err := json.Marshal(Aggregate(items))
	if err != nil {
		return nil, 0, err
	}
	p, err := analytics.Decode(data)
	return p, len(items), err
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func (s *orderedSet) add(vals ...string) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" || s.seen[v] {
			continue
		}
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

func head(s []string, n int) []string {
	if s == nil {
		return []string{}
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
