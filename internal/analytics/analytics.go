package analytics

import "sort"

// Payload paths read by Build.
const (
	PathTotalFeedback   = "overall_stats.total_feedback"
	PathSentiment       = "audio_metrics.sentiment_distribution"
	PathQuestionAverage = "survey_metrics.question_averages"
	PathPositiveThemes  = "audio_metrics.positive_themes"
	PathNegativeThemes  = "audio_metrics.negative_themes"
	PathRecommendations = "audio_metrics.recommendations"
)

// Sentiment labels used in the sentiment distribution.
const (
	Positive = "Positive"
	Neutral  = "Neutral"
	Negative = "Negative"
)

type Rating struct {
	Question string  `json:"question"`
	Average  float64 `json:"average"`
}

// Analytics is an immutable snapshot rebuilt from every payload.
type Analytics struct {
	TotalRecords       int            `json:"total_records"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	AverageRatings     []Rating       `json:"average_ratings"`
	PositiveThemes     []string       `json:"positive_themes"`
	NegativeThemes     []string       `json:"negative_themes"`
	Recommendations    []string       `json:"recommendations"`
}

// Build extracts the six known fields. It is pure and never fails.
func Build(p Payload) Analytics {
	ratings := Ratings(p, PathQuestionAverage)
	avg := make([]Rating, 0, len(ratings))
	for q, v := range ratings {
		avg = append(avg, Rating{Question: q, Average: v})
	}
	sort.Slice(avg, func(i, j int) bool { return avg[i].Question < avg[j].Question })

	return Analytics{
		TotalRecords:       Int(p, PathTotalFeedback),
		SentimentBreakdown: Counts(p, PathSentiment),
		AverageRatings:     avg,
		PositiveThemes:     Strings(p, PathPositiveThemes),
		NegativeThemes:     Strings(p, PathNegativeThemes),
		Recommendations:    Strings(p, PathRecommendations),
	}
}

// Sentiment returns the count for a label, 0 when absent.
func (a Analytics) Sentiment(label string) int {
	return a.SentimentBreakdown[label]
}

// RatingMean is the plain mean of all question averages.
func (a Analytics) RatingMean() (float64, bool) {
	if len(a.AverageRatings) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, r := range a.AverageRatings {
		sum += r.Average
	}
	return sum / float64(len(a.AverageRatings)), true
}
