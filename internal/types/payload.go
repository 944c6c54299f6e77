// internal/types/payload.go
package types

// --------------------------------------------
// Aggregated payload served on /api/data
// --------------------------------------------
type ReportPayload struct {
	SurveyMetrics SurveyMetrics `json:"survey_metrics"`
	AudioMetrics  AudioMetrics  `json:"audio_metrics"`
	OverallStats  OverallStats  `json:"overall_stats"`
}

type SurveyMetrics struct {
	TotalResponses   int                `json:"total_responses"`
	QuestionAverages map[string]float64 `json:"question_averages"`
}

type AudioMetrics struct {
	TotalFeedback         int            `json:"total_feedback"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	PositiveThemes        []string       `json:"positive_themes"`
	NegativeThemes        []string       `json:"negative_themes"`
	Recommendations       []string       `json:"recommendations"`
	SampleTranscripts     []string       `json:"sample_transcripts"`
}

type OverallStats struct {
	TotalFeedback      int `json:"total_feedback"`
	PositivePercentage int `json:"positive_percentage"`
	NeutralPercentage  int `json:"neutral_percentage"`
	NegativePercentage int `json:"negative_percentage"`
}
