package actionable

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"review-insights-go/internal/analytics"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		in         analytics.Analytics
		wantAction string
		wantPrefix string
	}{
		{
			name: "high negative share",
			in: analytics.Analytics{
				TotalRecords:       10,
				SentimentBreakdown: map[string]int{"Negative": 4},
				NegativeThemes:     []string{"slow service", "noise"},
			},
			wantAction: "Address slow service first and review progress with the team this week",
			wantPrefix: "High negative sentiment (40%)",
		},
		{
			name: "complaints but low share",
			in: analytics.Analytics{
				TotalRecords:       10,
				SentimentBreakdown: map[string]int{"Negative": 1},
				NegativeThemes:     []string{"parking"},
			},
			wantAction: "Address parking",
			wantPrefix: "Recurring complaint: parking",
		},
		{
			name:       "empty analytics",
			in:         analytics.Analytics{},
			wantAction: "Focus on product quality improvements based on feedback",
			wantPrefix: "No strong complaint pattern",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := Generate(tt.in)
			assert.Equal(t, tt.wantAction, card.Action)
			assert.Contains(t, card.Insight, tt.wantPrefix)
			assert.NotEmpty(t, card.Impact)
		})
	}
}
