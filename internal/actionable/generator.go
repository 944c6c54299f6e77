package actionable

import (
	"fmt"

	"review-insights-go/internal/analytics"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// negativeAlert is the share of negative feedback that triggers an escalation card.
const negativeAlert = 0.35

func Generate(a analytics.Analytics) ActionCard {
	share := 0.0
	if a.TotalRecords > 0 {
		share = float64(a.Sentiment(analytics.Negative)) / float64(a.TotalRecords)
	}
	worst := ""
	if len(a.NegativeThemes) > 0 {
		worst = a.NegativeThemes[0]
	}

	if share >= negativeAlert && worst != "" {
		return ActionCard{
			Insight: fmt.Sprintf("High negative sentiment (%.0f%%), led by %s", share*100, worst),
			Action:  fmt.Sprintf("Address %s first and review progress with the team this week", worst),
			Impact:  "Reduce complaints and retention risk",
		}
	}
	if worst != "" {
		return ActionCard{
			Insight: fmt.Sprintf("Recurring complaint: %s", worst),
			Action:  fmt.Sprintf("Address %s", worst),
			Impact:  "Lift satisfaction on the weakest area",
		}
	}
	return ActionCard{
		Insight: "No strong complaint pattern detected",
		Action:  "Focus on product quality improvements based on feedback",
		Impact:  "Low immediate intervention",
	}
}
