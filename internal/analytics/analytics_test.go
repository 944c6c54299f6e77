package analytics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "overall_stats": {"total_feedback": 100},
  "audio_metrics": {
    "sentiment_distribution": {"Positive": 70, "Neutral": 20, "Negative": 10},
    "positive_themes": ["friendly staff", "fast service"],
    "negative_themes": ["cold food"],
    "recommendations": ["Warm plates before serving", "Add more seating"]
  },
  "survey_metrics": {"question_averages": {"Q2": 3.8, "Q1": 4.2}}
}`

func TestDecode(t *testing.T) {
	p, err := Decode([]byte(samplePayload))
	require.NoError(t, err)
	assert.Contains(t, p, "overall_stats")

	for _, bad := range []string{"", "{", "null", "[1,2]", `"text"`} {
		_, err := Decode([]byte(bad))
		assert.True(t, errors.Is(err, ErrMalformed), "input %q", bad)
	}
}

func TestExtract(t *testing.T) {
	p, err := Decode([]byte(`{
		"a": {"b": {"c": 5}, "zero": 0, "empty": "", "list": [], "obj": {}, "f": false, "s": "x"},
		"scalar": 3
	}`))
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want any
	}{
		{"nested value", "a.b.c", float64(5)},
		{"intermediate object", "a.b", map[string]any{"c": float64(5)}},
		{"missing leaf", "a.b.d", "def"},
		{"missing root", "nope.b", "def"},
		{"through scalar", "scalar.x", "def"},
		{"through string", "a.s.len", "def"},
		{"zero is default", "a.zero", "def"},
		{"empty string is default", "a.empty", "def"},
		{"empty list is default", "a.list", "def"},
		{"empty object is default", "a.obj", "def"},
		{"false is default", "a.f", "def"},
		{"empty path", "", "def"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(p, tt.path, "def"))
		})
	}
}

func TestExtractNilPayload(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, 7, Extract(nil, "a.b", 7))
	})
}

func TestBuild(t *testing.T) {
	p, err := Decode([]byte(samplePayload))
	require.NoError(t, err)

	a := Build(p)
	assert.Equal(t, 100, a.TotalRecords)
	assert.Equal(t, 70, a.Sentiment(Positive))
	assert.Equal(t, 20, a.Sentiment(Neutral))
	assert.Equal(t, 10, a.Sentiment(Negative))
	assert.Equal(t, []Rating{{"Q1", 4.2}, {"Q2", 3.8}}, a.AverageRatings)
	assert.Equal(t, []string{"friendly staff", "fast service"}, a.PositiveThemes)
	assert.Equal(t, []string{"cold food"}, a.NegativeThemes)
	assert.Len(t, a.Recommendations, 2)

	mean, ok := a.RatingMean()
	require.True(t, ok)
	assert.InDelta(t, 4.0, mean, 1e-9)
}

func TestBuildDefaults(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"overall_stats": null, "audio_metrics": 4, "survey_metrics": "x"}`,
		`{"overall_stats": {"total_feedback": "many"}, "audio_metrics": {"positive_themes": "not a list"}}`,
		`{"audio_metrics": {"sentiment_distribution": [], "recommendations": {}}}`,
	}
	for _, raw := range payloads {
		p, err := Decode([]byte(raw))
		require.NoError(t, err)

		var a Analytics
		require.NotPanics(t, func() { a = Build(p) }, raw)
		assert.Equal(t, 0, a.TotalRecords, raw)
		assert.Empty(t, a.SentimentBreakdown, raw)
		assert.NotNil(t, a.SentimentBreakdown, raw)
		assert.Empty(t, a.AverageRatings, raw)
		assert.Empty(t, a.PositiveThemes, raw)
		assert.Empty(t, a.NegativeThemes, raw)
		assert.Empty(t, a.Recommendations, raw)

		_, ok := a.RatingMean()
		assert.False(t, ok)
	}
}

func TestBuildLenientValues(t *testing.T) {
	p, err := Decode([]byte(`{
		"survey_metrics": {"question_averages": {"Speed": "4.5", "Taste": "n/a", "Price": 3}},
		"audio_metrics": {
			"sentiment_distribution": {"Positive": 3, "Mixed": "x"},
			"negative_themes": ["slow", 4, null, "noisy"]
		}
	}`))
	require.NoError(t, err)

	a := Build(p)
	assert.Equal(t, []Rating{{"Price", 3}, {"Speed", 4.5}}, a.AverageRatings)
	assert.Equal(t, map[string]int{"Positive": 3}, a.SentimentBreakdown)
	assert.Equal(t, []string{"slow", "noisy"}, a.NegativeThemes)
}
