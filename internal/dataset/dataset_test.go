package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"review-insights-go/internal/types"
)

const sampleJSON = `[
  {"id":"f1","companyId":"ACME","quess":[{"questionId":"q1","question":"Food","answer":"4"}]},
  {"id":"f2","companyId":"ACME","metaData":"{\"audioId\":\"a1\",\"feedbackAnalysis\":{\"overallSentiment\":\"Positive\",\"positiveIndicators\":[\"tasty\"]}}"}
]`

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 4.0, items[0].Quess[0].Answer)
	assert.Equal(t, "Positive", items[1].MetaData.FeedbackAnalysis.OverallSentiment)
	assert.Equal(t, []string{"tasty"}, items[1].MetaData.FeedbackAnalysis.PositiveIndicators)
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("feedback.csv")
	assert.ErrorContains(t, err, "unsupported")
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "feedback.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Company", "Question", "Rating", "Overall Sentiment", "Positive Indicators", "Negative Indicators", "Recommendations", "Complaints Detected"},
		{"ACME", "Food", 4.5, "", "", "", "", ""},
		{"ACME", "", "", "negative", "", "cold food; slow service", "Warm plates", "yes"},
		{"", "Food", 3, "", "", "", "", ""},
		{"BETA", "", "", "", "", "", "", ""},
	})

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, []types.SurveyAnswer{{Question: "Food", Answer: 4.5}}, items[0].Quess)
	assert.Nil(t, items[0].MetaData)

	fa := items[1].MetaData.FeedbackAnalysis
	assert.Equal(t, "Negative", fa.OverallSentiment)
	assert.Equal(t, []string{"cold food", "slow service"}, fa.NegativeIndicators)
	assert.Equal(t, []string{"Warm plates"}, fa.Recommendations)
	assert.True(t, fa.ComplaintsDetected)
	assert.Equal(t, "row-3", items[1].MetaData.AudioID)
}

func TestLoadWorkbookWithoutCompany(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"Question", "Rating"}, {"Food", 4}})
	_, err := Load(path)
	assert.ErrorContains(t, err, "company")
}

func TestLoadWorkbookBadAnswer(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"Company", "Question", "Answer"}, {"ACME", "Food", "great"}})
	_, err := Load(path)
	assert.ErrorContains(t, err, "row 2")
}

func TestStore(t *testing.T) {
	s := NewStore([]types.FeedbackItem{{CompanyID: "a"}})
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.LoadedAt().IsZero())

	got := s.Items()
	got[0].CompanyID = "mutated"
	assert.Equal(t, "a", s.Items()[0].CompanyID)

	s.Replace(nil)
	assert.Equal(t, 0, s.Len())
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	store := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, store, nil) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))
	assert.Eventually(t, func() bool { return store.Len() == 2 }, 3*time.Second, 20*time.Millisecond)

	// a broken write keeps the last good records
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	time.Sleep(2 * watchDebounce)
	assert.Equal(t, 2, store.Len())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
