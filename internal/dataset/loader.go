// Package dataset loads raw feedback records from JSON or spreadsheet exports
// and keeps the current set in memory.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"review-insights-go/internal/types"
)

// Load reads a .json array of feedback records or the first sheet of an
// .xlsx export.
func Load(path string) ([]types.FeedbackItem, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".xlsx", ".xlsm":
		return loadWorkbook(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

func loadJSON(path string) ([]types.FeedbackItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	var items []types.FeedbackItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return items, nil
}

type columns struct {
	id, company, email          int
	question, answer            int
	sentiment, tone, language   int
	positive, negative, recs    int
	transcript, complaint, risk int
}

// detectColumns maps header cells to fields by keyword; -1 means absent.
func detectColumns(header []string) columns {
	c := columns{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
	set := func(dst *int, i int) {
		if *dst == -1 {
			*dst = i
		}
	}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "company"):
			set(&c.company, i)
		case strings.Contains(l, "email"):
			set(&c.email, i)
		case strings.Contains(l, "question"):
			set(&c.question, i)
		case strings.Contains(l, "answer") || strings.Contains(l, "rating") || strings.Contains(l, "score"):
			set(&c.answer, i)
		case strings.Contains(l, "sentiment"):
			set(&c.sentiment, i)
		case strings.Contains(l, "tone"):
			set(&c.tone, i)
		case strings.Contains(l, "language") || l == "lang":
			set(&c.language, i)
		case strings.Contains(l, "positive"):
			set(&c.positive, i)
		case strings.Contains(l, "negative"):
			set(&c.negative, i)
		case strings.Contains(l, "recommend"):
			set(&c.recs, i)
		case strings.Contains(l, "transcript"):
			set(&c.transcript, i)
		case strings.Contains(l, "complaint"):
			set(&c.complaint, i)
		case strings.Contains(l, "risk") || strings.Contains(l, "retention"):
			set(&c.risk, i)
		case l == "id" || strings.Contains(l, "feedback id") || strings.Contains(l, "audio id"):
			set(&c.id, i)
		}
	}
	return c
}

func loadWorkbook(path string) ([]types.FeedbackItem, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}
	cols := detectColumns(rows[0])
	if cols.company == -1 {
		return nil, fmt.Errorf("no company column in header")
	}

	var out []types.FeedbackItem
	for i, r := range rows[1:] {
		cell := func(idx int) string {
			if idx >= 0 && idx < len(r) {
				return strings.TrimSpace(r[idx])
			}
			return ""
		}
		item := types.FeedbackItem{
			ID:        cell(cols.id),
			CompanyID: cell(cols.company),
			UserEmail: cell(cols.email),
		}
		if item.CompanyID == "" {
			continue
		}

		if q := cell(cols.question); q != "" {
			ans, err := strconv.ParseFloat(cell(cols.answer), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: answer %q: %w", i+2, cell(cols.answer), err)
			}
			item.Quess = append(item.Quess, types.SurveyAnswer{Question: q, Answer: ans})
		}

		if s := cell(cols.sentiment); s != "" {
			if item.ID == "" {
				item.ID = fmt.Sprintf("row-%d", i+2)
			}
			item.MetaData = &types.AudioMeta{
				AudioID:          item.ID,
				DetectedLanguage: cell(cols.language),
				Transcript:       cell(cols.transcript),
				FeedbackAnalysis: types.FeedbackAnalysis{
					OverallSentiment:   normalizeSentiment(s),
					TonePrimary:        cell(cols.tone),
					PositiveIndicators: splitList(cell(cols.positive)),
					NegativeIndicators: splitList(cell(cols.negative)),
					Recommendations:    splitList(cell(cols.recs)),
					ComplaintsDetected: parseBool(cell(cols.complaint)),
					RetentionRisk:      cell(cols.risk),
				},
			}
		}

		if len(item.Quess) == 0 && item.MetaData == nil {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// splitList reads a `;` separated cell.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSentiment(s string) string {
	switch strings.ToLower(s) {
	case "positive", "pos":
		return "Positive"
	case "negative", "neg":
		return "Negative"
	case "neutral", "neu":
		return "Neutral"
	}
	return s
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
