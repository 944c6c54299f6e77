// Package export writes analytics snapshots as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"review-insights-go/internal/analytics"
	"review-insights-go/internal/render"
)

const (
	SheetSummary = "Summary"
	SheetRatings = "Ratings"
	SheetThemes  = "Themes"
)

// WriteWorkbook writes Summary, Ratings and Themes sheets for one company.
func WriteWorkbook(w io.Writer, a analytics.Analytics, company string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetRatings, SheetThemes} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("style: %w", err)
	}

	total := a.TotalRecords
	pos := render.PercentOf(a.Sentiment(analytics.Positive), total)
	neg := render.PercentOf(a.Sentiment(analytics.Negative), total)
	summary := [][]any{
		{"Metric", "Value"},
		{"Company", company},
		{"Total Reviews", total},
		{"Positive %", pos},
		{"Neutral %", render.PercentOf(a.Sentiment(analytics.Neutral), total)},
		{"Negative %", neg},
		{"Positive Count", a.Sentiment(analytics.Positive)},
		{"Neutral Count", a.Sentiment(analytics.Neutral)},
		{"Negative Count", a.Sentiment(analytics.Negative)},
		{"Customer Satisfaction", render.Satisfaction(a)},
		{"NPS Score", render.NPS(pos, neg)},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	ratings := [][]any{{"Question", "Average Rating"}}
	for _, r := range a.AverageRatings {
		ratings = append(ratings, []any{r.Question, r.Average})
	}
	if err := writeRows(f, SheetRatings, ratings); err != nil {
		return err
	}

	themes := [][]any{{"Type", "Theme"}}
	for _, t := range a.PositiveThemes {
		themes = append(themes, []any{"Positive", t})
	}
	for _, t := range a.NegativeThemes {
		themes = append(themes, []any{"Negative", t})
	}
	for _, t := range a.Recommendations {
		themes = append(themes, []any{"Recommendation", t})
	}
	if err := writeRows(f, SheetThemes, themes); err != nil {
		return err
	}

	for _, name := range []string{SheetSummary, SheetRatings, SheetThemes} {
		if err := f.SetCellStyle(name, "A1", "B1", bold); err != nil {
			return fmt.Errorf("style header %s: %w", name, err)
		}
		if err := f.SetColWidth(name, "A", "B", 28); err != nil {
			return fmt.Errorf("width %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
