package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"review-insights-go/internal/batch"
	"review-insights-go/internal/config"
	"review-insights-go/internal/dataset"
	"review-insights-go/internal/directory"
	"review-insights-go/internal/live"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/types"
)

func fixture() *dataset.Store {
	return dataset.NewStore([]types.FeedbackItem{
		{CompanyID: "acme", Quess: []types.SurveyAnswer{{Question: "Food", Answer: 4}}},
		{CompanyID: "acme", MetaData: &types.AudioMeta{
			AudioID: "a1",
			FeedbackAnalysis: types.FeedbackAnalysis{
				OverallSentiment:   "Positive",
				PositiveIndicators: []string{"friendly staff"},
			},
		}},
		{CompanyID: "other", Quess: []types.SurveyAnswer{{Question: "Food", Answer: 1}}},
	})
}

func newTestServer(t *testing.T, d Deps) *httptest.Server {
	t.Helper()
	if d.Store == nil {
		d.Store = fixture()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.NewRegistry()
	}
	srv := httptest.NewServer(New(d).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestAPIData(t *testing.T) {
	srv := newTestServer(t, Deps{})

	status, body := getJSON(t, srv.URL+"/api/data?companyId=acme")
	require.Equal(t, http.StatusOK, status)
	overall, ok := body["overall_stats"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, overall["total_feedback"])

	status, body = getJSON(t, srv.URL+"/api/data")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["overall_stats"].(map[string]any)["total_feedback"])

	status, body = getJSON(t, srv.URL+"/api/data?companyId=nobody")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "No data found", body["error"])
}

func TestAPIDataFollowsStore(t *testing.T) {
	store := dataset.NewStore(nil)
	srv := newTestServer(t, Deps{Store: store})

	status, _ := getJSON(t, srv.URL+"/api/data")
	assert.Equal(t, http.StatusInternalServerError, status)

	store.Replace(fixture().Items())
	status, _ = getJSON(t, srv.URL+"/api/data")
	assert.Equal(t, http.StatusOK, status)
}

func TestReportHTML(t *testing.T) {
	cfg := config.Default()
	cfg.Report.CompanyName = "Acme Bistro"
	srv := newTestServer(t, Deps{Config: cfg})

	resp, err := http.Get(srv.URL + "/reports/html?companyId=acme")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "Acme Bistro")
	assert.Contains(t, string(body), "<svg")

	resp2, err := http.Get(srv.URL + "/reports/html?companyId=nobody")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestReportHTMLUsesDirectory(t *testing.T) {
	srv := newTestServer(t, Deps{Directory: directory.NewStatic([]directory.Company{
		{ID: "acme", Name: "Acme Bistro", City: "Lisbon", Industry: "Restaurant"},
	})})

	resp, err := http.Get(srv.URL + "/reports/html?companyId=acme")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Acme Bistro")
	assert.Contains(t, string(body), "Lisbon")

	resp2, err := http.Get(srv.URL + "/reports/workbook?companyId=acme")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Contains(t, resp2.Header.Get("Content-Disposition"), "Acme Bistro_report.xlsx")
}

func TestReportWorkbook(t *testing.T) {
	srv := newTestServer(t, Deps{})

	resp, err := http.Get(srv.URL + "/reports/workbook?companyId=acme")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "acme_report.xlsx")

	data, _ := io.ReadAll(resp.Body)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	runner := &batch.Runner{
		Report:  config.ReportConfig{OutputDir: dir},
		Metrics: m,
		Now:     func() time.Time { return time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC) },
	}
	srv := newTestServer(t, Deps{Runner: runner, Gatherer: reg})

	post := func(body string) (int, map[string]any) {
		resp, err := http.Post(srv.URL+"/reports/generate", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	status, out := post(`{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required parameters", out["error"])

	status, _ = post(`{"companyId":"nobody"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, out = post(`{"companyId":"acme","from":"2025-02-26","to":"2025-03-05"}`)
	require.Equal(t, http.StatusOK, status)
	files := out["files"].(map[string]any)
	htmlURL, ok := files["htmlUrl"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(htmlURL, "/reports/files/Company_Weekly_Analytics_acme_20250305_090000.html"))

	_, err := os.Stat(filepath.Join(dir, "Company_Weekly_Analytics_acme_20250305_090000.html"))
	require.NoError(t, err)

	resp, err := http.Get(htmlURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsTotal.WithLabelValues("error")))
}

func TestGenerateDisabled(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Post(srv.URL+"/reports/generate", "application/json", strings.NewReader(`{"companyId":"acme"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestReportFileStaysInOutputDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.html"), []byte("<p>hi</p>"), 0o644))
	cfg := config.Default()
	cfg.Report.OutputDir = dir
	srv := newTestServer(t, Deps{Config: cfg})

	resp, err := http.Get(srv.URL + "/reports/files/r.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "<p>hi</p>", string(body))

	resp, err = http.Get(srv.URL + "/reports/files/..%2Fsecret")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	m.RecordReport("ok")
	srv := newTestServer(t, Deps{Gatherer: reg})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `instareview_reports_total{outcome="ok"} 1`)
}

func TestLiveRoutesMounted(t *testing.T) {
	hub := live.NewHub()
	host := live.NewHost(hub)
	host.Register("box")
	srv := newTestServer(t, Deps{Live: live.NewHandler(host, hub, nil, nil)})

	resp, err := http.Get(srv.URL + "/widget/box")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/widget/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
