// Package server exposes the analytics payload, rendered reports and the
// live widget over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"review-insights-go/internal/aggregator"
	"review-insights-go/internal/analytics"
	"review-insights-go/internal/batch"
	"review-insights-go/internal/config"
	"review-insights-go/internal/dataset"
	"review-insights-go/internal/directory"
	"review-insights-go/internal/export"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/render"
)

type Deps struct {
	Store  *dataset.Store
	Config config.Config
	Log    *logger.Logger
	// Live serves /widget/ and /ws when set.
	Live http.Handler
	// Runner generates report files for POST /reports/generate. Its
	// Sources are replaced with the dataset store.
	Runner *batch.Runner
	// Directory names companies in rendered reports; the Runner's is used
	// when nil.
	Directory directory.Directory
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	store  *dataset.Store
	cfg    config.Config
	log    *logger.Logger
	live   http.Handler
	runner *batch.Runner
	dir    directory.Directory
	gather prometheus.Gatherer
}

func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{
		store:  d.Store,
		cfg:    d.Config,
		log:    log.Component("server"),
		live:   d.Live,
		runner: d.Runner,
		dir:    d.Directory,
		gather: d.Gatherer,
	}
	if s.dir == nil && s.runner != nil {
		s.dir = s.runner.Directory
	}
	if s.gather == nil {
		s.gather = prometheus.DefaultGatherer
	}
	if s.store == nil {
		s.store = dataset.NewStore(nil)
	}
	if s.runner != nil {
		s.runner.Sources = s.sourceFor
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /api/data", s.apiData)
	mux.HandleFunc("GET /reports/html", s.reportHTML)
	mux.HandleFunc("GET /reports/workbook", s.reportWorkbook)
	mux.HandleFunc("POST /reports/generate", s.generate)
	mux.HandleFunc("GET /reports/files/{name}", s.reportFile)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	if s.live != nil {
		mux.Handle("GET /widget/{id}", s.live)
		mux.Handle("GET /ws", s.live)
	}
	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets the websocket upgrader reach the hijacker.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithRequest(r).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

func (s *Server) payload(companyID string) (analytics.Payload, int, error) {
	return aggregator.PayloadFor(s.store.Items(), companyID)
}

type storeSource struct {
	s         *Server
	companyID string
}

func (src storeSource) Fetch(context.Context) (analytics.Payload, error) {
	p, _, err := src.s.payload(src.companyID)
	return p, err
}

func (s *Server) sourceFor(companyID string) batch.Fetcher {
	return storeSource{s: s, companyID: companyID}
}

func (s *Server) apiData(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("companyId")
	p, n, err := s.payload(companyID)
	if err != nil {
		s.log.WithRequest(r).WithError(err).WithField("company_id", companyID).Warn("no payload")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.WithRequest(r).WithField("records", n).Debug("payload served")
	writeJSON(w, http.StatusOK, p)
}

// company resolves display details from the directory, then report config.
func (s *Server) company(r *http.Request, companyID string) directory.Company {
	c := directory.Company{ID: companyID}
	if s.dir != nil && companyID != "" {
		if found, err := s.dir.Get(r.Context(), companyID); err == nil {
			c = found
		}
	}
	if c.Name == "" {
		c.Name = s.cfg.Report.CompanyName
	}
	if c.Name == "" && companyID == "" {
		c.Name = "All Companies"
	}
	if c.City == "" {
		c.City = s.cfg.Report.City
	}
	if c.Industry == "" {
		c.Industry = s.cfg.Report.Industry
	}
	return c
}

func (s *Server) analyticsFor(w http.ResponseWriter, r *http.Request) (analytics.Analytics, directory.Company, bool) {
	companyID := r.URL.Query().Get("companyId")
	p, _, err := s.payload(companyID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return analytics.Analytics{}, directory.Company{}, false
	}
	return analytics.Build(p), s.company(r, companyID), true
}

func (s *Server) reportHTML(w http.ResponseWriter, r *http.Request) {
	a, c, ok := s.analyticsFor(w, r)
	if !ok {
		return
	}
	html, err := render.BuildHTMLReport(a, c.DisplayName(), render.ReportOptions{
		City:     c.City,
		Industry: c.Industry,
	})
	if err != nil {
		s.log.WithRequest(r).WithError(err).Error("report render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (s *Server) reportWorkbook(w http.ResponseWriter, r *http.Request) {
	a, c, ok := s.analyticsFor(w, r)
	if !ok {
		return
	}
	name := c.DisplayName()
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, a, name); err != nil {
		s.log.WithRequest(r).WithError(err).Error("workbook export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_report.xlsx"`, filepath.Base(name)))
	_, _ = w.Write(buf.Bytes())
}

type generateRequest struct {
	CompanyID string `json:"companyId"`
	From      string `json:"from"`
	To        string `json:"to"`
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "report generation disabled"})
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CompanyID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required parameters"})
		return
	}
	res := s.runner.RunOne(r.Context(), req.CompanyID)
	if res.Err != nil {
		s.log.WithRequest(r).WithError(res.Err).WithField("company_id", req.CompanyID).Error("report generation failed")
		s.runner.Metrics.RecordReport("error")
		status := http.StatusInternalServerError
		if errors.Is(res.Err, aggregator.ErrNoData) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": res.Err.Error()})
		return
	}
	s.runner.Metrics.RecordReport("ok")

	base := "http://" + r.Host
	if r.TLS != nil {
		base = "https://" + r.Host
	}
	urls := map[string]string{}
	for _, f := range res.Files {
		ext := filepath.Ext(f)
		urls[ext[1:]+"Url"] = base + "/reports/files/" + filepath.Base(f)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"companyId": req.CompanyID,
		"records":   res.Records,
		"files":     urls,
		"published": res.Published,
	})
}

func (s *Server) reportFile(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(r.PathValue("name"))
	if name == "." || name == "/" || name == "" {
		http.NotFound(w, r)
		return
	}
	dir := s.cfg.Report.OutputDir
	if s.runner != nil && s.runner.Report.OutputDir != "" {
		dir = s.runner.Report.OutputDir
	}
	http.ServeFile(w, r, filepath.Join(dir, name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
