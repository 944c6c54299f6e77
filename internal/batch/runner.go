// Package batch generates weekly reports for many companies at once.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"review-insights-go/internal/analytics"
	"review-insights-go/internal/config"
	"review-insights-go/internal/directory"
	"review-insights-go/internal/export"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/notify"
	"review-insights-go/internal/publish"
	"review-insights-go/internal/render"
)

// Fetcher returns the payload for one company.
type Fetcher interface {
	Fetch(ctx context.Context) (analytics.Payload, error)
}

type SourceFor func(companyID string) Fetcher

// PDFRenderer prints report HTML.
type PDFRenderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

type Runner struct {
	Sources   SourceFor
	PDF       PDFRenderer      // nil skips PDF output
	Publisher publish.Uploader // nil skips upload
	Report    config.ReportConfig
	Prefix    string
	// Directory supplies per-company name, city, industry and recipient.
	// Report settings fill whatever it lacks.
	Directory directory.Directory
	// Mailer sends the download link of each published report to the
	// company's email. It needs a Publisher that is also a publish.Presigner.
	Mailer     notify.Sender
	LinkExpiry time.Duration
	// Concurrency caps parallel companies; 0 or less means one at a time.
	Concurrency int
	Log         *logger.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

type Result struct {
	CompanyID string
	Records   int
	Files     []string
	Published []string
	// Emailed is set once the report link was handed to the mail server.
	// EmailErr does not fail the report.
	Emailed  bool
	EmailErr error
	Err      error
}

func (r Result) emailAttempted() bool { return r.Emailed || r.EmailErr != nil }

type Summary struct {
	Total     int
	Completed int
	Emailed   int
	Results   []Result
}

func (s Summary) Failed() int { return s.Total - s.Completed }

func (s Summary) String() string {
	return fmt.Sprintf("Completed: %d/%d", s.Completed, s.Total)
}

// Run processes every company. A failing company is logged and counted; it
// does not stop the others.
func (r *Runner) Run(ctx context.Context, companies []string) Summary {
	log := r.logger()
	results := make([]Result, len(companies))

	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	completed := 0
	for i, id := range companies {
		g.Go(func() error {
			res := r.RunOne(gctx, id)
			results[i] = res
			if res.Err != nil {
				log.WithError(res.Err).WithField("company_id", id).Error("report failed")
				r.Metrics.RecordReport("error")
				return nil
			}
			mu.Lock()
			completed++
			mu.Unlock()
			r.Metrics.RecordReport("ok")
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Total: len(companies), Completed: completed, Results: results}
	log.WithField("completed", sum.Completed).WithField("total", sum.Total).Info(sum.String())

	attempted := 0
	for _, res := range results {
		if !res.emailAttempted() {
			continue
		}
		attempted++
		if res.Emailed {
			sum.Emailed++
		}
	}
	if attempted > 0 {
		log.WithField("sent", sum.Emailed).WithField("attempted", attempted).
			Infof("Email sending completed: %d/%d", sum.Emailed, attempted)
	}
	return sum
}

// Companies lists every company id in the directory, for runs that cover
// all companies.
func (r *Runner) Companies(ctx context.Context) ([]string, error) {
	if r.Directory == nil {
		return nil, errors.New("no company directory configured")
	}
	return directory.IDs(ctx, r.Directory)
}

func (r *Runner) company(ctx context.Context, companyID string) directory.Company {
	c := directory.Company{ID: companyID}
	if r.Directory != nil {
		found, err := r.Directory.Get(ctx, companyID)
		if err == nil {
			c = found
		} else if !errors.Is(err, directory.ErrNotFound) {
			r.logger().WithError(err).WithField("company_id", companyID).Warn("company lookup failed")
		}
	}
	if c.Name == "" {
		c.Name = r.Report.CompanyName
	}
	if c.City == "" {
		c.City = r.Report.City
	}
	if c.Industry == "" {
		c.Industry = r.Report.Industry
	}
	return c
}

// RunOne fetches, renders, writes and optionally publishes one company's
// report.
func (r *Runner) RunOne(ctx context.Context, companyID string) Result {
	res := Result{CompanyID: companyID}
	log := r.logger().WithField("company_id", companyID)
	if r.Sources == nil {
		res.Err = fmt.Errorf("no payload source configured")
		return res
	}

	payload, err := r.Sources(companyID).Fetch(ctx)
	if err != nil {
		res.Err = fmt.Errorf("fetch: %w", err)
		return res
	}
	a := analytics.Build(payload)
	res.Records = a.TotalRecords

	now := r.now()
	company := r.company(ctx, companyID)
	name := company.DisplayName()
	html, err := render.BuildHTMLReport(a, name, render.ReportOptions{
		City:        company.City,
		Industry:    company.Industry,
		PeriodStart: now.AddDate(0, 0, -7),
		PeriodEnd:   now,
		GeneratedAt: now,
	})
	if err != nil {
		res.Err = fmt.Errorf("render: %w", err)
		return res
	}

	outputs := map[string][]byte{"html": []byte(html)}
	if r.PDF != nil {
		data, err := r.PDF.Render(ctx, html)
		if err != nil {
			res.Err = fmt.Errorf("pdf: %w", err)
			return res
		}
		outputs["pdf"] = data
	}
	if r.Report.Workbook {
		var buf bytes.Buffer
		if err := export.WriteWorkbook(&buf, a, name); err != nil {
			res.Err = fmt.Errorf("workbook: %w", err)
			return res
		}
		outputs["xlsx"] = buf.Bytes()
	}

	dir := r.Report.OutputDir
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		res.Err = fmt.Errorf("output dir: %w", err)
		return res
	}
	keys := map[string]string{}
	for _, ext := range []string{"html", "pdf", "xlsx"} {
		data, ok := outputs[ext]
		if !ok {
			continue
		}
		path := filepath.Join(dir, FileName(companyID, now, ext))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			res.Err = fmt.Errorf("write %s: %w", ext, err)
			return res
		}
		res.Files = append(res.Files, path)

		if r.Publisher == nil {
			continue
		}
		key := publish.Key(r.Prefix, companyID, now, ext)
		loc, err := r.Publisher.Upload(ctx, key, data, publish.ContentType(ext))
		if err != nil {
			res.Err = fmt.Errorf("publish %s: %w", ext, err)
			return res
		}
		res.Published = append(res.Published, loc)
		keys[ext] = key
		log.WithField("location", loc).Info("report published")
	}
	log.WithField("files", len(res.Files)).Info("report generated")

	if r.Mailer != nil && company.Email != "" && len(keys) > 0 {
		res.Emailed, res.EmailErr = r.sendLink(ctx, company, keys, now)
		if res.EmailErr != nil {
			log.WithError(res.EmailErr).WithField("to", company.Email).Error("report email failed")
			r.Metrics.RecordEmail("error")
		} else {
			log.WithField("to", company.Email).Info("report email sent")
			r.Metrics.RecordEmail("sent")
		}
	}
	return res
}

// sendLink emails a signed link to the PDF, or to the HTML when no PDF was
// published.
func (r *Runner) sendLink(ctx context.Context, company directory.Company, keys map[string]string, now time.Time) (bool, error) {
	signer, ok := r.Publisher.(publish.Presigner)
	if !ok {
		return false, errors.New("publisher cannot sign download links")
	}
	key, ok := keys["pdf"]
	if !ok {
		key = keys["html"]
	}
	link, err := signer.Presign(ctx, key, r.LinkExpiry)
	if err != nil {
		return false, err
	}
	msg, err := notify.ReportMessage(company, link, now)
	if err != nil {
		return false, err
	}
	if err := r.Mailer.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("send to %s: %w", company.Email, err)
	}
	return true, nil
}

// FileName is the local report name, e.g.
// Company_Weekly_Analytics_ACME_20250305_090000.pdf.
func FileName(companyID string, t time.Time, ext string) string {
	return fmt.Sprintf("Company_Weekly_Analytics_%s_%s.%s", companyID, t.Format("20060102_150405"), ext)
}

func (r *Runner) logger() *logger.Logger {
	if r.Log == nil {
		return logger.Discard().Component("batch")
	}
	return r.Log.Component("batch")
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
