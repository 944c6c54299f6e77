package batch

import (
	"context"
	"fmt"
	"os"

	"review-insights-go/internal/config"
	"review-insights-go/internal/directory"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/notify"
	"review-insights-go/internal/pdf"
	"review-insights-go/internal/publish"
)

// FromConfig wires a Runner from cfg. PDF output needs report.pdf; CHROME_URL
// selects a remote browser instead of a local one. Uploads need
// publish.bucket, and emails need both email.host and a bucket to link to.
// directory.path names the companies file. Sources is left for the caller.
func FromConfig(ctx context.Context, cfg config.Config, log *logger.Logger, m *metrics.Metrics) (*Runner, error) {
	r := &Runner{
		Report:      cfg.Report,
		Prefix:      cfg.Publish.Prefix,
		LinkExpiry:  cfg.Email.LinkExpiry,
		Concurrency: cfg.Schedule.Concurrency,
		Log:         log,
		Metrics:     m,
	}
	if cfg.Report.PDF {
		r.PDF = pdf.NewRenderer(os.Getenv("CHROME_URL"), log)
	}
	if cfg.Publish.Bucket != "" {
		p, err := publish.NewS3Publisher(ctx, cfg.Publish)
		if err != nil {
			return nil, fmt.Errorf("publisher: %w", err)
		}
		r.Publisher = p
	}
	if cfg.Directory.Path != "" {
		d, err := directory.LoadFile(cfg.Directory.Path)
		if err != nil {
			return nil, fmt.Errorf("directory: %w", err)
		}
		r.Directory = d
	}
	if cfg.Email.Host != "" {
		if r.Publisher == nil {
			r.logger().WithField("smtp_host", cfg.Email.Host).Warn("email configured without a publish bucket; no links to send")
		}
		r.Mailer = notify.NewSMTPSender(cfg.Email)
	}
	return r, nil
}
