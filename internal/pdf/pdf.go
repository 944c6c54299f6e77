// Package pdf prints rendered report HTML to PDF through headless Chrome.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"review-insights-go/internal/logger"
)

const (
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
	mmPerInch  = 25.4
)

const headerTemplate = `<div style="font-size:8px;width:100%;text-align:right;padding-right:15mm;color:#6b7280;">Weekly Analytics Report</div>`

const footerTemplate = `<div style="font-size:8px;width:100%;text-align:center;color:#6b7280;">Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`

var ErrEmptyDocument = errors.New("empty document")

func mm(v float64) float64 { return v / mmPerInch }

// PrintParams are the print settings every report uses: A4 with background
// graphics and 25/22/15/15 mm margins (top, bottom, left, right).
func PrintParams() *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPaperWidth(a4WidthIn).
		WithPaperHeight(a4HeightIn).
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(headerTemplate).
		WithFooterTemplate(footerTemplate).
		WithMarginTop(mm(25)).
		WithMarginBottom(mm(22)).
		WithMarginLeft(mm(15)).
		WithMarginRight(mm(15))
}

type Renderer struct {
	// RemoteURL points at an already running Chrome's DevTools endpoint.
	// Empty launches a local headless browser per render.
	RemoteURL string
	Timeout   time.Duration
	log       *logger.Logger
}

func NewRenderer(remoteURL string, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.Discard()
	}
	return &Renderer{RemoteURL: remoteURL, Timeout: 60 * time.Second, log: log.Component("pdf")}
}

// Render loads html into a blank tab and prints it.
func (r *Renderer) Render(ctx context.Context, html string) ([]byte, error) {
	if html == "" {
		return nil, ErrEmptyDocument
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if r.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, r.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.DisableGPU)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	timeoutCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	start := time.Now()
	var buf []byte
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := PrintParams().Do(ctx)
			if err != nil {
				return err
			}
			buf = data
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	r.log.WithField("bytes", len(buf)).WithField("took", time.Since(start).String()).Info("pdf rendered")
	return buf, nil
}
