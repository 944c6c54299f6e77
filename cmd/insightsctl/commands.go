package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"review-insights-go/internal/aggregator"
	"review-insights-go/internal/analytics"
	"review-insights-go/internal/batch"
	"review-insights-go/internal/config"
	"review-insights-go/internal/dataset"
	"review-insights-go/internal/directory"
	"review-insights-go/internal/fetcher"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/terminal"
	"review-insights-go/internal/types"
	"review-insights-go/internal/widget"
)

type localSource struct {
	items     []types.FeedbackItem
	companyID string
}

func (s localSource) Fetch(context.Context) (analytics.Payload, error) {
	p, _, err := aggregator.PayloadFor(s.items, s.companyID)
	return p, err
}

// sourcesFor reads payloads from a local dataset file when datasetPath is
// set, otherwise from the configured API. The loaded items are returned for
// the local case.
func sourcesFor(cfg config.Config, datasetPath string) (batch.SourceFor, []types.FeedbackItem, error) {
	if datasetPath != "" {
		items, err := dataset.Load(datasetPath)
		if err != nil {
			return nil, nil, err
		}
		return func(id string) batch.Fetcher { return localSource{items: items, companyID: id} }, items, nil
	}
	return func(id string) batch.Fetcher {
		return fetcher.New(cfg.Widget.APIURL, fetcher.WithQuery(fetcher.Query{CompanyID: id}))
	}, nil, nil
}

type reportFlags struct {
	company       string
	dataset       string
	companiesFile string
	outputDir     string
	pdf           bool
	xlsx          bool
	publish       bool
	email         bool
}

func (f reportFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if f.outputDir != "" {
		cfg.Report.OutputDir = f.outputDir
	}
	if cmd.Flags().Changed("pdf") {
		cfg.Report.PDF = f.pdf
	}
	if cmd.Flags().Changed("xlsx") {
		cfg.Report.Workbook = f.xlsx
	}
	if f.companiesFile != "" {
		cfg.Directory.Path = f.companiesFile
	}
	if !f.publish {
		cfg.Publish.Bucket = ""
	}
	if !f.publish || !f.email {
		cfg.Email.Host = ""
	}
}

func addReportFlags(cmd *cobra.Command, f *reportFlags) {
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "Read feedback from a local .json or .xlsx file instead of the API")
	cmd.Flags().StringVarP(&f.outputDir, "out", "o", "", "Directory for generated files")
	cmd.Flags().BoolVar(&f.pdf, "pdf", false, "Print a PDF with headless Chrome")
	cmd.Flags().BoolVar(&f.xlsx, "xlsx", false, "Also export an Excel workbook")
	cmd.Flags().StringVar(&f.companiesFile, "companies-file", "", "Company directory (.json or .yaml) with names, locations and recipients")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "Upload files to the configured S3 bucket")
	cmd.Flags().BoolVar(&f.email, "email", false, "Email a signed download link to each company (needs --publish)")
}

func buildReportCmd(opts *rootOptions) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the weekly analytics report for one company",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			company := f.company
			if company == "" {
				company = cfg.Widget.CompanyID
			}

			log := logger.New()
			runner, err := batch.FromConfig(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			if runner.Sources, _, err = sourcesFor(cfg, f.dataset); err != nil {
				return err
			}
			res := runner.RunOne(cmd.Context(), company)
			if res.Err != nil {
				return fmt.Errorf("report for %s: %w", company, res.Err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Report generated for %s (%d records)\n", company, res.Records)
			for _, p := range res.Files {
				fmt.Fprintf(out, "  %s\n", p)
			}
			for _, loc := range res.Published {
				fmt.Fprintf(out, "  %s\n", loc)
			}
			if res.Emailed {
				fmt.Fprintln(out, "Download link emailed")
			}
			if res.EmailErr != nil {
				fmt.Fprintf(out, "Email not sent: %v\n", res.EmailErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.company, "company", "", "Company id (defaults to widget.company_id)")
	addReportFlags(cmd, &f)
	return cmd
}

func buildScheduleCmd(opts *rootOptions) *cobra.Command {
	var (
		f         reportFlags
		companies []string
		spec      string
		once      bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate reports for many companies on a cron schedule",
		Long: `Generate reports for every company in --companies (or schedule.companies)
whenever the cron expression fires. Without either, every company in the
company directory is reported on; with --dataset and no directory, every
company in the dataset. Failures are logged and counted; the remaining
companies still run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if len(companies) == 0 {
				companies = cfg.Schedule.Companies
			}
			if spec == "" {
				spec = cfg.Schedule.Cron
			}

			log := logger.New()
			runner, err := batch.FromConfig(cmd.Context(), cfg, log, metrics.New())
			if err != nil {
				return err
			}
			var items []types.FeedbackItem
			if runner.Sources, items, err = sourcesFor(cfg, f.dataset); err != nil {
				return err
			}
			if len(companies) == 0 && runner.Directory == nil && items != nil {
				runner.Directory = directory.FromFeedback(items)
			}
			if len(companies) == 0 && runner.Directory == nil {
				return fmt.Errorf("no companies to report on")
			}
			run := func(ctx context.Context) {
				ids := companies
				if len(ids) == 0 {
					all, err := runner.Companies(ctx)
					if err != nil {
						log.WithError(err).Error("list companies")
						return
					}
					ids = all
				}
				sum := runner.Run(ctx, ids)
				fmt.Fprintln(cmd.OutOrStdout(), sum)
			}
			if once {
				run(cmd.Context())
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return batch.Schedule(ctx, spec, log, run)
		},
	}
	cmd.Flags().StringSliceVar(&companies, "companies", nil, "Comma separated company ids")
	cmd.Flags().StringVar(&spec, "cron", "", "Cron expression (defaults to schedule.cron)")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single batch now and exit")
	addReportFlags(cmd, &f)
	return cmd
}

func buildWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		attrs   string
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the analytics widget in the terminal",
		Long: `Poll the analytics API and print the widget's status and metrics
until interrupted. --attrs takes embedding attributes, for example
--attrs 'data-company-id=ACME data-refresh-interval=30000'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			wc := cfg.Widget
			if strings.TrimSpace(attrs) != "" {
				a := config.ParseAttributes(attrs)
				wc = config.FromAttributes(a)
				if !a.HasContainer() {
					wc.ContainerID = cfg.Widget.ContainerID
				}
				if a[config.AttrAPIURL] == "" {
					wc.APIURL = cfg.Widget.APIURL
				}
				if a[config.AttrCompanyID] == "" {
					wc.CompanyID = cfg.Widget.CompanyID
				}
			}
			if err := wc.Validate(); err != nil {
				return err
			}

			var fopts []fetcher.Option
			if wc.SendQuery {
				fopts = append(fopts, fetcher.WithQuery(fetcher.Query{CompanyID: wc.CompanyID}))
			}
			box := terminal.New(wc.ContainerID, cmd.OutOrStdout(), noColor)
			ctrl := widget.New(wc, box, fetcher.New(wc.APIURL, fopts...), widget.WithLogger(logger.New()))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := ctrl.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			ctrl.Destroy()
			return nil
		},
	}
	cmd.Flags().StringVar(&attrs, "attrs", "", "Widget embedding attributes")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
	return cmd
}
