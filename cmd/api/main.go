package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"review-insights-go/internal/batch"
	"review-insights-go/internal/config"
	"review-insights-go/internal/dataset"
	"review-insights-go/internal/fetcher"
	"review-insights-go/internal/live"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/server"
	"review-insights-go/internal/widget"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "review-insights-go").Info("starting service")

	cfg, err := config.Load(envOr("INSIGHTS_CONFIG", ""))
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// dataset backing /api/data
	log.WithField("dataset_path", cfg.Dataset.Path).Info("loading dataset")
	store := dataset.NewStore(nil)
	if items, err := dataset.Load(cfg.Dataset.Path); err != nil {
		log.WithError(err).Warn("dataset not loaded; serving empty until it appears")
	} else {
		store.Replace(items)
		log.WithField("records", len(items)).Info("dataset loaded")
	}
	if cfg.Dataset.Watch {
		go func() {
			if err := dataset.Watch(ctx, cfg.Dataset.Path, store, log); err != nil {
				log.WithError(err).Error("dataset watcher stopped")
			}
		}()
	}

	m := metrics.New()
	runner, err := batch.FromConfig(ctx, cfg, log, m)
	if err != nil {
		log.WithError(err).Fatal("report runner setup failed")
	}

	hub := live.NewHub()
	host := live.NewHost(hub)
	host.Register(cfg.Widget.ContainerID)

	srv := server.New(server.Deps{
		Store:  store,
		Config: cfg,
		Log:    log,
		Live:   live.NewHandler(host, hub, log, m),
		Runner: runner,
	})

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	ln, err := net.Listen("tcp", httpSrv.Addr)
	if err != nil {
		log.WithError(err).Fatal("listen failed")
	}
	log.WithField("addr", httpSrv.Addr).Info("listening")

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(ln) }()

	// the widget polls the data endpoint like any embedding page would
	var opts []fetcher.Option
	if cfg.Widget.SendQuery {
		opts = append(opts, fetcher.WithQuery(fetcher.Query{CompanyID: cfg.Widget.CompanyID}))
	}
	ctrl := widget.New(cfg.Widget, host, fetcher.New(cfg.Widget.APIURL, opts...),
		widget.WithLogger(log), widget.WithMetrics(m))
	go func() {
		if err := ctrl.Start(ctx); err != nil {
			log.WithError(err).Warn("widget start failed")
		}
	}()
	log.WithField("url", "http://localhost"+httpSrv.Addr+"/widget/"+cfg.Widget.ContainerID).Info("widget available")

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	ctrl.Destroy()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
