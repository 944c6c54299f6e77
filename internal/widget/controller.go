package widget

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"review-insights-go/internal/analytics"
	"review-insights-go/internal/config"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/render"
)

type Controller struct {
	id      string
	cfg     config.WidgetConfig
	host    Host
	src     Source
	log     *logger.Logger
	charts  ChartFactory
	metrics *metrics.Metrics

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	container Container
	sentiment Chart
	ratings   Chart
	snapshot  analytics.Analytics
	loaded    bool
	status    Status
	destroyed bool
	stopTick  chan struct{}
}

type Option func(*Controller)

func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithCharts replaces the SVG chart factory.
func WithCharts(f ChartFactory) Option {
	return func(c *Controller) { c.charts = f }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func New(cfg config.WidgetConfig, host Host, src Source, opts ...Option) *Controller {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = config.DefaultRefreshInterval
	}
	c := &Controller{
		id:     uuid.NewString(),
		cfg:    cfg,
		host:   host,
		src:    src,
		log:    logger.Discard(),
		charts: SVGCharts,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Component("widget")
	c.log = &logger.Logger{Entry: c.log.WithField("container", cfg.ContainerID).WithField("widget_id", c.id)}
	return c
}

// Start attaches to the configured container, renders the skeleton, runs the
// first poll and, when enabled, starts auto refresh. A missing container is
// logged and nothing else happens.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed || c.container != nil {
		c.mu.Unlock()
		return nil
	}
	cont, ok := c.host.Lookup(c.cfg.ContainerID)
	if !ok || cont == nil {
		c.mu.Unlock()
		c.log.WithError(ErrContainerNotFound).Error("widget not started")
		return ErrContainerNotFound
	}
	c.container = cont
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	pollCtx := c.ctx
	c.renderLocked()
	c.mu.Unlock()

	c.log.WithField("api_url", c.cfg.APIURL).Info("widget started")
	_ = c.Poll(pollCtx)
	if c.cfg.AutoRefresh {
		c.StartAutoRefresh()
	}
	return nil
}

// Render mounts the widget skeleton, replacing whatever the container held.
func (c *Controller) Render() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked()
}

func (c *Controller) renderLocked() {
	if c.destroyed || c.container == nil {
		return
	}
	c.container.Mount(Layout{
		ContainerID: c.cfg.ContainerID,
		Theme:       c.cfg.Theme,
		ShowCharts:  c.cfg.ShowCharts,
	})
	c.container.SetStatus(c.status)
	if c.loaded {
		c.container.Show(metricsOf(c.snapshot))
	}
	if c.cfg.ShowCharts {
		c.initChartsLocked()
	}
}

// InitCharts creates both charts, destroying any previous instances first.
func (c *Controller) InitCharts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initChartsLocked()
}

func (c *Controller) initChartsLocked() {
	if c.destroyed || c.container == nil {
		return
	}
	c.destroyChartsLocked()
	c.sentiment = c.charts(SentimentChart, c.container)
	c.ratings = c.charts(RatingsChart, c.container)
	if c.loaded {
		c.updateChartsLocked()
	}
}

func (c *Controller) destroyChartsLocked() {
	for _, ch := range []Chart{c.sentiment, c.ratings} {
		if ch != nil {
			ch.Destroy()
		}
	}
	c.sentiment, c.ratings = nil, nil
}

func (c *Controller) updateChartsLocked() {
	d := ChartData{
		Positive: c.snapshot.Sentiment(analytics.Positive),
		Neutral:  c.snapshot.Sentiment(analytics.Neutral),
		Negative: c.snapshot.Sentiment(analytics.Negative),
		Ratings:  c.snapshot.AverageRatings,
	}
	for _, ch := range []Chart{c.sentiment, c.ratings} {
		if ch != nil {
			ch.Update(d)
		}
	}
}

// Poll fetches once. On failure the status flips to Error and the displayed
// values stay as they were.
func (c *Controller) Poll(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	if c.container == nil {
		c.mu.Unlock()
		return ErrContainerNotFound
	}
	c.setStatusLocked(Loading)
	c.mu.Unlock()

	start := time.Now()
	payload, err := c.src.Fetch(ctx)
	c.metrics.RecordPoll(err == nil, time.Since(start))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	if err != nil {
		c.log.WithError(err).Warn("widget update failed")
		c.setStatusLocked(Error)
		return err
	}

	c.snapshot = analytics.Build(payload)
	c.loaded = true
	c.container.Show(metricsOf(c.snapshot))
	if c.cfg.ShowCharts {
		c.updateChartsLocked()
	}
	c.setStatusLocked(Live)
	c.log.WithField("total", c.snapshot.TotalRecords).Debug("widget updated")
	return nil
}

func (c *Controller) setStatusLocked(s Status) {
	c.status = s
	c.container.SetStatus(s)
	c.metrics.SetStatus(c.cfg.ContainerID, s.String(), allStatuses...)
}

// StartAutoRefresh polls every RefreshInterval until stopped. Each tick polls
// in its own goroutine, so a slow fetch can overlap the next tick.
func (c *Controller) StartAutoRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || c.container == nil || c.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	c.stopTick = stop
	ctx := c.ctx

	go func() {
		t := time.NewTicker(c.cfg.RefreshInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				go c.Poll(ctx)
			}
		}
	}()
}

// StopAutoRefresh prevents future ticks. A poll already in flight completes.
func (c *Controller) StopAutoRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickLocked()
}

func (c *Controller) stopTickLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

// Destroy stops the timer, releases the charts and clears the container.
// Safe to call repeatedly and before Start.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.stopTickLocked()
	if c.cancel != nil {
		c.cancel()
	}
	c.destroyChartsLocked()
	if c.container != nil {
		c.container.Clear()
		c.log.Info("widget destroyed")
	}
}

// Snapshot returns the last successfully fetched analytics and the current
// status.
func (c *Controller) Snapshot() (analytics.Analytics, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.status
}

func (c *Controller) ID() string { return c.id }

func metricsOf(a analytics.Analytics) Metrics {
	total := a.TotalRecords
	return Metrics{
		Total:          total,
		PositivePct:    render.PercentOf(a.Sentiment(analytics.Positive), total),
		NeutralPct:     render.PercentOf(a.Sentiment(analytics.Neutral), total),
		NegativePct:    render.PercentOf(a.Sentiment(analytics.Negative), total),
		PositiveThemes: firstN(a.PositiveThemes, maxThemes),
		NegativeThemes: firstN(a.NegativeThemes, maxThemes),
	}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
