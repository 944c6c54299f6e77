package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"review-insights-go/internal/config"
	"review-insights-go/internal/logger"
)

// Schedule runs fn on every activation of spec until ctx is done, then
// waits for a running fn to return.
func Schedule(ctx context.Context, spec string, log *logger.Logger, fn func(context.Context)) error {
	if log == nil {
		log = logger.Discard()
	}
	c := cron.New(
		cron.WithLogger(cron.PrintfLogger(log)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)
	sched, err := config.ParseCron(spec)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.Schedule(sched, cron.FuncJob(func() { fn(ctx) }))
	c.Start()
	log.WithField("cron", spec).WithField("next", sched.Next(time.Now()).Format(time.RFC3339)).Info("report schedule started")

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
