package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/orgball2608/storyreel/internal/viewer"
	"github.com/orgball2608/storyreel/pkg/config"
	"github.com/orgball2608/storyreel/pkg/logger"
	"go.uber.org/fx"
)

const sessionSweepInterval = time.Minute

// NewScheduler registers the periodic listing refresh, the daily cleanup of
// expired stories and the idle session sweep. The scheduler is not started.
func NewScheduler(ctx context.Context, svc *Service, mgr *viewer.Manager, cfg *config.Config, log logger.Logger, options ...gocron.SchedulerOption) (gocron.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		loc = time.Local
		log.Warn("Failed to load feed timezone, using local timezone", "timezone", cfg.Feed.Timezone, "error", err)
	}

	scheduler, err := gocron.NewScheduler(append([]gocron.SchedulerOption{gocron.WithLocation(loc)}, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Feed.RefreshInterval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			taskCtx, cancel := context.WithTimeout(ctx, cfg.Feed.RefreshInterval)
			defer cancel()

			if err := svc.Refresh(taskCtx); err != nil {
				log.Error("Scheduled story refresh failed", "error", err)
			}
		}),
		gocron.WithName("refresh-stories"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule story refresh: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(gocron.NewAtTime(cfg.Feed.CleanupHour, 0, 0)),
		),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			log.Info("Starting scheduled story cleanup job")

			cleanupCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()

			rowsDeleted, err := svc.Cleanup(cleanupCtx)
			if err != nil {
				log.Error("Failed to clean up expired stories", "error", err)
				return
			}
			log.Info("Story cleanup completed successfully", "rows_deleted", rowsDeleted)
		}),
		gocron.WithName("cleanup-stories"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule story cleanup: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(sessionSweepInterval),
		gocron.NewTask(func() {
			mgr.EvictIdle(cfg.Viewer.SessionTTL)
		}),
		gocron.WithName("evict-idle-sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	return scheduler, nil
}

type RunOpts struct {
	fx.In
	LC fx.Lifecycle

	Service *Service
	Viewer  *viewer.Manager
	Config  *config.Config
	Logger  logger.Logger
}

// Run loads the first listing on start and keeps it fresh until stop.
func Run(opts RunOpts) error {
	ctx, cancel := context.WithCancel(context.Background())

	scheduler, err := NewScheduler(ctx, opts.Service, opts.Viewer, opts.Config, opts.Logger)
	if err != nil {
		cancel()
		return err
	}

	opts.LC.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if err := opts.Service.Refresh(startCtx); err != nil {
				opts.Logger.Error("Initial story load failed, will retry on schedule", "error", err)
			}
			scheduler.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			opts.Logger.Info("Stopping feed scheduler")
			return scheduler.Shutdown()
		},
	})
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(Run),
)
