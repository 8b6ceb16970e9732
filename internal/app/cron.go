package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/core/internal/config"
	"github.com/rankforge/core/internal/modules/discovery/keyword"
	"github.com/rankforge/core/internal/modules/storage/archive"
	appconfigs "github.com/rankforge/core/internal/modules/system/configs"
	pkgcron "github.com/rankforge/core/internal/pkg/cron"
	"github.com/rankforge/core/internal/pkg/prettylog"
	pkgredis "github.com/rankforge/core/internal/pkg/redis"
	"github.com/rankforge/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// finishedTaskRetention is how long completed/failed/cancelled queue tasks
// stay visible for polling before the cleanup job removes them.
const finishedTaskRetention = 24 * time.Hour

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, runtimeCfg *config.AppConfig, rc *pkgredis.Client, logger *zap.Logger) {
	cfgSvc := appconfigs.NewService(db)
	keywordSvc := keyword.NewService(db, cfgSvc, logger)
	archiveSvc := archive.NewService(db, cfgSvc, runtimeCfg.ArchiveDir(), logger)
	taskSvc := taskqueue.NewService(rc)
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "cleanup_finished_tasks",
		Description: "Remove finished queue tasks older than the retention window",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-finishedTaskRetention).UnixMilli()
			if err := taskSvc.DeleteCompleted(ctx, cutoff); err != nil {
				cronLogger.Warn("task cleanup failed", zap.Error(err))
				return err
			}
			cronLogger.Info("finished queue tasks cleaned up", prettylog.SuccessField())
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "prune_stale_keyword_sets",
		Description: "Delete keyword sets past retention with no selected candidates",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cfg, err := cfgSvc.Get()
			if err != nil {
				return err
			}
			pruned, err := keywordSvc.PruneStale(cfg.Discovery.StaleSetRetentionDays)
			if err != nil {
				cronLogger.Warn("keyword set pruning failed", zap.Error(err))
				return err
			}
			cronLogger.Info(fmt.Sprintf("keyword set pruning done, %d sets removed", pruned), prettylog.SuccessField())
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "auto_archive",
		Description: "Export the database archive and upload it to S3",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			if err := archiveSvc.RunDaily(ctx); err != nil {
				cronLogger.Warn("auto archive failed", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
