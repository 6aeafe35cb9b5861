package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shopwire/shopwire-backend/pkg/logger"
	"github.com/shopwire/shopwire-backend/pkg/metrics"
)

const feedRetentionDays = 7

// txRunner runs a function inside one database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type feedRetentionRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type FeedRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository feedRetentionRepo
	Retention  int
	Metrics    *metrics.CronJobMetrics
}

// NewFeedRetentionJob builds the sweep that purges feed events older than
// the retention window. Sequences of purged rows stay burned; the identity
// column never reissues them.
func NewFeedRetentionJob(params FeedRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("feed repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = feedRetentionDays
	}
	return &feedRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

type feedRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      feedRetentionRepo
	retention int
	metrics   *metrics.CronJobMetrics
	now       func() time.Time
}

func (j *feedRetentionJob) Name() string { return "feed-retention" }

func (j *feedRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteOlderThan(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("feed retention sweep: %w", err)
	}
	j.metrics.AddSweptEvents(deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "feed retention sweep complete")
	return nil
}
