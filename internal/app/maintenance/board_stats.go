package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/pkg/logger"
	"github.com/charlesng35/sprintboard/pkg/metrics"
)

const defaultStatsSpec = "@every 5m"

// BoardStats is a snapshot of sprint and backlog counters across all workspaces.
type BoardStats struct {
	ActiveSprints  int64
	OverdueSprints int64
	BacklogTasks   int64
	Overdue        []models.Sprint
}

// StatsJob periodically refreshes the board gauges and reports active sprints
// that ran past their end date.
type StatsJob struct {
	db       *gorm.DB
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string
}

// Option customises the StatsJob.
type Option func(*StatsJob)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(job *StatsJob) {
		if c != nil {
			job.cron = c
		}
	}
}

// WithNow overrides the clock used to decide whether a sprint is overdue.
func WithNow(now func() time.Time) Option {
	return func(job *StatsJob) {
		if now != nil {
			job.now = now
		}
	}
}

// WithSchedule overrides the cron specification.
func WithSchedule(spec string) Option {
	return func(job *StatsJob) {
		if spec != "" {
			job.schedule = spec
		}
	}
}

// NewStatsJob constructs a StatsJob. A nil database disables scheduling.
func NewStatsJob(db *gorm.DB, opts ...Option) *StatsJob {
	job := &StatsJob{
		db:       db,
		now:      time.Now,
		schedule: defaultStatsSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(job)
	}

	if job.cron == nil {
		job.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return job
}

// Start registers the refresh with the scheduler and launches it.
func (j *StatsJob) Start() error {
	if j.db == nil {
		return nil
	}

	if _, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.log.Warn("board stats refresh failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule board stats: %w", err)
	}

	j.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for a running refresh to complete.
func (j *StatsJob) Stop() context.Context {
	if j.cron == nil {
		return context.Background()
	}
	return j.cron.Stop()
}

// RunOnce collects the counters, publishes them as gauges and logs every overdue
// sprint. Counters that fail to load are reported together; the others are still published.
func (j *StatsJob) RunOnce(ctx context.Context) (BoardStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	stats, err := CollectStats(ctx, j.db, j.now())

	metrics.ActiveSprints.Set(float64(stats.ActiveSprints))
	metrics.OverdueSprints.Set(float64(stats.OverdueSprints))
	metrics.BacklogTasks.Set(float64(stats.BacklogTasks))

	for _, sprint := range stats.Overdue {
		j.log.Warn("active sprint is past its end date",
			zap.String("sprint_id", sprint.ID),
			zap.String("sprint", sprint.Name),
			zap.String("workspace", sprint.WorkspaceKey),
			zap.Time("end_date", time.Time(sprint.EndDate)),
		)
	}

	return stats, err
}

// CollectStats counts active sprints, overdue active sprints and backlog tasks.
func CollectStats(ctx context.Context, db *gorm.DB, now time.Time) (BoardStats, error) {
	if db == nil {
		return BoardStats{}, errors.New("board stats: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		stats BoardStats
		errs  error
	)

	if err := db.WithContext(ctx).Model(&models.Sprint{}).
		Where("is_active = ?", true).
		Count(&stats.ActiveSprints).Error; err != nil {
		errs = multierr.Append(errs, fmt.Errorf("board stats: active sprints: %w", err))
	}

	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if err := db.WithContext(ctx).
		Where("is_active = ? AND end_date < ?", true, today).
		Order("end_date ASC").
		Find(&stats.Overdue).Error; err != nil {
		errs = multierr.Append(errs, fmt.Errorf("board stats: overdue sprints: %w", err))
	}
	stats.OverdueSprints = int64(len(stats.Overdue))

	if err := db.WithContext(ctx).Model(&models.Task{}).
		Where("sprint_id IS NULL").
		Count(&stats.BacklogTasks).Error; err != nil {
		errs = multierr.Append(errs, fmt.Errorf("board stats: backlog tasks: %w", err))
	}

	return stats, errs
}
