package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/segyhp/dues-engine/internal/config"
	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/segyhp/dues-engine/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Service is the part of the billing service the scheduled jobs drive
type Service interface {
	RepairAll(ctx context.Context) (*domain.RepairResult, error)
	Reminders(ctx context.Context, windowOverride *int) (*domain.ReminderDigest, error)
}

// Jobs runs the repair sweep and the reminder digest
type Jobs struct {
	service Service
	logger  *logrus.Logger
	timeout time.Duration
}

func NewJobs(service Service, logger *logrus.Logger, timeout time.Duration) *Jobs {
	return &Jobs{
		service: service,
		logger:  logger,
		timeout: timeout,
	}
}

// RunRepair runs one consistency sweep
func (j *Jobs) RunRepair(ctx context.Context) error {
	ctx, cancel := j.withTimeout(ctx)
	defer cancel()

	result, err := j.service.RepairAll(ctx)
	if err != nil {
		return fmt.Errorf("repair sweep: %w", err)
	}
	if !result.Completed {
		return fmt.Errorf("repair sweep %s interrupted after %d obligations", result.SweepID, result.Scanned)
	}
	return nil
}

// RunReminders logs the overdue and due-soon contacts for the messaging
// collaborator to pick up
func (j *Jobs) RunReminders(ctx context.Context) error {
	ctx, cancel := j.withTimeout(ctx)
	defer cancel()

	digest, err := j.service.Reminders(ctx, nil)
	if err != nil {
		return fmt.Errorf("reminder digest: %w", err)
	}

	for _, c := range digest.Overdue {
		j.contactEntry(c).WithField("days_overdue", c.DaysOverdue).Warn("payment overdue")
	}
	for _, c := range digest.DueSoon {
		j.contactEntry(c).WithField("days_until_due", c.DaysUntilDue).Info("payment due soon")
	}

	j.logger.WithFields(logrus.Fields{
		"today":    utils.FormatDate(digest.Today),
		"overdue":  len(digest.Overdue),
		"due_soon": len(digest.DueSoon),
	}).Info("reminder digest built")
	return nil
}

func (j *Jobs) contactEntry(c *domain.ReminderContact) *logrus.Entry {
	return j.logger.WithFields(logrus.Fields{
		"obligation_id": c.ObligationID,
		"kind":          c.Kind,
		"label":         c.Label,
		"name":          c.Name,
		"phone":         c.Phone,
		"amount":        c.Amount.StringFixed(2),
		"next_due_date": utils.FormatDate(c.NextDueDate),
	})
}

func (j *Jobs) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if j.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, j.timeout)
}

// Register schedules both jobs on c using the configured specs
func (j *Jobs) Register(c *cron.Cron, cfg config.SchedulerConfig) error {
	if _, err := c.AddFunc(cfg.RepairSpec, j.cronFunc("repair", j.RunRepair)); err != nil {
		return fmt.Errorf("failed to schedule repair job: %w", err)
	}
	if _, err := c.AddFunc(cfg.ReminderSpec, j.cronFunc("reminders", j.RunReminders)); err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}
	return nil
}

func (j *Jobs) cronFunc(name string, run func(context.Context) error) func() {
	return func() {
		log := j.logger.WithField("job", name)
		log.Info("job started")
		start := time.Now()

		if err := run(context.Background()); err != nil {
			log.WithError(err).Error("job failed")
			return
		}
		log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("job finished")
	}
}

// NewCron builds a seconds-resolution cron in loc that recovers panics and
// skips a run while the previous one is still going
func NewCron(loc *time.Location, logger *logrus.Logger) *cron.Cron {
	cronLogger := cronLogger{logger: logger}
	return cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
