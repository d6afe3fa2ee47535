package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segyhp/dues-engine/internal/config"
	"github.com/segyhp/dues-engine/internal/metrics"
	"github.com/segyhp/dues-engine/internal/repository"
	"github.com/segyhp/dues-engine/internal/scheduler"
	"github.com/segyhp/dues-engine/internal/service"
	"github.com/sirupsen/logrus"
)

var runOnce = flag.Bool("run-once", false, "Run the repair sweep and reminder digest once and exit")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.NewLogger()
	logger.Info("Starting dues scheduler...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Health.Timeout)
	db, err := repository.Connect(ctx, cfg.Database)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// The scheduled jobs never read revenue, so no cache is wired.
	billingService := service.NewBillingService(
		repository.NewObligationRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewMemberRepository(db),
		nil,
		cfg,
		metrics.NewMetrics(prometheus.NewRegistry()),
		logger,
	)
	jobs := scheduler.NewJobs(billingService, logger, cfg.Scheduler.JobTimeout)

	if *runOnce {
		if err := jobs.RunRepair(context.Background()); err != nil {
			logger.WithError(err).Fatal("Repair sweep failed")
		}
		if err := jobs.RunReminders(context.Background()); err != nil {
			logger.WithError(err).Fatal("Reminder digest failed")
		}
		logger.Info("Run-once completed")
		return
	}

	// Initialize cron scheduler
	c := scheduler.NewCron(cfg.Location(), logger)
	if err := jobs.Register(c, cfg.Scheduler); err != nil {
		logger.WithError(err).Fatal("Failed to schedule jobs")
	}

	// Start the scheduler
	c.Start()
	logger.WithFields(logrus.Fields{
		"repair_spec":   cfg.Scheduler.RepairSpec,
		"reminder_spec": cfg.Scheduler.ReminderSpec,
		"timezone":      cfg.Scheduler.Timezone,
	}).Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}
