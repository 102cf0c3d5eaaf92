package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/config"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/service/reporting"
)

const jobTimeout = 2 * time.Minute

// systemSession scopes the writes made by scheduled jobs.
var systemSession = models.Session{UserID: "system:scheduler"}

// GoalRecalculator refreshes goal progress.
type GoalRecalculator interface {
	Recalculate(ctx context.Context, session models.Session) ([]models.Goal, error)
}

// DigestBuilder produces the weekly digest.
type DigestBuilder interface {
	BuildDigest(ctx context.Context, now time.Time) (reporting.Digest, error)
}

// GoalExporter mirrors goals and weekly totals into a spreadsheet.
type GoalExporter interface {
	ExportGoals(ctx context.Context, goals []models.Goal, now time.Time) error
	AppendWeeklySales(ctx context.Context, weekEnding time.Time, salesCount int, units float64, revenue string) error
}

// MessageSender delivers the digest text.
type MessageSender interface {
	Send(ctx context.Context, body string) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.SchedulerConfig
	goals    GoalRecalculator
	digests  DigestBuilder
	exporter GoalExporter
	sender   MessageSender
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. exporter and sender are
// optional; the digest job skips whichever is nil.
func NewScheduler(cfg config.SchedulerConfig, goals GoalRecalculator, digests DigestBuilder, exporter GoalExporter, sender MessageSender, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		cfg:      cfg,
		goals:    goals,
		digests:  digests,
		exporter: exporter,
		sender:   sender,
		logger:   logger,
		now:      func() time.Time { return time.Now().In(loc) },
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("goals_schedule", s.cfg.GoalsSchedule),
		zap.String("digest_schedule", s.cfg.DigestSchedule))

	if _, err := s.cron.AddFunc(s.cfg.GoalsSchedule, s.recalculateGoals); err != nil {
		return fmt.Errorf("schedule goal recalculation: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.DigestSchedule, s.sendWeeklyDigest); err != nil {
		return fmt.Errorf("schedule weekly digest: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) recalculateGoals() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.goals.Recalculate(ctx, systemSession); err != nil {
		s.logger.Error("scheduled goal recalculation failed", zap.Error(err))
	}
}

func (s *Scheduler) sendWeeklyDigest() {
	s.logger.Info("generating weekly digest")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	now := s.now()
	goals, err := s.goals.Recalculate(ctx, systemSession)
	goalsFresh := err == nil
	if !goalsFresh {
		s.logger.Warn("goal refresh before digest failed, goal export skipped", zap.Error(err))
	}

	digest, err := s.digests.BuildDigest(ctx, now)
	if err != nil {
		s.logger.Error("failed to build weekly digest", zap.Error(err))
		return
	}

	if s.exporter != nil {
		// Exporting replaces the whole sheet, so a partial goal list would wipe it.
		if goalsFresh {
			if err := s.exporter.ExportGoals(ctx, goals, now); err != nil {
				s.logger.Error("failed to export goals", zap.Error(err))
			}
		}
		if err := s.exporter.AppendWeeklySales(ctx, now, digest.SalesCount, digest.UnitsSold, digest.Revenue.StringFixed(2)); err != nil {
			s.logger.Error("failed to log weekly sales", zap.Error(err))
		}
	}

	if s.sender != nil {
		if err := s.sender.Send(ctx, digest.Text()); err != nil {
			s.logger.Error("failed to send weekly digest", zap.Error(err))
			return
		}
		s.logger.Info("weekly digest sent successfully")
	}
}
