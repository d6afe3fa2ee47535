package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/dues-engine/internal/billing"
	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
	"github.com/segyhp/dues-engine/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Classify partitions every active obligation relative to today. It always
// reads storage; classification results are never cached.
func (s *BillingService) Classify(ctx context.Context, windowOverride *int) (*domain.Classification, error) {
	obligations, err := s.ObligationRepo.ListActive(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	for _, o := range obligations {
		if o.NextDueDate == nil {
			s.logEntry(ctx).WithFields(logrus.Fields{
				"obligation_id": o.ID,
				"frequency":     o.Frequency,
			}).Warn("active obligation has no due date; run a repair sweep")
		}
	}

	result := billing.Classify(obligations, s.Today(), s.policy, windowOverride)
	s.metrics.RecordClassification(len(result.Overdue), len(result.DueSoon), len(result.Current))
	return result, nil
}

// Alerts returns the overdue and due-soon obligations with their views
func (s *BillingService) Alerts(ctx context.Context, windowOverride *int) (*domain.AlertsResponse, error) {
	result, err := s.Classify(ctx, windowOverride)
	if err != nil {
		return nil, err
	}

	return &domain.AlertsResponse{
		Today:   utils.FormatDate(result.Today),
		Overdue: billing.ComputeViews(result.Overdue, result.Today),
		DueSoon: billing.ComputeViews(result.DueSoon, result.Today),
		Current: len(result.Current),
	}, nil
}

// Reminders builds the contact lists the messaging collaborator sends from
func (s *BillingService) Reminders(ctx context.Context, windowOverride *int) (*domain.ReminderDigest, error) {
	result, err := s.Classify(ctx, windowOverride)
	if err != nil {
		return nil, err
	}

	digest := &domain.ReminderDigest{
		Today:   result.Today,
		Overdue: make([]*domain.ReminderContact, 0, len(result.Overdue)),
		DueSoon: make([]*domain.ReminderContact, 0, len(result.DueSoon)),
	}
	for _, o := range result.Overdue {
		digest.Overdue = append(digest.Overdue, reminderContact(o, result))
	}
	for _, o := range result.DueSoon {
		digest.DueSoon = append(digest.DueSoon, reminderContact(o, result))
	}
	return digest, nil
}

func reminderContact(o *domain.Obligation, result *domain.Classification) *domain.ReminderContact {
	view := billing.ComputeView(o, result.Today)
	return &domain.ReminderContact{
		ObligationID: o.ID,
		Kind:         o.Kind,
		Label:        o.Label,
		Name:         o.HolderName,
		Phone:        o.HolderPhone,
		Amount:       o.Amount,
		NextDueDate:  *o.NextDueDate,
		DaysOverdue:  view.DaysOverdue,
		DaysUntilDue: view.DaysUntilDue,
	}
}

// RepairAll scans active obligations and corrects drifted due dates. Each
// correction is saved on its own, so a failure or cancellation part way
// leaves corrected rows valid and the rest untouched; running it again is
// always safe.
func (s *BillingService) RepairAll(ctx context.Context) (*domain.RepairResult, error) {
	result := &domain.RepairResult{SweepID: uuid.NewString()}
	log := s.logEntry(ctx).WithField("sweep_id", result.SweepID)

	obligations, err := s.ObligationRepo.ListActive(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.metrics.RepairSweepsTotal.Inc()
	for _, o := range obligations {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("repair sweep interrupted")
			return result, nil
		}
		result.Scanned++

		fixed, changed, err := billing.Repair(o, s.policy)
		if err != nil {
			result.Failed++
			s.metrics.RepairFailedTotal.Inc()
			log.WithField("obligation_id", o.ID).WithError(err).Error("cannot compute corrected due date")
			continue
		}
		if !changed {
			continue
		}

		if err := s.ObligationRepo.Save(ctx, fixed); err != nil {
			result.Failed++
			s.metrics.RepairFailedTotal.Inc()
			log.WithField("obligation_id", o.ID).WithError(err).Error("failed to save corrected obligation")
			continue
		}

		result.Corrected++
		s.metrics.RepairCorrectedTotal.Inc()
		log.WithFields(logrus.Fields{
			"obligation_id":  o.ID,
			"frequency":      o.Frequency,
			"last_paid_date": utils.FormatOptionalDate(o.LastPaidDate),
			"old_due_date":   utils.FormatOptionalDate(o.NextDueDate),
			"new_due_date":   utils.FormatOptionalDate(fixed.NextDueDate),
		}).Info("obligation due date corrected")
	}

	result.Completed = true
	log.WithFields(logrus.Fields{
		"scanned":   result.Scanned,
		"corrected": result.Corrected,
		"failed":    result.Failed,
	}).Info("repair sweep finished")

	return result, nil
}

// DueBetween lists active obligations due within [from, to] with their views
func (s *BillingService) DueBetween(ctx context.Context, from, to time.Time) ([]*domain.ObligationResponse, error) {
	if to.Before(from) {
		return nil, customError.WrapInvalidDateRange("from must not be after to")
	}

	obligations, err := s.ObligationRepo.ListByDueDateRange(ctx, from, to)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	today := s.Today()
	result := make([]*domain.ObligationResponse, 0, len(obligations))
	for _, o := range obligations {
		result = append(result, &domain.ObligationResponse{Obligation: o, View: billing.ComputeView(o, today)})
	}
	return result, nil
}
