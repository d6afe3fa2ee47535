package service

import (
	"context"
	"errors"
	"time"

	"github.com/segyhp/dues-engine/internal/billing"
	"github.com/segyhp/dues-engine/internal/config"
	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/segyhp/dues-engine/internal/metrics"
	"github.com/segyhp/dues-engine/internal/repository"
	customError "github.com/segyhp/dues-engine/pkg/errors"
	"github.com/segyhp/dues-engine/pkg/response"
	"github.com/segyhp/dues-engine/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type BillingService struct {
	ObligationRepo repository.ObligationRepository
	PaymentRepo    repository.PaymentRepository
	MemberRepo     repository.MemberRepository
	cache          repository.RevenueCache
	config         *config.Config
	policy         billing.Policy
	metrics        *metrics.Metrics
	logger         *logrus.Logger
	now            func() time.Time
}

func NewBillingService(
	obligationRepo repository.ObligationRepository,
	paymentRepo repository.PaymentRepository,
	memberRepo repository.MemberRepository,
	cache repository.RevenueCache,
	config *config.Config,
	metrics *metrics.Metrics,
	logger *logrus.Logger,
) *BillingService {
	return &BillingService{
		ObligationRepo: obligationRepo,
		PaymentRepo:    paymentRepo,
		MemberRepo:     memberRepo,
		cache:          cache,
		config:         config,
		policy:         config.Policy(),
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// Today returns the current business date.
func (s *BillingService) Today() time.Time {
	return utils.Today(s.now(), s.config.Location())
}

// CreateMember registers a member together with its membership obligation
func (s *BillingService) CreateMember(ctx context.Context, request *domain.CreateMemberRequest) (*domain.CreateMemberResponse, error) {
	joinDate, err := utils.ParseDate(request.JoinDate)
	if err != nil {
		return nil, customError.WrapInvalidDateRange(err.Error())
	}
	if err := validateAmount(request.FeeAmount); err != nil {
		return nil, err
	}

	obligation, err := billing.NewObligation(0, domain.KindMembership, request.MembershipType,
		request.FeeAmount, request.Frequency, joinDate, false)
	if err != nil {
		return nil, err
	}

	member := &domain.Member{
		Name:     request.Name,
		Email:    request.Email,
		Phone:    request.Phone,
		JoinDate: joinDate,
		Status:   domain.MemberStatusActive,
	}

	if err := s.MemberRepo.CreateWithObligation(ctx, member, obligation); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logEntry(ctx).WithFields(logrus.Fields{
		"member_id":     member.ID,
		"obligation_id": obligation.ID,
		"frequency":     obligation.Frequency,
		"next_due_date": utils.FormatOptionalDate(obligation.NextDueDate),
	}).Info("member created")

	return &domain.CreateMemberResponse{Member: member, Obligation: obligation}, nil
}

// CreateObligation starts a membership or locker schedule for an existing
// member. With CollectInitial the first cycle is paid on the start date.
func (s *BillingService) CreateObligation(ctx context.Context, request *domain.CreateObligationRequest) (*domain.ObligationResponse, error) {
	startDate, err := utils.ParseDate(request.StartDate)
	if err != nil {
		return nil, customError.WrapInvalidDateRange(err.Error())
	}
	if err := validateAmount(request.Amount); err != nil {
		return nil, err
	}

	today := s.Today()
	if request.CollectInitial && startDate.After(today) {
		return nil, customError.WrapFuturePayment(startDate, today)
	}

	member, err := s.MemberRepo.GetByID(ctx, request.MemberID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	obligation, err := billing.NewObligation(member.ID, request.Kind, request.Label,
		request.Amount, request.Frequency, startDate, request.CollectInitial)
	if err != nil {
		return nil, err
	}

	if request.CollectInitial {
		payment := &domain.PaymentRecord{
			Amount:      request.Amount,
			PaymentDate: startDate,
			Notes:       "initial payment",
		}
		if err := s.ObligationRepo.CreateWithPayment(ctx, obligation, payment); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		s.metrics.PaymentsRecordedTotal.WithLabelValues(string(obligation.Kind), string(obligation.Frequency)).Inc()
		s.invalidateRevenue(ctx)
	} else if err := s.ObligationRepo.Create(ctx, obligation); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	obligation.HolderName = member.Name
	obligation.HolderPhone = member.Phone

	s.logEntry(ctx).WithFields(logrus.Fields{
		"obligation_id":   obligation.ID,
		"member_id":       member.ID,
		"kind":            obligation.Kind,
		"frequency":       obligation.Frequency,
		"collect_initial": request.CollectInitial,
	}).Info("obligation created")

	return &domain.ObligationResponse{
		Obligation: obligation,
		View:       billing.ComputeView(obligation, today),
	}, nil
}

// GetObligation returns an obligation with its computed view
func (s *BillingService) GetObligation(ctx context.Context, id int64) (*domain.ObligationResponse, error) {
	obligation, err := s.ObligationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.ObligationResponse{
		Obligation: obligation,
		View:       billing.ComputeView(obligation, s.Today()),
	}, nil
}

// RecordPayment appends a payment and advances the obligation's cycle in
// one transaction
func (s *BillingService) RecordPayment(ctx context.Context, id int64, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error) {
	paymentDate, err := utils.ParseDate(request.PaymentDate)
	if err != nil {
		return nil, customError.WrapInvalidDateRange(err.Error())
	}
	if err := validateAmount(request.Amount); err != nil {
		return nil, err
	}

	obligation, err := s.ObligationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !obligation.IsActive() {
		return nil, s.rejectPayment(ctx, obligation, customError.WrapObligationInactive(id))
	}

	today := s.Today()
	updated, err := billing.ApplyPayment(obligation, paymentDate, today)
	if err != nil {
		return nil, s.rejectPayment(ctx, obligation, err)
	}

	payment := &domain.PaymentRecord{
		Amount:      request.Amount,
		PaymentDate: paymentDate,
		Notes:       request.Notes,
	}
	if err := s.ObligationRepo.ApplyPayment(ctx, updated, payment); err != nil {
		return nil, s.rejectPayment(ctx, obligation, customError.WrapDatabaseError(err))
	}

	s.metrics.PaymentsRecordedTotal.WithLabelValues(string(updated.Kind), string(updated.Frequency)).Inc()
	s.invalidateRevenue(ctx)

	s.logEntry(ctx).WithFields(logrus.Fields{
		"obligation_id": updated.ID,
		"payment_id":    payment.ID,
		"payment_date":  utils.FormatDate(paymentDate),
		"previous_due":  utils.FormatOptionalDate(obligation.NextDueDate),
		"next_due_date": utils.FormatOptionalDate(updated.NextDueDate),
	}).Info("payment recorded")

	return &domain.RecordPaymentResponse{
		Payment:    payment,
		Obligation: updated,
		View:       billing.ComputeView(updated, today),
	}, nil
}

// ChangeFrequency switches an obligation to a new cadence, recomputing its
// due date from the schedule's anchor basis
func (s *BillingService) ChangeFrequency(ctx context.Context, id int64, request *domain.ChangeFrequencyRequest) (*domain.ObligationResponse, error) {
	obligation, err := s.ObligationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !obligation.IsActive() {
		return nil, customError.WrapObligationInactive(id)
	}

	basis, err := billing.RescheduleBasis(obligation)
	if err != nil {
		return nil, err
	}

	updated, err := billing.Reschedule(obligation, request.Frequency, basis)
	if err != nil {
		return nil, err
	}

	if err := s.ObligationRepo.Save(ctx, updated); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logEntry(ctx).WithFields(logrus.Fields{
		"obligation_id":  id,
		"from_frequency": obligation.Frequency,
		"to_frequency":   updated.Frequency,
		"basis":          utils.FormatDate(basis),
		"next_due_date":  utils.FormatOptionalDate(updated.NextDueDate),
	}).Info("frequency changed")

	return &domain.ObligationResponse{
		Obligation: updated,
		View:       billing.ComputeView(updated, s.Today()),
	}, nil
}

// Deactivate logically deletes an obligation. Payment history is kept.
func (s *BillingService) Deactivate(ctx context.Context, id int64) (*domain.Obligation, error) {
	obligation, err := s.ObligationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !obligation.IsActive() {
		return obligation, nil
	}

	updated := obligation.Clone()
	updated.Status = domain.ObligationStatusInactive
	if err := s.ObligationRepo.Save(ctx, updated); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logEntry(ctx).WithField("obligation_id", id).Info("obligation deactivated")
	return updated, nil
}

// ListPayments returns an obligation's payment history, newest first
func (s *BillingService) ListPayments(ctx context.Context, id int64) ([]*domain.PaymentRecord, error) {
	if _, err := s.ObligationRepo.GetByID(ctx, id); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	payments, err := s.PaymentRepo.ListByObligationID(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

func (s *BillingService) rejectPayment(ctx context.Context, o *domain.Obligation, err error) error {
	code := customError.ErrCodeDatabaseError
	var be *customError.BusinessError
	if errors.As(err, &be) {
		code = be.Code
	}
	s.metrics.PaymentsRejectedTotal.WithLabelValues(code).Inc()
	s.logEntry(ctx).WithFields(logrus.Fields{
		"obligation_id": o.ID,
		"code":          code,
	}).WithError(err).Warn("payment rejected")
	return err
}

// logEntry tags service logs with the request ID of ctx, when there is one.
func (s *BillingService) logEntry(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(s.logger)
	if id := response.RequestID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return customError.WrapInvalidAmount(amount.String())
	}
	return nil
}
