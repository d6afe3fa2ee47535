package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segyhp/dues-engine/internal/billing"
	"github.com/segyhp/dues-engine/internal/config"
	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/segyhp/dues-engine/internal/metrics"
	"github.com/segyhp/dues-engine/internal/mocks"
	customError "github.com/segyhp/dues-engine/pkg/errors"
	"github.com/segyhp/dues-engine/pkg/response"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testDeps struct {
	obligations *mocks.MockObligationRepository
	payments    *mocks.MockPaymentRepository
	members     *mocks.MockMemberRepository
	cache       *mocks.MockRevenueCache
	metrics     *metrics.Metrics
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Timezone: "UTC"},
		Billing: config.BillingConfig{
			WindowDaily:       billing.DefaultReminderWindows[domain.FrequencyDaily],
			WindowMonthly:     billing.DefaultReminderWindows[domain.FrequencyMonthly],
			WindowQuarterly:   billing.DefaultReminderWindows[domain.FrequencyQuarterly],
			WindowYearly:      billing.DefaultReminderWindows[domain.FrequencyYearly],
			WindowFallback:    billing.DefaultFallbackWindow,
			GapMonthly:        billing.DefaultMinCycleGaps[domain.FrequencyMonthly],
			GapQuarterly:      billing.DefaultMinCycleGaps[domain.FrequencyQuarterly],
			GapSemiAnnual:     billing.DefaultMinCycleGaps[domain.FrequencySemiAnnual],
			GapYearly:         billing.DefaultMinCycleGaps[domain.FrequencyYearly],
			RevenueCacheTTL:   time.Minute,
			RecentPaymentsMax: 50,
		},
	}
}

// newTestService builds a service whose clock reads 2025-03-10.
func newTestService(t *testing.T) (*BillingService, *testDeps) {
	t.Helper()

	deps := &testDeps{
		obligations: &mocks.MockObligationRepository{},
		payments:    &mocks.MockPaymentRepository{},
		members:     &mocks.MockMemberRepository{},
		cache:       &mocks.MockRevenueCache{},
		metrics:     metrics.NewMetrics(prometheus.NewRegistry()),
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := NewBillingService(deps.obligations, deps.payments, deps.members, deps.cache, testConfig(), deps.metrics, logger)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	t.Cleanup(func() {
		deps.obligations.AssertExpectations(t)
		deps.payments.AssertExpectations(t)
		deps.members.AssertExpectations(t)
		deps.cache.AssertExpectations(t)
	})
	return svc, deps
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

func monthlyObligation() *domain.Obligation {
	return &domain.Obligation{
		ID:           1,
		MemberID:     10,
		Kind:         domain.KindMembership,
		Label:        "Gold",
		Amount:       decimal.NewFromInt(150000),
		Frequency:    domain.FrequencyMonthly,
		StartDate:    day("2025-01-05"),
		AnchorDay:    5,
		LastPaidDate: dayPtr("2025-02-05"),
		NextDueDate:  dayPtr("2025-03-05"),
		Status:       domain.ObligationStatusActive,
		Version:      3,
		HolderName:   "Budi",
		HolderPhone:  "0812",
	}
}

func TestBillingService_Today(t *testing.T) {
	svc, _ := newTestService(t)
	svc.config.Scheduler.Timezone = "Asia/Jakarta"
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC) }

	assert.Equal(t, day("2025-03-11"), svc.Today())
}

func TestRecordPayment(t *testing.T) {
	tests := []struct {
		name         string
		obligation   *domain.Obligation
		request      *domain.RecordPaymentRequest
		setup        func(*testDeps)
		expectedNext time.Time
		expectedErr  error
		rejectedCode string
	}{
		{
			name:       "late payment advances from the settled due date",
			obligation: monthlyObligation(),
			request:    &domain.RecordPaymentRequest{Amount: decimal.NewFromInt(150000), PaymentDate: "2025-03-08"},
			setup: func(d *testDeps) {
				d.obligations.On("ApplyPayment", mock.Anything, mock.MatchedBy(func(o *domain.Obligation) bool {
					return o.NextDueDate.Equal(day("2025-04-05")) && o.LastPaidDate.Equal(day("2025-03-08"))
				}), mock.MatchedBy(func(p *domain.PaymentRecord) bool {
					return p.PaymentDate.Equal(day("2025-03-08")) && p.Amount.Equal(decimal.NewFromInt(150000))
				})).Return(nil).Once()
				d.cache.On("Invalidate", mock.Anything).Return(nil).Once()
			},
			expectedNext: day("2025-04-05"),
		},
		{
			name:         "future payment is rejected",
			obligation:   monthlyObligation(),
			request:      &domain.RecordPaymentRequest{Amount: decimal.NewFromInt(150000), PaymentDate: "2025-03-11"},
			expectedErr:  customError.ErrInvalidDateOrdering,
			rejectedCode: customError.ErrCodeInvalidDateOrdering,
		},
		{
			name: "inactive obligation is rejected",
			obligation: func() *domain.Obligation {
				o := monthlyObligation()
				o.Status = domain.ObligationStatusInactive
				return o
			}(),
			request:      &domain.RecordPaymentRequest{Amount: decimal.NewFromInt(150000), PaymentDate: "2025-03-08"},
			expectedErr:  customError.ErrObligationInactive,
			rejectedCode: customError.ErrCodeObligationInactive,
		},
		{
			name:       "stale version surfaces a concurrent update",
			obligation: monthlyObligation(),
			request:    &domain.RecordPaymentRequest{Amount: decimal.NewFromInt(150000), PaymentDate: "2025-03-08"},
			setup: func(d *testDeps) {
				d.obligations.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).
					Return(customError.WrapConcurrentUpdate(1)).Once()
			},
			expectedErr:  customError.ErrConcurrentUpdate,
			rejectedCode: customError.ErrCodeConcurrentUpdate,
		},
		{
			name:       "cache failure does not fail the payment",
			obligation: monthlyObligation(),
			request:    &domain.RecordPaymentRequest{Amount: decimal.NewFromInt(150000), PaymentDate: "2025-03-05"},
			setup: func(d *testDeps) {
				d.obligations.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				d.cache.On("Invalidate", mock.Anything).Return(errors.New("connection refused")).Once()
			},
			expectedNext: day("2025-04-05"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService(t)
			deps.obligations.On("GetByID", mock.Anything, int64(1)).Return(tt.obligation, nil).Once()
			if tt.setup != nil {
				tt.setup(deps)
			}

			resp, err := svc.RecordPayment(context.Background(), 1, tt.request)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, resp)
				assert.Equal(t, float64(1), testutil.ToFloat64(deps.metrics.PaymentsRejectedTotal.WithLabelValues(tt.rejectedCode)))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedNext, *resp.Obligation.NextDueDate)
			assert.Equal(t, day("2025-03-05"), *tt.obligation.NextDueDate, "stored obligation must not be mutated")
			assert.Equal(t, float64(1), testutil.ToFloat64(deps.metrics.PaymentsRecordedTotal.WithLabelValues("membership", "monthly")))
			assert.False(t, resp.View.IsOverdue)
		})
	}
}

func TestRecordPayment_SettlesArrears(t *testing.T) {
	svc, deps := newTestService(t)
	behind := monthlyObligation()
	behind.LastPaidDate = dayPtr("2024-12-05")
	behind.NextDueDate = dayPtr("2025-01-05")
	deps.obligations.On("GetByID", mock.Anything, int64(1)).Return(behind, nil).Once()
	deps.obligations.On("ApplyPayment", mock.Anything, mock.MatchedBy(func(o *domain.Obligation) bool {
		return o.NextDueDate.Equal(day("2025-04-05")) && o.LastPaidDate.Equal(day("2025-03-09"))
	}), mock.Anything).Return(nil).Once()
	deps.cache.On("Invalidate", mock.Anything).Return(nil).Once()

	resp, err := svc.RecordPayment(context.Background(), 1, &domain.RecordPaymentRequest{
		Amount:      decimal.NewFromInt(150000),
		PaymentDate: "2025-03-09",
	})

	require.NoError(t, err)
	assert.Equal(t, day("2025-04-05"), *resp.Obligation.NextDueDate)
	assert.False(t, resp.View.IsOverdue)

	_, changed, err := billing.Repair(resp.Obligation, svc.config.Policy())
	require.NoError(t, err)
	assert.False(t, changed, "settled schedule must already be consistent")
}

func TestRecordPayment_InvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		request     *domain.RecordPaymentRequest
		expectedErr error
	}{
		{
			name:        "zero amount",
			request:     &domain.RecordPaymentRequest{Amount: decimal.Zero, PaymentDate: "2025-03-08"},
			expectedErr: customError.ErrInvalidAmount,
		},
		{
			name:        "malformed date",
			request:     &domain.RecordPaymentRequest{Amount: decimal.NewFromInt(1), PaymentDate: "08/03/2025"},
			expectedErr: customError.ErrInvalidDateRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)

			_, err := svc.RecordPayment(context.Background(), 1, tt.request)

			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestRecordPayment_NotFound(t *testing.T) {
	svc, deps := newTestService(t)
	deps.obligations.On("GetByID", mock.Anything, int64(99)).Return(nil, customError.WrapObligationNotFound(99))

	_, err := svc.RecordPayment(context.Background(), 99, &domain.RecordPaymentRequest{
		Amount:      decimal.NewFromInt(1),
		PaymentDate: "2025-03-08",
	})

	var be *customError.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, customError.ErrCodeObligationNotFound, be.Code)
}

func TestCreateMember(t *testing.T) {
	svc, deps := newTestService(t)
	deps.members.On("CreateWithObligation", mock.Anything,
		mock.MatchedBy(func(m *domain.Member) bool { return m.Name == "Siti" && m.JoinDate.Equal(day("2025-01-31")) }),
		mock.MatchedBy(func(o *domain.Obligation) bool {
			return o.Kind == domain.KindMembership && o.LastPaidDate == nil && o.NextDueDate.Equal(day("2025-02-28"))
		}),
	).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Member).ID = 5
		args.Get(2).(*domain.Obligation).ID = 8
	}).Return(nil).Once()

	resp, err := svc.CreateMember(context.Background(), &domain.CreateMemberRequest{
		Name:           "Siti",
		JoinDate:       "2025-01-31",
		MembershipType: "Silver",
		FeeAmount:      decimal.NewFromInt(100000),
		Frequency:      domain.FrequencyMonthly,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Member.ID)
	assert.Equal(t, int64(8), resp.Obligation.ID)
	assert.Equal(t, 31, resp.Obligation.AnchorDay)
}

func TestCreateObligation(t *testing.T) {
	member := &domain.Member{ID: 10, Name: "Budi", Phone: "0812"}

	t.Run("collects the first cycle on the start date", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.members.On("GetByID", mock.Anything, int64(10)).Return(member, nil).Once()
		deps.obligations.On("CreateWithPayment", mock.Anything,
			mock.MatchedBy(func(o *domain.Obligation) bool {
				return o.LastPaidDate.Equal(day("2025-03-01")) && o.NextDueDate.Equal(day("2025-06-01"))
			}),
			mock.MatchedBy(func(p *domain.PaymentRecord) bool { return p.PaymentDate.Equal(day("2025-03-01")) }),
		).Return(nil).Once()
		deps.cache.On("Invalidate", mock.Anything).Return(nil).Once()

		resp, err := svc.CreateObligation(context.Background(), &domain.CreateObligationRequest{
			MemberID:       10,
			Kind:           domain.KindLocker,
			Label:          "Locker 7",
			Amount:         decimal.NewFromInt(75000),
			Frequency:      domain.FrequencyQuarterly,
			StartDate:      "2025-03-01",
			CollectInitial: true,
		})

		require.NoError(t, err)
		assert.Equal(t, "Budi", resp.Obligation.HolderName)
		assert.Equal(t, 83, resp.View.DaysUntilDue)
	})

	t.Run("without initial payment", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.members.On("GetByID", mock.Anything, int64(10)).Return(member, nil).Once()
		deps.obligations.On("Create", mock.Anything, mock.AnythingOfType("*domain.Obligation")).Return(nil).Once()

		resp, err := svc.CreateObligation(context.Background(), &domain.CreateObligationRequest{
			MemberID:  10,
			Kind:      domain.KindLocker,
			Amount:    decimal.NewFromInt(75000),
			Frequency: domain.FrequencyMonthly,
			StartDate: "2025-04-01",
		})

		require.NoError(t, err)
		assert.Nil(t, resp.Obligation.LastPaidDate)
		assert.Equal(t, day("2025-05-01"), *resp.Obligation.NextDueDate)
	})

	t.Run("initial payment cannot be in the future", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateObligation(context.Background(), &domain.CreateObligationRequest{
			MemberID:       10,
			Kind:           domain.KindLocker,
			Amount:         decimal.NewFromInt(75000),
			Frequency:      domain.FrequencyMonthly,
			StartDate:      "2025-04-01",
			CollectInitial: true,
		})

		assert.ErrorIs(t, err, customError.ErrInvalidDateOrdering)
	})

	t.Run("unknown member", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.members.On("GetByID", mock.Anything, int64(10)).Return(nil, customError.WrapMemberNotFound(10)).Once()

		_, err := svc.CreateObligation(context.Background(), &domain.CreateObligationRequest{
			MemberID:  10,
			Kind:      domain.KindLocker,
			Amount:    decimal.NewFromInt(75000),
			Frequency: domain.FrequencyMonthly,
			StartDate: "2025-03-01",
		})

		assert.ErrorIs(t, err, customError.ErrMemberNotFound)
	})
}

func TestChangeFrequency(t *testing.T) {
	svc, deps := newTestService(t)
	deps.obligations.On("GetByID", mock.Anything, int64(1)).Return(monthlyObligation(), nil).Once()
	deps.obligations.On("Save", mock.Anything, mock.MatchedBy(func(o *domain.Obligation) bool {
		return o.Frequency == domain.FrequencyQuarterly && o.NextDueDate.Equal(day("2025-04-05")) &&
			o.LastPaidDate.Equal(day("2025-02-05"))
	})).Return(nil).Once()

	resp, err := svc.ChangeFrequency(context.Background(), 1, &domain.ChangeFrequencyRequest{Frequency: domain.FrequencyQuarterly})

	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyQuarterly, resp.Obligation.Frequency)
}

func TestDeactivate(t *testing.T) {
	t.Run("active obligation is saved inactive", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.obligations.On("GetByID", mock.Anything, int64(1)).Return(monthlyObligation(), nil).Once()
		deps.obligations.On("Save", mock.Anything, mock.MatchedBy(func(o *domain.Obligation) bool {
			return o.Status == domain.ObligationStatusInactive
		})).Return(nil).Once()

		o, err := svc.Deactivate(context.Background(), 1)

		require.NoError(t, err)
		assert.False(t, o.IsActive())
	})

	t.Run("already inactive is a no-op", func(t *testing.T) {
		svc, deps := newTestService(t)
		inactive := monthlyObligation()
		inactive.Status = domain.ObligationStatusInactive
		deps.obligations.On("GetByID", mock.Anything, int64(1)).Return(inactive, nil).Once()

		o, err := svc.Deactivate(context.Background(), 1)

		require.NoError(t, err)
		assert.Same(t, inactive, o)
	})
}

func TestBillingService_LogsRequestID(t *testing.T) {
	svc, deps := newTestService(t)
	logger, hook := logtest.NewNullLogger()
	svc.logger = logger
	deps.obligations.On("GetByID", mock.Anything, int64(1)).Return(monthlyObligation(), nil).Once()
	deps.obligations.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.Deactivate(response.WithRequestID(context.Background(), "req-42"), 1)

	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "req-42", hook.LastEntry().Data["request_id"])
	assert.Equal(t, int64(1), hook.LastEntry().Data["obligation_id"])
}

func TestListPayments(t *testing.T) {
	svc, deps := newTestService(t)
	payments := []*domain.PaymentRecord{{ID: 2, ObligationID: 1}, {ID: 1, ObligationID: 1}}
	deps.obligations.On("GetByID", mock.Anything, int64(1)).Return(monthlyObligation(), nil).Once()
	deps.payments.On("ListByObligationID", mock.Anything, int64(1)).Return(payments, nil).Once()

	got, err := svc.ListPayments(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, payments, got)
}
