package mocks

import (
	"context"
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockObligationRepository struct {
	mock.Mock
}

func (m *MockObligationRepository) Create(ctx context.Context, o *domain.Obligation) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockObligationRepository) CreateWithPayment(ctx context.Context, o *domain.Obligation, payment *domain.PaymentRecord) error {
	args := m.Called(ctx, o, payment)
	return args.Error(0)
}

func (m *MockObligationRepository) GetByID(ctx context.Context, id int64) (*domain.Obligation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Obligation), args.Error(1)
}

func (m *MockObligationRepository) ListActive(ctx context.Context) ([]*domain.Obligation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Obligation), args.Error(1)
}

func (m *MockObligationRepository) ListByDueDateRange(ctx context.Context, from, to time.Time) ([]*domain.Obligation, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Obligation), args.Error(1)
}

func (m *MockObligationRepository) Save(ctx context.Context, o *domain.Obligation) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockObligationRepository) ApplyPayment(ctx context.Context, o *domain.Obligation, payment *domain.PaymentRecord) error {
	args := m.Called(ctx, o, payment)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) ListByObligationID(ctx context.Context, obligationID int64) ([]*domain.PaymentRecord, error) {
	args := m.Called(ctx, obligationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentRecord), args.Error(1)
}

func (m *MockPaymentRepository) SumPayments(ctx context.Context, r domain.DateRange) (decimal.Decimal, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) SumPaymentsByKind(ctx context.Context, r domain.DateRange) (map[domain.ObligationKind]decimal.Decimal, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.ObligationKind]decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) ListRecent(ctx context.Context, limit int) ([]*domain.RecentPayment, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RecentPayment), args.Error(1)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) CreateWithObligation(ctx context.Context, member *domain.Member, o *domain.Obligation) error {
	args := m.Called(ctx, member, o)
	return args.Error(0)
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

type MockRevenueCache struct {
	mock.Mock
}

func (m *MockRevenueCache) Generation(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRevenueCache) Get(ctx context.Context, gen int64, period domain.RevenuePeriod, r domain.DateRange) (*domain.RevenueReport, bool, error) {
	args := m.Called(ctx, gen, period, r)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.RevenueReport), args.Bool(1), args.Error(2)
}

func (m *MockRevenueCache) Set(ctx context.Context, gen int64, report *domain.RevenueReport) error {
	args := m.Called(ctx, gen, report)
	return args.Error(0)
}

func (m *MockRevenueCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
