package mocks

import (
	"context"
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreateMember(ctx context.Context, request *domain.CreateMemberRequest) (*domain.CreateMemberResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateMemberResponse), args.Error(1)
}

func (m *MockBillingService) CreateObligation(ctx context.Context, request *domain.CreateObligationRequest) (*domain.ObligationResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ObligationResponse), args.Error(1)
}

func (m *MockBillingService) GetObligation(ctx context.Context, id int64) (*domain.ObligationResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ObligationResponse), args.Error(1)
}

func (m *MockBillingService) RecordPayment(ctx context.Context, id int64, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error) {
	args := m.Called(ctx, id, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecordPaymentResponse), args.Error(1)
}

func (m *MockBillingService) ChangeFrequency(ctx context.Context, id int64, request *domain.ChangeFrequencyRequest) (*domain.ObligationResponse, error) {
	args := m.Called(ctx, id, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ObligationResponse), args.Error(1)
}

func (m *MockBillingService) Deactivate(ctx context.Context, id int64) (*domain.Obligation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Obligation), args.Error(1)
}

func (m *MockBillingService) ListPayments(ctx context.Context, id int64) ([]*domain.PaymentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentRecord), args.Error(1)
}

func (m *MockBillingService) Alerts(ctx context.Context, windowOverride *int) (*domain.AlertsResponse, error) {
	args := m.Called(ctx, windowOverride)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AlertsResponse), args.Error(1)
}

func (m *MockBillingService) Reminders(ctx context.Context, windowOverride *int) (*domain.ReminderDigest, error) {
	args := m.Called(ctx, windowOverride)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReminderDigest), args.Error(1)
}

func (m *MockBillingService) RepairAll(ctx context.Context) (*domain.RepairResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepairResult), args.Error(1)
}

func (m *MockBillingService) Revenue(ctx context.Context, q domain.RevenueQuery) (*domain.RevenueReport, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RevenueReport), args.Error(1)
}

func (m *MockBillingService) RecentPayments(ctx context.Context, limit int) ([]*domain.RecentPayment, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RecentPayment), args.Error(1)
}

func (m *MockBillingService) DueBetween(ctx context.Context, from, to time.Time) ([]*domain.ObligationResponse, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ObligationResponse), args.Error(1)
}

// NewMockBillingService creates a new mock billing service instance
func NewMockBillingService() *MockBillingService {
	return &MockBillingService{}
}
