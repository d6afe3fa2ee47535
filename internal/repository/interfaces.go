package repository

import (
	"context"
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// ObligationRepository defines the interface for obligation data operations
type ObligationRepository interface {
	// Create inserts a new obligation and fills in its ID and version
	Create(ctx context.Context, o *domain.Obligation) error

	// CreateWithPayment inserts an obligation together with its first payment
	// record in one transaction
	CreateWithPayment(ctx context.Context, o *domain.Obligation, payment *domain.PaymentRecord) error

	// GetByID retrieves an obligation with its holder's contact details
	GetByID(ctx context.Context, id int64) (*domain.Obligation, error)

	// ListActive retrieves every active obligation
	ListActive(ctx context.Context) ([]*domain.Obligation, error)

	// ListByDueDateRange retrieves active obligations due within [from, to]
	ListByDueDateRange(ctx context.Context, from, to time.Time) ([]*domain.Obligation, error)

	// Save persists schedule fields if o.Version still matches storage, then
	// bumps o.Version
	Save(ctx context.Context, o *domain.Obligation) error

	// ApplyPayment appends the payment record and saves the advanced
	// obligation atomically
	ApplyPayment(ctx context.Context, o *domain.Obligation, payment *domain.PaymentRecord) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// ListByObligationID retrieves the payment history of an obligation, newest first
	ListByObligationID(ctx context.Context, obligationID int64) ([]*domain.PaymentRecord, error)

	// SumPayments totals payments dated within r. Zero bounds are open.
	SumPayments(ctx context.Context, r domain.DateRange) (decimal.Decimal, error)

	// SumPaymentsByKind totals payments within r per obligation kind
	SumPaymentsByKind(ctx context.Context, r domain.DateRange) (map[domain.ObligationKind]decimal.Decimal, error)

	// ListRecent retrieves the latest payments across all obligations
	ListRecent(ctx context.Context, limit int) ([]*domain.RecentPayment, error)
}

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	// CreateWithObligation inserts a member and its membership obligation in
	// one transaction
	CreateWithObligation(ctx context.Context, m *domain.Member, o *domain.Obligation) error

	// GetByID retrieves a member by ID
	GetByID(ctx context.Context, id int64) (*domain.Member, error)
}

// RevenueCache stores revenue reports keyed by query range. Entries are
// written under the generation current when the sums were read, so a
// report computed before an invalidation is never served after it.
type RevenueCache interface {
	// Generation returns the current cache generation
	Generation(ctx context.Context) (int64, error)

	// Get looks up a report cached under generation gen
	Get(ctx context.Context, gen int64, period domain.RevenuePeriod, r domain.DateRange) (*domain.RevenueReport, bool, error)

	// Set caches report under generation gen
	Set(ctx context.Context, gen int64, report *domain.RevenueReport) error

	// Invalidate starts a new generation, orphaning every cached report
	Invalidate(ctx context.Context) error
}
