package service

import (
	"context"
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
	"github.com/segyhp/dues-engine/pkg/utils"
)

const defaultRecentPayments = 20

// ResolveRange turns a revenue query into the inclusive date range it covers.
// A zero anchor date means today; "all" yields open bounds.
func ResolveRange(q domain.RevenueQuery, today time.Time) (domain.DateRange, error) {
	anchor := q.Date
	if anchor.IsZero() {
		anchor = today
	}

	switch q.Period {
	case domain.PeriodDay:
		return domain.DateRange{From: anchor, To: anchor}, nil
	case domain.PeriodMonth:
		from := utils.StartOfMonth(anchor)
		return domain.DateRange{From: from, To: from.AddDate(0, 1, -1)}, nil
	case domain.PeriodYear:
		from := utils.StartOfYear(anchor)
		return domain.DateRange{From: from, To: from.AddDate(1, 0, -1)}, nil
	case domain.PeriodYTD:
		return domain.DateRange{From: utils.StartOfYear(today), To: today}, nil
	case domain.PeriodAll:
		return domain.DateRange{}, nil
	case domain.PeriodCustom:
		if q.From.IsZero() || q.To.IsZero() {
			return domain.DateRange{}, customError.WrapInvalidDateRange("custom period requires from and to")
		}
		if q.To.Before(q.From) {
			return domain.DateRange{}, customError.WrapInvalidDateRange("from must not be after to")
		}
		return domain.DateRange{From: q.From, To: q.To}, nil
	default:
		return domain.DateRange{}, customError.WrapInvalidDateRange("unknown period " + string(q.Period))
	}
}

// Revenue sums recorded payments over the queried period. Reports are
// cached per range until the next recorded payment.
func (s *BillingService) Revenue(ctx context.Context, q domain.RevenueQuery) (*domain.RevenueReport, error) {
	r, err := ResolveRange(q, s.Today())
	if err != nil {
		return nil, err
	}

	gen, cacheOK := s.cacheGeneration(ctx)
	if cacheOK {
		report, hit, err := s.cache.Get(ctx, gen, q.Period, r)
		switch {
		case err != nil:
			s.cacheFailed(ctx, err, "revenue cache read failed")
		case hit:
			s.metrics.RevenueCacheHitsTotal.Inc()
			return report, nil
		default:
			s.metrics.RevenueCacheMissesTotal.Inc()
		}
	}

	total, err := s.PaymentRepo.SumPayments(ctx, r)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	byKind, err := s.PaymentRepo.SumPaymentsByKind(ctx, r)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	report := &domain.RevenueReport{
		Period: q.Period,
		From:   r.From,
		To:     r.To,
		Total:  total,
		ByKind: byKind,
	}

	if cacheOK {
		if err := s.cache.Set(ctx, gen, report); err != nil {
			s.cacheFailed(ctx, err, "revenue cache write failed")
		}
	}

	return report, nil
}

// RecentPayments returns the latest payments across all obligations
func (s *BillingService) RecentPayments(ctx context.Context, limit int) ([]*domain.RecentPayment, error) {
	if limit <= 0 {
		limit = defaultRecentPayments
	}
	if limit > s.config.Billing.RecentPaymentsMax {
		limit = s.config.Billing.RecentPaymentsMax
	}

	payments, err := s.PaymentRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

func (s *BillingService) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.cacheFailed(ctx, err, "revenue cache unavailable")
		return 0, false
	}
	return gen, true
}

func (s *BillingService) invalidateRevenue(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.cacheFailed(ctx, err, "revenue cache invalidation failed")
	}
}

func (s *BillingService) cacheFailed(ctx context.Context, err error, msg string) {
	s.metrics.RevenueCacheErrorsTotal.Inc()
	s.logEntry(ctx).WithError(customError.WrapCacheError(err)).Warn(msg)
}
