package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/segyhp/dues-engine/pkg/utils"
)

const (
	revenueKeyPrefix     = "dues:revenue"
	revenueGenerationKey = revenueKeyPrefix + ":generation"
)

type revenueCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRevenueCache(client *redis.Client, ttl time.Duration) RevenueCache {
	return &revenueCache{client: client, ttl: ttl}
}

func revenueKey(gen int64, period domain.RevenuePeriod, r domain.DateRange) string {
	return fmt.Sprintf("%s:v%d:%s:%s:%s", revenueKeyPrefix, gen, period, formatBound(r.From), formatBound(r.To))
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return utils.FormatDate(t)
}

func (c *revenueCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, revenueGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *revenueCache) Get(ctx context.Context, gen int64, period domain.RevenuePeriod, r domain.DateRange) (*domain.RevenueReport, bool, error) {
	raw, err := c.client.Get(ctx, revenueKey(gen, period, r)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report domain.RevenueReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false, fmt.Errorf("decode cached revenue report: %w", err)
	}

	return &report, true, nil
}

func (c *revenueCache) Set(ctx context.Context, gen int64, report *domain.RevenueReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}

	key := revenueKey(gen, report.Period, domain.DateRange{From: report.From, To: report.To})
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func (c *revenueCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, revenueGenerationKey).Err()
}
