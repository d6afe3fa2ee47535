//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/segyhp/dues-engine/internal/config"
	"github.com/segyhp/dues-engine/internal/handler"
	"github.com/segyhp/dues-engine/internal/metrics"
	"github.com/segyhp/dues-engine/internal/repository"
	"github.com/segyhp/dues-engine/internal/service"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func setupServer(t *testing.T) *mux.Router {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("dues_e2e"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	mr := miniredis.RunT(t)

	t.Setenv("DATABASE_URL", connStr)
	t.Setenv("DATABASE_AUTO_MIGRATE", "true")
	t.Setenv("REDIS_URL", "redis://"+mr.Addr()+"/0")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")
	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := initDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, err := initRedis(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })

	logger, _ := test.NewNullLogger()
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	billingService := service.NewBillingService(
		repository.NewObligationRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewMemberRepository(db),
		repository.NewRevenueCache(redisClient, cfg.Billing.RevenueCacheTTL),
		cfg,
		m,
		logger,
	)

	return setupRoutes(
		handler.NewBillingHandler(billingService),
		handler.NewHealthHandler(db, redis.NewClient(&redis.Options{Addr: mr.Addr()}), cfg.Health.Timeout),
		m,
		registry,
		logger,
	)
}

func call(t *testing.T, router http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr.Code, env
}

func TestServer_DuesLifecycle(t *testing.T) {
	router := setupServer(t)
	today := time.Now().UTC().Format("2006-01-02")

	// Health
	code, _ := call(t, router, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, code)

	// Member with a monthly membership
	code, env := call(t, router, http.MethodPost, "/api/v1/members", map[string]interface{}{
		"name":            "Dewi",
		"phone":           "0813",
		"join_date":       today,
		"membership_type": "Gold",
		"fee_amount":      "250000",
		"frequency":       "Monthly",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created struct {
		Member struct {
			ID int64 `json:"id"`
		} `json:"member"`
		Obligation struct {
			ID          int64  `json:"id"`
			NextDueDate string `json:"next_due_date"`
		} `json:"obligation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotZero(t, created.Member.ID)
	require.NotZero(t, created.Obligation.ID)

	// Locker paid up front
	code, env = call(t, router, http.MethodPost, "/api/v1/obligations", map[string]interface{}{
		"member_id":       created.Member.ID,
		"kind":            "locker",
		"label":           "L-12",
		"amount":          "50000",
		"frequency":       "quarterly",
		"start_date":      today,
		"collect_initial": true,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	// Unknown frequency is rejected before reaching storage
	code, env = call(t, router, http.MethodPost, "/api/v1/obligations", map[string]interface{}{
		"member_id":  created.Member.ID,
		"kind":       "locker",
		"amount":     "50000",
		"frequency":  "fortnightly",
		"start_date": today,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "INVALID_FREQUENCY", env.Code)

	// Pay the membership
	membershipPath := fmt.Sprintf("/api/v1/obligations/%d", created.Obligation.ID)
	code, env = call(t, router, http.MethodPost, membershipPath+"/payments", map[string]interface{}{
		"amount":       "250000",
		"payment_date": today,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var paid struct {
		Obligation struct {
			NextDueDate  string `json:"next_due_date"`
			LastPaidDate string `json:"last_paid_date"`
			Version      int64  `json:"version"`
		} `json:"obligation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Greater(t, paid.Obligation.NextDueDate, created.Obligation.NextDueDate)
	assert.NotEmpty(t, paid.Obligation.LastPaidDate)

	code, env = call(t, router, http.MethodGet, membershipPath+"/payments", nil)
	require.Equal(t, http.StatusOK, code)
	var payments []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &payments))
	assert.Len(t, payments, 1)

	// Revenue for today counts both payments, and the second read is cached
	for i := 0; i < 2; i++ {
		code, env = call(t, router, http.MethodGet, "/api/v1/revenue?period=day", nil)
		require.Equal(t, http.StatusOK, code, env.Error)
		var report struct {
			Total  string            `json:"total"`
			ByKind map[string]string `json:"by_kind"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &report))
		assert.Equal(t, "300000", report.Total)
		assert.Equal(t, "50000", report.ByKind["locker"])
	}

	code, env = call(t, router, http.MethodGet, "/api/v1/payments/recent?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &payments))
	assert.Len(t, payments, 2)

	// Nothing is overdue right after paying
	code, env = call(t, router, http.MethodGet, "/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, code)
	var alerts struct {
		Overdue []json.RawMessage `json:"overdue"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &alerts))
	assert.Empty(t, alerts.Overdue)

	// Repair finds consistent schedules
	code, env = call(t, router, http.MethodPost, "/api/v1/maintenance/repair", nil)
	require.Equal(t, http.StatusOK, code)
	var repair struct {
		Scanned   int  `json:"scanned"`
		Corrected int  `json:"corrected"`
		Completed bool `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &repair))
	assert.Equal(t, 2, repair.Scanned)
	assert.Zero(t, repair.Corrected)
	assert.True(t, repair.Completed)

	// Deactivated obligations refuse payments
	code, _ = call(t, router, http.MethodDelete, membershipPath, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = call(t, router, http.MethodPost, membershipPath+"/payments", map[string]interface{}{
		"amount":       "250000",
		"payment_date": today,
	})
	assert.Equal(t, http.StatusConflict, code)
}
