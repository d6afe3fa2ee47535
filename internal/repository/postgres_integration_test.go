//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/segyhp/dues-engine/internal/config"
	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T, driver string) *config.DatabaseConfig {
	t.Helper()

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("dues_test"),
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

	return &config.DatabaseConfig{
		Driver:          driver,
		URL:             connStr,
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
}

func TestPostgres_PaymentLifecycle(t *testing.T) {
	for _, driver := range []string{"postgres", "pgx"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := setupPostgres(t, driver)

			db, err := Connect(ctx, *cfg)
			require.NoError(t, err)
			defer db.Close()

			require.NoError(t, Migrate(ctx, db))
			require.NoError(t, Migrate(ctx, db), "schema must be re-appliable")

			members := NewMemberRepository(db)
			obligations := NewObligationRepository(db)
			payments := NewPaymentRepository(db)

			join := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
			next := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
			m := &domain.Member{Name: "Rina", Phone: "0815", JoinDate: join, Status: domain.MemberStatusActive}
			o := &domain.Obligation{
				Kind:        domain.KindMembership,
				Label:       "Gold",
				Amount:      decimal.NewFromInt(300000),
				Frequency:   domain.FrequencyMonthly,
				StartDate:   join,
				AnchorDay:   31,
				NextDueDate: &next,
				Status:      domain.ObligationStatusActive,
			}
			require.NoError(t, members.CreateWithObligation(ctx, m, o))

			loaded, err := obligations.GetByID(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, "Rina", loaded.HolderName)
			assert.Equal(t, next, loaded.NextDueDate.UTC())

			paid := next
			advanced := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
			loaded.LastPaidDate = &paid
			loaded.NextDueDate = &advanced
			stale := loaded.Clone()

			payment := &domain.PaymentRecord{Amount: loaded.Amount, PaymentDate: paid, Notes: "cash"}
			require.NoError(t, obligations.ApplyPayment(ctx, loaded, payment))
			assert.NotZero(t, payment.ID)

			err = obligations.ApplyPayment(ctx, stale, &domain.PaymentRecord{Amount: loaded.Amount, PaymentDate: paid})
			assert.ErrorIs(t, err, customError.ErrConcurrentUpdate)

			history, err := payments.ListByObligationID(ctx, o.ID)
			require.NoError(t, err)
			assert.Len(t, history, 1, "rejected payment must not be recorded")

			total, err := payments.SumPayments(ctx, domain.DateRange{
				From: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			assert.True(t, total.Equal(decimal.NewFromInt(300000)))

			byKind, err := payments.SumPaymentsByKind(ctx, domain.DateRange{})
			require.NoError(t, err)
			assert.True(t, byKind[domain.KindMembership].Equal(decimal.NewFromInt(300000)))

			due, err := obligations.ListByDueDateRange(ctx, advanced, advanced)
			require.NoError(t, err)
			require.Len(t, due, 1)
			assert.Equal(t, o.ID, due[0].ID)
		})
	}
}
