//go:build integration

package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/infrastructure/config"
	"github.com/estudiomd/backoffice/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newPostgresDB starts a throwaway PostgreSQL container and applies the
// embedded migrations to it
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("backoffice_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:       config.DriverPostgres,
		Host:         host,
		Port:         port.Int(),
		User:         "postgres",
		Password:     "postgres",
		DBName:       "backoffice_test",
		SSLMode:      "disable",
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db.DB
}

func TestPostgres_ConcurrentPaymentsRespectCeiling(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	c, err := client.NewClient(client.Details{Name: "Ana Quispe", Email: "ana@cliente.pe"})
	require.NoError(t, err)
	require.NoError(t, NewGormClientRepository(db).Save(ctx, c))

	repo := NewGormClientFinanceRepository(db)
	// 12 * 50 + 100 = 700
	f := seedFinance(t, repo, c.ID, 2024, 100, 50)
	slot := f.Payments[0].ID

	const attempts = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateLocked(ctx, f.ID, func(locked *finance.ClientFinance) error {
				_, err := locked.RecordPayment(slot, finance.TransactionInput{
					Amount:      decimal.NewFromInt(100),
					PaymentDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
				}, finance.Actor{ID: uuid.New(), Name: "worker"})
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			rejected++
			assert.False(t, errors.Is(err, context.Canceled), err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, accepted)
	assert.Equal(t, attempts-7, rejected)

	got, err := repo.FindByClientAndYear(ctx, c.ID, 2024)
	require.NoError(t, err)
	assert.True(t, got.TotalPaid().Equal(decimal.NewFromInt(700)), got.TotalPaid().String())
	assert.Len(t, got.Payments[0].Transactions, 7)
}

func TestPostgres_FinanceRoundTrip(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	c, err := client.NewClient(client.Details{Name: "Bruno Rojas", Email: "bruno@cliente.pe"})
	require.NoError(t, err)
	require.NoError(t, NewGormClientRepository(db).Save(ctx, c))

	repo := NewGormClientFinanceRepository(db)
	seedFinance(t, repo, c.ID, 2023, 0, 80)
	seedFinance(t, repo, c.ID, 2024, 200, 100)

	years, err := repo.ListYears(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023}, years)

	got, err := repo.FindByClientAndYear(ctx, c.ID, 2024)
	require.NoError(t, err)
	assert.True(t, got.AnnualFee.Equal(decimal.NewFromInt(200)))
	assert.True(t, got.Payments[12].AmountDue.Equal(decimal.NewFromInt(200)))
}
