package persistence

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustClient(t *testing.T, name, email, city string) *client.Client {
	t.Helper()
	c, err := client.NewClient(client.Details{Name: name, Email: email, City: city})
	require.NoError(t, err)
	return c
}

func TestGormClientRepository_FindByID_SQL(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	repo := NewGormClientRepository(gormDB)

	t.Run("finds existing client", func(t *testing.T) {
		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "name", "email", "version"}).
			AddRow(id, "Ana Torres", "ana@example.com", 2)

		mock.ExpectQuery(`SELECT \* FROM "clients" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(rows)

		c, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Ana Torres", c.Name)
		assert.Equal(t, 2, c.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing rows to ErrNotFound", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "clients" WHERE id = $1`)).
			WithArgs(id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormClientRepository_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormClientRepository(db)
	ctx := context.Background()

	lima := mustClient(t, "Ana Torres", "ana@example.com", "Lima")
	cusco := mustClient(t, "Bruno Díaz", "bruno@example.com", "Cusco")
	require.NoError(t, repo.Save(ctx, lima))
	require.NoError(t, repo.Save(ctx, cusco))

	got, err := repo.FindByID(ctx, lima.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "Lima", got.City)

	t.Run("search and filters", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Search = "BRUNO"
		list, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, cusco.ID, list[0].ID)

		f = shared.DefaultFilter()
		f.Filters["city"] = "Lima"
		n, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("ordering ignores unknown fields", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.OrderBy = "name; DROP TABLE clients"
		list, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		f.OrderBy = "name"
		f.OrderDir = "asc"
		list, err = repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, "Ana Torres", list[0].Name)
	})

	t.Run("email uniqueness", func(t *testing.T) {
		exists, err := repo.ExistsByEmail(ctx, "ANA@example.com", uuid.Nil)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByEmail(ctx, "ana@example.com", lima.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("list refs", func(t *testing.T) {
		refs, err := repo.ListRefs(ctx)
		require.NoError(t, err)
		assert.Len(t, refs, 2)
	})
}

func TestGormClientRepository_DeleteCascades(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	clients := NewGormClientRepository(db)
	finances := NewGormClientFinanceRepository(db)

	c := mustClient(t, "Ana Torres", "ana@example.com", "")
	require.NoError(t, clients.Save(ctx, c))

	f, err := finance.NewClientFinance(c.ID, 2024)
	require.NoError(t, err)
	require.NoError(t, f.UpdateFees(decimal.NewFromInt(200), decimal.NewFromInt(100)))
	require.NoError(t, finances.Save(ctx, f))

	require.NoError(t, clients.Delete(ctx, c.ID))

	_, err = clients.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = finances.FindByClientAndYear(ctx, c.ID, 2024)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var slots int64
	require.NoError(t, db.Table("monthly_payments").Count(&slots).Error)
	assert.Zero(t, slots)

	assert.ErrorIs(t, clients.Delete(ctx, c.ID), shared.ErrNotFound)
}
