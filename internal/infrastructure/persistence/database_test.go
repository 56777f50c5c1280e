package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database instance with a mocked postgres connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB, Driver: "postgres"}, mock, mockDB
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNewDatabase_SQLite(t *testing.T) {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.AutoMigrate())
	assert.Equal(t, "sqlite", db.DBSystem())

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing()
		require.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
		assert.ErrorIs(t, db.Ping(), sql.ErrConnDone)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	mock.ExpectClose()

	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_DBSystem(t *testing.T) {
	assert.Equal(t, "postgresql", (&Database{Driver: "postgres"}).DBSystem())
	assert.Equal(t, "sqlite", (&Database{Driver: "sqlite"}).DBSystem())
}

func TestFinanceEventRepository_ExistsActiveQuery(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormFinanceEventRepository(db.DB)
	ref := finance.IncidentRef{BookingFinanceIncidentID: uuid.New()}
	motive := finance.MotiveIncidentNewPrice

	mock.ExpectQuery(`SELECT count\(\*\) FROM "finance_events" WHERE booking_finance_incident_id = \$1 AND status IN \(\$2,\$3\) AND motive = \$4`).
		WithArgs(ref.ID(), finance.EventStatusPending, finance.EventStatusReady, motive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsActive(context.Background(), ref, &motive)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRepository_UpdateStatusTouchesStatusOnly(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormPricingRepository(db.DB)

	pricing := finance.RehydratePricing(finance.RehydratedPricing{
		ID:     uuid.New(),
		Status: finance.PricingStatusValidated,
	})
	_, err := pricing.Transition(finance.PricingStatusProcessed, finance.LogReasonGenerateCashflow,
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE "pricings" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND status = \$4`).
		WithArgs(finance.PricingStatusProcessed, pricing.UpdatedAt(), pricing.ID(), finance.PricingStatusValidated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), pricing))
	assert.Equal(t, finance.PricingStatusProcessed, pricing.StoredStatus())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRepository_UpdateStatusDetectsConcurrentChange(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormPricingRepository(db.DB)

	pricing := finance.RehydratePricing(finance.RehydratedPricing{
		ID:     uuid.New(),
		Status: finance.PricingStatusValidated,
	})
	_, err := pricing.Transition(finance.PricingStatusProcessed, finance.LogReasonGenerateCashflow,
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE "pricings" SET .* WHERE id = \$3 AND status = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "pricings" WHERE id = \$1`).
		WithArgs(pricing.ID()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err = repo.UpdateStatus(context.Background(), pricing)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Equal(t, finance.PricingStatusValidated, pricing.StoredStatus())
	assert.NoError(t, mock.ExpectationsWereMet())
}
