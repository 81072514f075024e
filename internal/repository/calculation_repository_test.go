package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
)

var calculationRowColumns = []string{"id", "total", "attended", "no_attendance", "effective_total", "required", "percentage",
	"eligible", "bunkable", "needed", "message", "request_id", "client_ip", "created_at"}

type recordingObserver struct {
	labels []string
}

func (o *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func newCalculationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCalculationRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newCalculationRepoMock(t)
	defer cleanup()

	observer := &recordingObserver{}
	repo := NewCalculationRepository(db, observer)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_calculations")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	bunkable := int64(6)
	record := &models.CalculationRecord{
		Total: 100, Attended: 80, EffectiveTotal: 100, Required: 75, Percentage: 80,
		Eligible: true, Bunkable: &bunkable,
		Message: "You can safely skip up to 6 more lectures and still stay above 75.0%.",
	}
	require.NoError(t, repo.Create(context.Background(), record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.CreatedAt.IsZero())

	rows := sqlmock.NewRows(calculationRowColumns).
		AddRow(record.ID, 100, 80, 0, 100, "75.000", "80.00", true, 6, nil, record.Message, "req-1", "10.0.0.1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_calculations WHERE id = $1")).
		WithArgs(record.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, 75.0, found.Required)
	assert.Equal(t, 80.0, found.Percentage)
	require.NotNil(t, found.Bunkable)
	assert.Equal(t, int64(6), *found.Bunkable)
	assert.Nil(t, found.Needed)
	assert.Equal(t, []string{"calculations.create", "calculations.get"}, observer.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalculationRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newCalculationRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_calculations WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(calculationRowColumns))

	_, err := NewCalculationRepository(db, nil).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalculationRepositoryListFiltersAndPaginates(t *testing.T) {
	db, mock, cleanup := newCalculationRepoMock(t)
	defer cleanup()

	eligible := false
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_calculations WHERE eligible = $1")).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE eligible = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 20")).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows(calculationRowColumns).
			AddRow("calc-1", 100, 60, 0, 100, 75, 60, false, nil, 60, "You must attend 60 more lectures continuously to reach 75.0%.", "", "", time.Now()))

	records, total, err := NewCalculationRepository(db, nil).List(context.Background(), models.CalculationFilter{
		Eligible: &eligible, Page: 2, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Needed)
	assert.Equal(t, int64(60), *records[0].Needed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalculationRepositoryListWithoutFilter(t *testing.T) {
	db, mock, cleanup := newCalculationRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_calculations")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(calculationRowColumns))

	records, total, err := NewCalculationRepository(db, nil).List(context.Background(), models.CalculationFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalculationRepositoryListCountFailure(t *testing.T) {
	db, mock, cleanup := newCalculationRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).WillReturnError(errors.New("connection reset"))

	_, _, err := NewCalculationRepository(db, nil).List(context.Background(), models.CalculationFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count calculations")
}

func TestCalculationRepositoryStats(t *testing.T) {
	db, mock, cleanup := newCalculationRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE needed = -1) AS unreachable_count")).
		WillReturnRows(sqlmock.NewRows([]string{"total_calculations", "eligible_count", "not_eligible_count", "unreachable_count", "average_percentage", "average_required"}).
			AddRow(10, 7, 3, 1, 71.5, 75))

	stats, err := NewCalculationRepository(db, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalCalculations)
	assert.Equal(t, int64(7), stats.EligibleCount)
	assert.Equal(t, int64(3), stats.NotEligibleCount)
	assert.Equal(t, int64(1), stats.UnreachableCount)
	assert.Equal(t, 71.5, stats.AveragePercentage)
	assert.Equal(t, 75.0, stats.AverageRequired)
	require.NoError(t, mock.ExpectationsWereMet())
}
