package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-api/internal/models"
)

const calculationColumns = `id, total, attended, no_attendance, effective_total, required, percentage,
       eligible, bunkable, needed, message, request_id, client_ip, created_at`

// QueryObserver receives query timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// CalculationRepository persists calculation history.
type CalculationRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewCalculationRepository constructs the repository. observer may be nil.
func NewCalculationRepository(db *sqlx.DB, observer QueryObserver) *CalculationRepository {
	return &CalculationRepository{db: db, observer: observer}
}

func (r *CalculationRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

// Create stores one calculation.
func (r *CalculationRepository) Create(ctx context.Context, record *models.CalculationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	defer r.observe("calculations.create", time.Now())

	const query = `INSERT INTO attendance_calculations
	(id, total, attended, no_attendance, effective_total, required, percentage, eligible, bunkable, needed, message, request_id, client_ip, created_at)
	VALUES (:id, :total, :attended, :no_attendance, :effective_total, :required, :percentage, :eligible, :bunkable, :needed, :message, :request_id, :client_ip, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create calculation: %w", err)
	}
	return nil
}

// GetByID returns sql.ErrNoRows when the id is unknown.
func (r *CalculationRepository) GetByID(ctx context.Context, id string) (*models.CalculationRecord, error) {
	defer r.observe("calculations.get", time.Now())

	query := `SELECT ` + calculationColumns + ` FROM attendance_calculations WHERE id = $1`
	var record models.CalculationRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns one page of calculations, newest first, plus the total count
// matching the filter.
func (r *CalculationRepository) List(ctx context.Context, filter models.CalculationFilter) ([]models.CalculationRecord, int, error) {
	defer r.observe("calculations.list", time.Now())

	where, args := calculationWhere(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM attendance_calculations`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count calculations: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM attendance_calculations%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		calculationColumns, where, size, (page-1)*size)
	records := make([]models.CalculationRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list calculations: %w", err)
	}
	return records, total, nil
}

// Stats aggregates the whole history.
func (r *CalculationRepository) Stats(ctx context.Context) (*models.CalculationStats, error) {
	defer r.observe("calculations.stats", time.Now())

	const query = `SELECT
		COUNT(*) AS total_calculations,
		COUNT(*) FILTER (WHERE eligible) AS eligible_count,
		COUNT(*) FILTER (WHERE NOT eligible) AS not_eligible_count,
		COUNT(*) FILTER (WHERE needed = -1) AS unreachable_count,
		COALESCE(AVG(percentage), 0)::float8 AS average_percentage,
		COALESCE(AVG(required), 0)::float8 AS average_required
	FROM attendance_calculations`
	var stats models.CalculationStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("calculation stats: %w", err)
	}
	return &stats, nil
}

func calculationWhere(filter models.CalculationFilter) (string, []interface{}) {
	conditions := make([]string, 0, 1)
	args := make([]interface{}, 0, 1)
	if filter.Eligible != nil {
		args = append(args, *filter.Eligible)
		conditions = append(conditions, fmt.Sprintf("eligible = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
