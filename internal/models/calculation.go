package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Calculation outcomes used for metrics and history filtering.
const (
	OutcomeEligible    = "eligible"
	OutcomeNeedsMore   = "needs_more"
	OutcomeUnreachable = "unreachable"
)

// NeededUnreachable marks a shortfall that no number of attended lectures can
// recover from (a 100% requirement that is not already met).
const NeededUnreachable int64 = -1

// CalculationInput carries the four validated numbers behind a calculation.
// Field order mirrors the order validation failures are reported in.
type CalculationInput struct {
	TotalLectures       int64           `json:"total" validate:"gt=0"`
	AttendedLectures    int64           `json:"attended" validate:"gte=0"`
	NoAttendanceClasses int64           `json:"no_attendance" validate:"gte=0"`
	RequiredPercentage  decimal.Decimal `json:"required" validate:"percent"`
}

// EffectiveTotal is the denominator once no-attendance classes are removed.
func (in CalculationInput) EffectiveTotal() int64 {
	return in.TotalLectures - in.NoAttendanceClasses
}

// CalculationResult is the response of POST /calculate.
type CalculationResult struct {
	Eligible       bool    `json:"eligible"`
	Percentage     float64 `json:"percentage"`
	Total          int64   `json:"total"`
	EffectiveTotal int64   `json:"effective_total"`
	Attended       int64   `json:"attended"`
	NoAttendance   int64   `json:"no_attendance"`
	Required       float64 `json:"required"`
	Bunkable       *int64  `json:"bunkable,omitempty"`
	Needed         *int64  `json:"needed,omitempty"`
	Message        string  `json:"message"`
}

// Outcome classifies the result for metrics and history.
func (r *CalculationResult) Outcome() string {
	switch {
	case r.Eligible:
		return OutcomeEligible
	case r.Needed != nil && *r.Needed == NeededUnreachable:
		return OutcomeUnreachable
	default:
		return OutcomeNeedsMore
	}
}

// CalculationRecord is a persisted calculation in attendance_calculations.
type CalculationRecord struct {
	ID             string    `db:"id" json:"id"`
	Total          int64     `db:"total" json:"total"`
	Attended       int64     `db:"attended" json:"attended"`
	NoAttendance   int64     `db:"no_attendance" json:"no_attendance"`
	EffectiveTotal int64     `db:"effective_total" json:"effective_total"`
	Required       float64   `db:"required" json:"required"`
	Percentage     float64   `db:"percentage" json:"percentage"`
	Eligible       bool      `db:"eligible" json:"eligible"`
	Bunkable       *int64    `db:"bunkable" json:"bunkable,omitempty"`
	Needed         *int64    `db:"needed" json:"needed,omitempty"`
	Message        string    `db:"message" json:"message"`
	RequestID      string    `db:"request_id" json:"request_id,omitempty"`
	ClientIP       string    `db:"client_ip" json:"client_ip,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// NewCalculationRecord snapshots a result together with request metadata.
func NewCalculationRecord(result *CalculationResult, meta CalculationMeta) *CalculationRecord {
	return &CalculationRecord{
		Total:          result.Total,
		Attended:       result.Attended,
		NoAttendance:   result.NoAttendance,
		EffectiveTotal: result.EffectiveTotal,
		Required:       result.Required,
		Percentage:     result.Percentage,
		Eligible:       result.Eligible,
		Bunkable:       result.Bunkable,
		Needed:         result.Needed,
		Message:        result.Message,
		RequestID:      meta.RequestID,
		ClientIP:       meta.ClientIP,
		CreatedAt:      time.Now().UTC(),
	}
}

// CalculationMeta describes the request a calculation came from.
type CalculationMeta struct {
	RequestID string
	ClientIP  string
}

// CalculationFilter narrows history listings.
type CalculationFilter struct {
	Eligible *bool
	Page     int
	PageSize int
}

// CalculationStats aggregates the stored history.
type CalculationStats struct {
	TotalCalculations int64     `db:"total_calculations" json:"total_calculations"`
	EligibleCount     int64     `db:"eligible_count" json:"eligible_count"`
	NotEligibleCount  int64     `db:"not_eligible_count" json:"not_eligible_count"`
	UnreachableCount  int64     `db:"unreachable_count" json:"unreachable_count"`
	AveragePercentage float64   `db:"average_percentage" json:"average_percentage"`
	AverageRequired   float64   `db:"average_required" json:"average_required"`
	GeneratedAt       time.Time `db:"-" json:"generated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
