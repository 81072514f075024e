package service

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

var (
	minRequired = decimal.NewFromInt(1)
	maxRequired = decimal.NewFromInt(100)
	hundred     = big.NewRat(100, 1)
)

// inputErrors maps the first failing CalculationInput field to its error.
var inputErrors = map[string]*appErrors.Error{
	"TotalLectures":       appErrors.ErrInvalidTotal,
	"AttendedLectures":    appErrors.ErrNegativeAttended,
	"NoAttendanceClasses": appErrors.ErrNegativeNoAttendance,
	"RequiredPercentage":  appErrors.ErrInvalidRequired,
}

// Calculator turns lecture counts into an eligibility verdict and a projection
// of how many lectures can be skipped or must still be attended. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	validator *validator.Validate
}

// NewCalculator registers the percentage rules on validate (a fresh validator
// when nil) and returns a calculator using it.
func NewCalculator(validate *validator.Validate) *Calculator {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterCustomTypeFunc(decimalString, decimal.Decimal{})
	if err := validate.RegisterValidation("percent", validPercent); err != nil {
		panic(fmt.Sprintf("register percent validation: %v", err))
	}
	return &Calculator{validator: validate}
}

var defaultCalculator = NewCalculator(nil)

// Compute evaluates in with the package default calculator.
func Compute(in models.CalculationInput) (*models.CalculationResult, error) {
	return defaultCalculator.Compute(in)
}

// Compute validates in and derives the attendance result. Eligibility and both
// projections use exact rational arithmetic; only the reported percentage is
// rounded.
func (c *Calculator) Compute(in models.CalculationInput) (*models.CalculationResult, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}

	effective := in.EffectiveTotal()
	if effective <= 0 {
		return nil, appErrors.ErrNoValidLectures
	}
	if in.AttendedLectures > effective {
		return nil, appErrors.ErrAttendedExceedsTotal
	}

	attended := new(big.Rat).SetInt64(in.AttendedLectures)
	total := new(big.Rat).SetInt64(effective)
	required := in.RequiredPercentage.Rat()

	// attended/effective*100 >= required, cross-multiplied.
	eligible := new(big.Rat).Mul(attended, hundred).Cmp(new(big.Rat).Mul(required, total)) >= 0

	percentage := decimal.NewFromInt(in.AttendedLectures).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(effective), 2)

	result := &models.CalculationResult{
		Eligible:       eligible,
		Percentage:     percentage.InexactFloat64(),
		Total:          in.TotalLectures,
		EffectiveTotal: effective,
		Attended:       in.AttendedLectures,
		NoAttendance:   in.NoAttendanceClasses,
		Required:       in.RequiredPercentage.InexactFloat64(),
	}
	label := formatPercent(in.RequiredPercentage)

	if eligible {
		bunkable := maxBunkable(attended, total, required)
		result.Bunkable = &bunkable
		if bunkable > 0 {
			result.Message = fmt.Sprintf("You can safely skip up to %d more %s and still stay above %s%%.", bunkable, lectures(bunkable), label)
		} else {
			result.Message = "You're right at the boundary — don't skip any more classes!"
		}
		return result, nil
	}

	if required.Cmp(hundred) >= 0 {
		needed := models.NeededUnreachable
		result.Needed = &needed
		result.Message = "100% required — impossible to recover by attending more."
		return result, nil
	}

	needed := minNeeded(attended, total, required)
	result.Needed = &needed
	result.Message = fmt.Sprintf("You must attend %d more %s continuously to reach %s%%.", needed, lectures(needed), label)
	return result, nil
}

func (c *Calculator) validate(in models.CalculationInput) error {
	err := c.validator.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if mapped, ok := inputErrors[fieldErrs[0].StructField()]; ok {
			return mapped
		}
	}
	return appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, appErrors.ErrInvalidInput.Message)
}

// maxBunkable is the largest x >= 0 with attended/(total+x) >= required/100,
// i.e. floor(attended*100/required - total).
func maxBunkable(attended, total, required *big.Rat) int64 {
	bound := new(big.Rat).Mul(attended, hundred)
	bound.Quo(bound, required)
	bound.Sub(bound, total)
	return clampCount(floorRat(bound))
}

// minNeeded is the smallest x >= 0 with (attended+x)/(total+x) >= required/100,
// i.e. ceil((required*total - 100*attended) / (100 - required)).
func minNeeded(attended, total, required *big.Rat) int64 {
	num := new(big.Rat).Mul(required, total)
	num.Sub(num, new(big.Rat).Mul(attended, hundred))
	den := new(big.Rat).Sub(hundred, required)
	return clampCount(ceilRat(num.Quo(num, den)))
}

func floorRat(r *big.Rat) *big.Int {
	// Int.Div is Euclidean; with a positive denominator it floors.
	return new(big.Int).Div(r.Num(), r.Denom())
}

func ceilRat(r *big.Rat) *big.Int {
	neg := new(big.Rat).Neg(r)
	return new(big.Int).Neg(floorRat(neg))
}

func clampCount(v *big.Int) int64 {
	if v.Sign() < 0 {
		return 0
	}
	if !v.IsInt64() {
		return math.MaxInt64
	}
	return v.Int64()
}

func lectures(n int64) string {
	if n == 1 {
		return "lecture"
	}
	return "lectures"
}

// formatPercent renders the threshold the way users typed it into the form:
// shortest float form, always with a fractional part ("75.0", "66.67").
func formatPercent(d decimal.Decimal) string {
	s := strconv.FormatFloat(d.InexactFloat64(), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func decimalString(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func validPercent(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.GreaterThanOrEqual(minRequired) && d.LessThanOrEqual(maxRequired)
}
