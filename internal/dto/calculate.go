package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

var (
	errMissing    = errors.New("value missing")
	errNotNumeric = errors.New("value is not numeric")
	errOutOfRange = errors.New("value out of range")
)

// NumericField keeps the raw JSON token of a calculator input so that both
// JSON numbers and numeric strings (as posted by HTML forms) are accepted.
type NumericField struct {
	raw     []byte
	present bool
}

// UnmarshalJSON records the raw token, including an explicit null.
func (n *NumericField) UnmarshalJSON(data []byte) error {
	n.raw = append(n.raw[:0], data...)
	n.present = true
	return nil
}

// MarshalJSON writes the token back unchanged.
func (n NumericField) MarshalJSON() ([]byte, error) {
	if !n.present {
		return []byte("null"), nil
	}
	return n.raw, nil
}

// Present reports whether the key appeared in the payload.
func (n NumericField) Present() bool {
	return n.present
}

// Int parses the value as an integer. Fractional JSON numbers are truncated
// toward zero; fractional strings are rejected.
func (n NumericField) Int() (int64, error) {
	text, quoted, err := n.literal()
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, nil
	}
	if quoted {
		return 0, errNotNumeric
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, errNotNumeric
	}
	whole := d.Truncate(0).BigInt()
	if !whole.IsInt64() {
		return 0, errOutOfRange
	}
	return whole.Int64(), nil
}

// Decimal parses the value as an exact decimal.
func (n NumericField) Decimal() (decimal.Decimal, error) {
	text, _, err := n.literal()
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, errNotNumeric
	}
	return d, nil
}

func (n NumericField) literal() (text string, quoted bool, err error) {
	if !n.present {
		return "", false, errMissing
	}
	raw := bytes.TrimSpace(n.raw)
	if len(raw) == 0 {
		return "", false, errNotNumeric
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", true, errNotNumeric
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", true, errNotNumeric
		}
		return s, true, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw), false, nil
	default:
		// null, booleans, objects and arrays
		return "", false, errNotNumeric
	}
}

// CalculateRequest is the POST /calculate payload.
type CalculateRequest struct {
	Total        NumericField `json:"total"`
	Attended     NumericField `json:"attended"`
	NoAttendance NumericField `json:"no_attendance"`
	Required     NumericField `json:"required"`
}

// ToInput converts the payload into calculator input. Any value that cannot be
// read as a number yields ErrInvalidInput; range checks are left to the
// calculator.
func (r CalculateRequest) ToInput(defaultRequired decimal.Decimal) (models.CalculationInput, error) {
	var in models.CalculationInput
	var err error

	if in.TotalLectures, err = r.Total.Int(); err != nil {
		return in, invalidInput(err)
	}
	if in.AttendedLectures, err = r.Attended.Int(); err != nil {
		return in, invalidInput(err)
	}
	if in.NoAttendanceClasses, err = r.NoAttendance.Int(); err != nil {
		return in, invalidInput(err)
	}

	in.RequiredPercentage = defaultRequired
	if r.Required.Present() {
		if in.RequiredPercentage, err = r.Required.Decimal(); err != nil {
			return in, invalidInput(err)
		}
	}
	return in, nil
}

func invalidInput(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, appErrors.ErrInvalidInput.Message)
}
