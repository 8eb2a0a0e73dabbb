package domain

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is a non-negative currency amount held as integer cents.
// It maps to NUMERIC(12,2) and never passes through float64.
type Money int64

// ParseMoney accepts "2500", "2500.5" and "2500.50". More than two
// fractional digits is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrValidation)
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	if !digits(whole) || !digits(frac) {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("%w: amount %q must have at most 2 decimal places", ErrValidation, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	if w > (math.MaxInt64-f)/100 {
		return 0, fmt.Errorf("%w: amount %q out of range", ErrValidation, s)
	}
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return Money(cents), nil
}

// digits reports whether s is empty or all ASCII digits; signs, spaces and
// separators are rejected.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustMoney panics on malformed input; for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Cents() int64 { return int64(m) }

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Value stores the amount as its decimal text so NUMERIC keeps exact precision.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	case int64:
		*m = Money(v * 100)
		return nil
	default:
		return fmt.Errorf("money: unsupported scan type %T", src)
	}
}

func (m *Money) scanString(s string) error {
	// NUMERIC(12,2) always comes back with two places, but tolerate
	// trailing zeros from wider columns.
	if whole, frac, ok := strings.Cut(s, "."); ok && len(frac) > 2 {
		frac = strings.TrimRight(frac, "0")
		s = whole
		if frac != "" {
			s += "." + frac
		}
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
