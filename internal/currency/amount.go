// Package currency implements fixed-point monetary amounts with exactly two
// decimal places. Amounts are never represented as binary floating point.
package currency

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits carried by every Amount.
const Places = 2

// ErrInvalidFormat is returned when text cannot be parsed as an amount.
var ErrInvalidFormat = errors.New("invalid amount format")

var numberPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Amount is a signed monetary value rounded to Places decimal digits.
// The zero value is 0.00.
type Amount struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Amount{}

// Parse converts user or storage text into an Amount.
//
// Accepted forms include "5500", "5500.5", "5,500.00", "৳5,500.00", "-৳2,000.00",
// "BDT 1200" and "Tk -10". Input that is empty, non-numeric, or carries
// significant digits beyond two decimal places fails with ErrInvalidFormat.
func Parse(text string) (Amount, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty amount", ErrInvalidFormat)
	}

	s, neg, signed := stripSign(s)
	s = stripCurrencyPrefix(s)
	if !signed {
		s, neg, _ = stripSign(s)
	}
	s = strings.ReplaceAll(s, ",", "")

	if !numberPattern.MatchString(s) {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}
	if !d.Equal(d.Round(Places)) {
		return Zero, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidFormat, text, Places)
	}
	if neg {
		d = d.Neg()
	}

	return Amount{d: d.Round(Places)}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(text string) Amount {
	a, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return a
}

// FromDecimal rounds d to an Amount.
func FromDecimal(d decimal.Decimal) Amount {
	return Round(d)
}

// FromMinorUnits builds an Amount from an integer count of minor units (paisa, cents).
func FromMinorUnits(units int64) Amount {
	return Amount{d: decimal.New(units, -Places)}
}

// Round rounds d to exactly two decimal places, halves away from zero.
func Round(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Places)}
}

// Sum adds all amounts.
func Sum(amounts ...Amount) Amount {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.d)
	}
	return Amount{d: total}
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Neg() Amount         { return Amount{d: a.d.Neg()} }
func (a Amount) Abs() Amount         { return Amount{d: a.d.Abs()} }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) Equal(b Amount) bool    { return a.d.Equal(b.d) }
func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }
func (a Amount) IsZero() bool           { return a.d.IsZero() }
func (a Amount) IsNegative() bool       { return a.d.IsNegative() }
func (a Amount) IsPositive() bool       { return a.d.IsPositive() }

// Decimal exposes the underlying value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// String returns the canonical storage form, e.g. "-2000.00".
func (a Amount) String() string {
	return a.d.StringFixed(Places)
}

// MarshalJSON encodes the amount as a canonical string to avoid float decoding by clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both quoted and bare numeric forms.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var text string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	} else {
		text = string(data)
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func stripSign(s string) (rest string, negative bool, found bool) {
	switch {
	case strings.HasPrefix(s, "-"):
		return strings.TrimSpace(s[1:]), true, true
	case strings.HasPrefix(s, "+"):
		return strings.TrimSpace(s[1:]), false, true
	}
	return s, false, false
}

// stripCurrencyPrefix removes a leading currency sign (৳, $, €) or a short
// alphabetic code (Tk, BDT, USD).
func stripCurrencyPrefix(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r != utf8.RuneError && unicode.Is(unicode.Sc, r) {
		return strings.TrimSpace(s[size:])
	}

	i := 0
	for i < len(s) && ((s[i] >= 'a' && s[i] <= 'z') || (s[i] >= 'A' && s[i] <= 'Z')) {
		i++
	}
	if i >= 2 && i <= 3 {
		return strings.TrimSpace(s[i:])
	}
	return s
}
