package currency

import "strings"

// Formatter renders amounts for presentation. Formatting is applied only at
// output boundaries; storage and comparison always use Amount.String.
type Formatter struct {
	Symbol string
	Code   string
}

// DefaultFormatter renders Bangladeshi taka.
var DefaultFormatter = Formatter{Symbol: "৳", Code: "BDT"}

// NewFormatter returns a formatter for the given symbol and ISO code.
// An empty symbol falls back to the code.
func NewFormatter(symbol, code string) Formatter {
	if symbol == "" {
		symbol = code
	}
	return Formatter{Symbol: symbol, Code: code}
}

// Format renders a with the formatter's symbol and thousands separators,
// e.g. "৳5,500.00" or "-৳2,000.00".
func (f Formatter) Format(a Amount) string {
	digits := a.Abs().String()
	intPart, fracPart, _ := strings.Cut(digits, ".")

	var b strings.Builder
	if a.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(f.Symbol)
	b.WriteString(groupThousands(intPart))
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}

// Format renders a with DefaultFormatter.
func Format(a Amount) string {
	return DefaultFormatter.Format(a)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
