package product

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ParsePrice parses decimal price text. Exponent notation is accepted;
// negative values are rejected.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.New("must be numeric")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	return d, nil
}

// FormatPrice renders price text as Indian rupees with lakh/crore digit
// grouping and two fraction digits, e.g. "₹1,23,456.50". Text that does not
// parse is returned unchanged.
func FormatPrice(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return s
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "₹" + groupIndian(whole) + "." + frac
}

// groupIndian inserts separators after the last three digits and then after
// every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var b strings.Builder
	lead := len(head) % 2
	if lead > 0 {
		b.WriteString(head[:lead])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}
