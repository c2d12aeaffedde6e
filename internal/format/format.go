// Package format renders money and weights for display in the shop's
// currency and locale.
package format

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/weight"
)

// Formatter is safe for concurrent use.
type Formatter struct {
	cur     currency.Unit
	tag     language.Tag
	printer *message.Printer
}

// New creates a Formatter for an ISO 4217 currency code and a BCP 47 locale.
func New(currencyCode, locale string) (*Formatter, error) {
	cur, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, errors.Wrapf(err, "currency %q", currencyCode)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, errors.Wrapf(err, "locale %q", locale)
	}
	return &Formatter{cur: cur, tag: tag, printer: message.NewPrinter(tag)}, nil
}

// Currency returns the ISO code, e.g. "USD".
func (f *Formatter) Currency() string {
	return f.cur.String()
}

// Money renders an amount with the currency symbol and locale grouping,
// e.g. "$ 1,234.50".
func (f *Formatter) Money(v decimal.Decimal) string {
	scale, _ := currency.Standard.Rounding(f.cur)
	amount, _ := v.Round(int32(scale)).Float64()
	return f.printer.Sprintf("%v %v",
		currency.Symbol(f.cur),
		number.Decimal(amount, number.Scale(scale)),
	)
}

// Weight renders a weight with up to three fraction digits and its unit,
// e.g. "1.25 kg".
func (f *Formatter) Weight(v decimal.Decimal, unit weight.Unit) string {
	w, _ := v.Round(3).Float64()
	return f.printer.Sprintf("%v %s", number.Decimal(w, number.MaxFractionDigits(3)), string(unit))
}
