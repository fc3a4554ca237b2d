package currency

import (
	"strings"

	"github.com/richxcame/roundup/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// divisionPrecision is the number of fractional digits kept before the final rounding.
const divisionPrecision = 10

var hundred = decimal.NewFromInt(100)

// Converter maps foreign minor units into base-currency minor units.
type Converter struct {
	baseCurrency string
	rates        *RateTable
}

// NewConverter creates a converter for baseCurrency backed by rates.
func NewConverter(baseCurrency string, rates *RateTable) *Converter {
	return &Converter{
		baseCurrency: strings.ToUpper(baseCurrency),
		rates:        rates,
	}
}

// BaseCurrency returns the currency every amount is converted into.
func (c *Converter) BaseCurrency() string {
	return c.baseCurrency
}

// Supports reports whether amounts in code can be converted.
func (c *Converter) Supports(code string) bool {
	if strings.EqualFold(code, c.baseCurrency) {
		return true
	}
	_, ok := c.rates.Lookup(code)
	return ok
}

// ToBase converts minorUnits of code into base minor units.
// Base-currency amounts are returned unchanged. Unsupported currencies convert to 0
// so that the caller drops them rather than failing the whole batch.
func (c *Converter) ToBase(code string, minorUnits int64) int64 {
	if strings.EqualFold(code, c.baseCurrency) {
		return minorUnits
	}

	entry, ok := c.rates.Lookup(code)
	if !ok {
		logger.Warn("unsupported currency, excluding amount",
			zap.String("currency", code),
			zap.String("base_currency", c.baseCurrency),
		)
		return 0
	}

	return convert(minorUnits, entry).IntPart()
}

// ToBaseDecimal converts minorUnits of code into whole base-currency units.
func (c *Converter) ToBaseDecimal(code string, minorUnits int64) (decimal.Decimal, bool) {
	if strings.EqualFold(code, c.baseCurrency) {
		return decimal.New(minorUnits, -2), true
	}
	entry, ok := c.rates.Lookup(code)
	if !ok {
		return decimal.Zero, false
	}
	return convert(minorUnits, entry).Shift(-2), true
}

// convert returns base minor units rounded half-up to an integer.
func convert(minorUnits int64, entry RateEntry) decimal.Decimal {
	scale := decimal.New(1, entry.DecimalPlaces)
	units := decimal.NewFromInt(minorUnits).DivRound(scale, divisionPrecision)
	return units.Mul(entry.Rate).Mul(hundred).Round(0)
}
