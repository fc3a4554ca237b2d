package roundup

import (
	"time"

	"github.com/richxcame/roundup/internal/currency"
)

// Calculator sums the spare change on outbound transactions in base minor units.
type Calculator struct {
	converter *currency.Converter
}

// NewCalculator creates a calculator that converts through converter.
func NewCalculator(converter *currency.Converter) *Calculator {
	return &Calculator{converter: converter}
}

// Calculate returns the round-up total for txns. Only OUT transactions count; each amount
// is converted to base minor units and contributes 100 - (a mod 100) unless it is a whole
// unit. Unsupported currencies convert to 0 and so contribute nothing.
func (c *Calculator) Calculate(txns []Transaction) int64 {
	var total int64
	for _, txn := range txns {
		total += c.contribution(txn)
	}
	return total
}

// CalculateForWeek is Calculate restricted to transactions timestamped inside the week.
// Transactions without a timestamp are trusted to belong to the window they were fetched for.
func (c *Calculator) CalculateForWeek(txns []Transaction, week time.Time) int64 {
	start, end := WeekBounds(week)
	var total int64
	for _, txn := range txns {
		if !txn.Timestamp.IsZero() && (txn.Timestamp.Before(start) || !txn.Timestamp.Before(end)) {
			continue
		}
		total += c.contribution(txn)
	}
	return total
}

func (c *Calculator) contribution(txn Transaction) int64 {
	if txn.Direction != DirectionOut {
		return 0
	}
	amount := c.converter.ToBase(txn.Amount.Currency, txn.Amount.MinorUnits)
	if amount < 0 {
		// feeds can carry signed amounts for outbound items; round up the spend itself
		amount = -amount
	}
	remainder := amount % 100
	if remainder == 0 {
		return 0
	}
	return 100 - remainder
}
