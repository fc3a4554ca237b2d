package currency

import (
	"github.com/shopspring/decimal"
)

// RateEntry converts one foreign currency into the base currency.
type RateEntry struct {
	Rate          decimal.Decimal `json:"rate"`           // base units per 1 unit of this currency
	DecimalPlaces int32           `json:"decimal_places"` // minor-unit digits of this currency
}

// Money is an amount in minor units.
type Money struct {
	Currency   string `json:"currency"`
	MinorUnits int64  `json:"minorUnits"`
}

// RateResponse is the API shape of one rate table entry.
type RateResponse struct {
	Currency      string `json:"currency"`
	Rate          string `json:"rate"`
	DecimalPlaces int32  `json:"decimal_places"`
}

// ConvertResponse is the API shape of a conversion.
type ConvertResponse struct {
	Original  Money `json:"original"`
	Converted Money `json:"converted"`
	Supported bool  `json:"supported"`
}
