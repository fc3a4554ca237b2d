package currency

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed rates.json
var defaultRates []byte

// RateTable is an immutable lookup of conversion rates keyed by ISO currency code.
// It is built once at startup and shared read-only.
type RateTable struct {
	entries map[string]RateEntry
}

type rateFile struct {
	Rates map[string]struct {
		Rate          string `json:"rate"`
		DecimalPlaces int32  `json:"decimal_places"`
	} `json:"rates"`
}

// NewRateTable copies entries into a new table. Codes are upper-cased.
func NewRateTable(entries map[string]RateEntry) (*RateTable, error) {
	table := &RateTable{entries: make(map[string]RateEntry, len(entries))}
	for code, entry := range entries {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) != 3 {
			return nil, fmt.Errorf("currency: invalid code %q", code)
		}
		if !entry.Rate.IsPositive() {
			return nil, fmt.Errorf("currency: rate for %s must be positive", code)
		}
		if entry.DecimalPlaces < 0 {
			return nil, fmt.Errorf("currency: decimal places for %s must not be negative", code)
		}
		table.entries[code] = entry
	}
	return table, nil
}

// ParseRateTable decodes a JSON rate file:
//
//	{"rates": {"USD": {"rate": "0.80", "decimal_places": 2}}}
func ParseRateTable(data []byte) (*RateTable, error) {
	var file rateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("currency: decode rates: %w", err)
	}

	entries := make(map[string]RateEntry, len(file.Rates))
	for code, raw := range file.Rates {
		rate, err := decimal.NewFromString(raw.Rate)
		if err != nil {
			return nil, fmt.Errorf("currency: rate for %s: %w", code, err)
		}
		entries[code] = RateEntry{Rate: rate, DecimalPlaces: raw.DecimalPlaces}
	}
	return NewRateTable(entries)
}

// LoadRateTable reads rates from path, or the embedded defaults when path is empty.
func LoadRateTable(path string) (*RateTable, error) {
	if path == "" {
		return ParseRateTable(defaultRates)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("currency: read rates file: %w", err)
	}
	return ParseRateTable(data)
}

// Lookup returns the entry for code.
func (t *RateTable) Lookup(code string) (RateEntry, bool) {
	if t == nil {
		return RateEntry{}, false
	}
	entry, ok := t.entries[strings.ToUpper(code)]
	return entry, ok
}

// Codes returns the supported currency codes in sorted order.
func (t *RateTable) Codes() []string {
	if t == nil {
		return nil
	}
	codes := make([]string, 0, len(t.entries))
	for code := range t.entries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of entries.
func (t *RateTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
