// Package currency resolves exchange rates between currency pairs.
package currency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Converter resolves the exchange rate from one currency to another as of a
// given date.
type Converter interface {
	ExchangeRate(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error)
}

// StaticTable is a Converter backed by a fixed rate table. Pairs are keyed
// "FROM:TO"; a missing pair is an error, never a guessed rate.
type StaticTable struct {
	rates map[string]decimal.Decimal
}

// NewStaticTable creates a StaticTable from a pair->rate map.
func NewStaticTable(rates map[string]decimal.Decimal) *StaticTable {
	normalized := make(map[string]decimal.Decimal, len(rates))
	for pair, rate := range rates {
		normalized[strings.ToUpper(pair)] = rate
	}
	return &StaticTable{rates: normalized}
}

// ExchangeRate implements Converter.
func (t *StaticTable) ExchangeRate(_ context.Context, from, to string, _ time.Time) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return decimal.NewFromInt(1), nil
	}

	pair := strings.ToUpper(from + ":" + to)
	rate, ok := t.rates[pair]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no exchange rate for %s", pair)
	}
	return rate, nil
}
