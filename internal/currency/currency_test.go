package currency

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTable(t *testing.T) {
	table := NewStaticTable(map[string]decimal.Decimal{
		"eur:usd": decimal.RequireFromString("1.08"),
	})

	rate, err := table.ExchangeRate(context.Background(), "EUR", "USD", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "1.08", rate.String())
}

func TestStaticTable_SameCurrency(t *testing.T) {
	table := NewStaticTable(nil)
	rate, err := table.ExchangeRate(context.Background(), "USD", "usd", time.Now())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestStaticTable_MissingPair(t *testing.T) {
	table := NewStaticTable(nil)
	_, err := table.ExchangeRate(context.Background(), "EUR", "USD", time.Now())
	assert.Error(t, err)
}
