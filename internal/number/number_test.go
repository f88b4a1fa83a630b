package number

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "PAY-0007", FormatPayment(7))
	assert.Equal(t, "EXP-0012", FormatExpense(12))
	assert.Equal(t, "INV-1234", FormatInvoice(1234))
	assert.Equal(t, "PAY-10001", FormatPayment(10001))
}

func TestParse(t *testing.T) {
	prefix, seq, err := Parse("PAY-0007")
	require.NoError(t, err)
	assert.Equal(t, "PAY", prefix)
	assert.Equal(t, 7, seq)
}

func TestParse_Invalid(t *testing.T) {
	_, _, err := Parse("no-dash-number-x")
	assert.Error(t, err)

	_, _, err = Parse("PAY0007")
	assert.Error(t, err)
}
