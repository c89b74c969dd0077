package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawTransactionRecord_String(t *testing.T) {
	r := RawTransactionRecord{
		"entryReference":    "  REF-1 ",
		"transactionAmount": map[string]any{"value": "", "amount": 12.5},
		"debtor":            map[string]any{"name": "ACME"},
		"nested":            map[string]any{"list": []any{1, 2}},
		"empty":             nil,
	}

	assert.Equal(t, "REF-1", r.String("entryReference"))
	assert.Equal(t, "12.5", r.String("transactionAmount.value", "transactionAmount.amount"))
	assert.Equal(t, "ACME", r.String("debtorName", "debtor.name"))
	assert.Equal(t, "", r.String("nested.list"))
	assert.Equal(t, "", r.String("empty", "missing.path"))
	assert.Equal(t, "", r.String("entryReference.deeper"))
}

func TestRawTransactionRecord_Scan(t *testing.T) {
	t.Run("keeps numbers exact", func(t *testing.T) {
		var r RawTransactionRecord
		require.NoError(t, r.Scan([]byte(`{"transactionAmount":{"value":12345678901234.56,"currency":"EUR"}}`)))

		assert.Equal(t, "12345678901234.56", r.String("transactionAmount.value"))
		assert.Equal(t, "EUR", r.String("transactionAmount.currency"))
	})

	t.Run("string and nil", func(t *testing.T) {
		var r RawTransactionRecord
		require.NoError(t, r.Scan(`{"entryReference":"A"}`))
		assert.Equal(t, "A", r.String("entryReference"))

		require.NoError(t, r.Scan(nil))
		assert.Nil(t, r)
	})

	t.Run("unsupported type", func(t *testing.T) {
		var r RawTransactionRecord
		assert.Error(t, r.Scan(42))
	})

	t.Run("value round trip", func(t *testing.T) {
		v, err := RawTransactionRecord{"amount": "1.00"}.Value()
		require.NoError(t, err)

		var r RawTransactionRecord
		require.NoError(t, r.Scan(v))
		assert.Equal(t, "1.00", r.String("amount"))
	})
}
