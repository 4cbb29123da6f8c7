package service

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

func TestParseAmountAccepts(t *testing.T) {
	cases := map[string]string{
		`5000`:        "5000",
		`"5000"`:      "5000",
		`" 2500.50 "`: "2500.5",
		`0.01`:        "0.01",
		`1e3`:         "1000",
		`12.500`:      "12.5",
	}
	for raw, want := range cases {
		got, err := ParseAmount(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s parsed as %s", raw, got)
	}
}

func TestParseAmountAcceptsColumnMaximum(t *testing.T) {
	value, err := ParseAmount(json.RawMessage(`"999999999999.99"`))
	require.NoError(t, err)
	assert.True(t, value.Equal(models.MaxAmount))
}

func TestParseAmountRejects(t *testing.T) {
	for _, raw := range []string{``, `null`, `0`, `-5`, `"abc"`, `""`, `"NaN"`, `"Infinity"`, `true`, `{}`, `12.345`, `"0x10"`, `"1_000"`,
		`1e20`, `"1e20"`, `1000000000000`, `"999999999999.995"`} {
		_, err := ParseAmount(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}
