package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_ZeroValue(t *testing.T) {
	var a Amount
	assert.True(t, a.IsZero())
	assert.Equal(t, "0", a.String())
	assert.True(t, a.Equal(ZeroAmount()))
}

func TestAmount_Arithmetic(t *testing.T) {
	a := NewAmount(100)
	b := NewAmount(30)

	assert.Equal(t, "130", a.Add(b).String())
	assert.Equal(t, "70", a.Sub(b).String())
	assert.Equal(t, "300", b.MulInt(10).String())

	// operands are untouched
	assert.Equal(t, "100", a.String())
	assert.Equal(t, "30", b.String())
}

func TestAmount_SubGoesNegative(t *testing.T) {
	delta := NewAmount(5).Sub(NewAmount(8))
	assert.True(t, delta.IsNegative())
	assert.Equal(t, "-3", delta.String())
}

func TestAmount_ExceedsInt64(t *testing.T) {
	// 50 tokens with 18 decimals: 5 * 10^19, beyond int64.
	a := MustParseAmount("50000000000000000000")
	doubled := a.MulInt(2)
	assert.Equal(t, "100000000000000000000", doubled.String())
	assert.Equal(t, 1, doubled.Cmp(a))
}

func TestParseAmount_Invalid(t *testing.T) {
	_, err := ParseAmount("12.5")
	require.Error(t, err)
	_, err = ParseAmount("abc")
	require.Error(t, err)
	_, err = ParseAmount("")
	require.Error(t, err)
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	a := MustParseAmount("123456789012345678901234567890")

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890"`, string(data))

	var back Amount
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, a.Equal(back))
}

func TestAmount_Scan(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan("42"))
	assert.Equal(t, "42", a.String())

	require.NoError(t, a.Scan([]byte("77")))
	assert.Equal(t, "77", a.String())

	require.NoError(t, a.Scan(nil))
	assert.True(t, a.IsZero())

	assert.Error(t, a.Scan(3.14))
}
