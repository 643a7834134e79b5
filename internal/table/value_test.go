package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCell(t *testing.T) {
	assert.False(t, Cell("").Valid())
	assert.False(t, Cell("   ").Valid())
	assert.Equal(t, " ab-12 ", Cell(" ab-12 ").String())
}

func TestMissingIsNotEmptyString(t *testing.T) {
	assert.False(t, Missing.Valid())
	assert.True(t, Str("").Valid())
	assert.NotEqual(t, Missing, Str(""))
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   Value
		want float64
		ok   bool
	}{
		{Str("120"), 120, true},
		{Str(" 95.5 "), 95.5, true},
		{Str("12,5"), 12.5, true},
		{Str("1 250"), 1250, true},
		{Str("n/a"), 0, false},
		{Str("Unspecified"), 0, false},
		{Missing, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.in.Float()
		assert.Equal(t, tt.ok, ok, tt.in.String())
		assert.InDelta(t, tt.want, got, 1e-9, tt.in.String())
	}
}

func TestFloatConstructor(t *testing.T) {
	assert.Equal(t, "120", Float(120).String())
	assert.Equal(t, "95.25", Float(95.25).String())
}

func TestBoolAndOr(t *testing.T) {
	assert.True(t, Bool(true).Bool())
	assert.False(t, Bool(false).Bool())
	assert.False(t, Missing.Bool())
	assert.Equal(t, "x", Missing.Or(Str("x")).String())
	assert.Equal(t, "y", Str("y").Or(Str("x")).String())
}
