package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Cents
	}{
		{"0", 0},
		{"12", 1200},
		{"12.5", 1250},
		{"12.34", 1234},
		{"-3.07", -307},
		{"0.005", 1},
		{"-0.005", -1},
		{"19.999", 2000},
		{"10000000000000", MaxAbs},
		{"-10000000000000", -MaxAbs},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1,50", "10000000000000.01", "-1e20", "1e400"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", in)
	}
}

func TestFromFloat(t *testing.T) {
	c, err := FromFloat(0.1 + 0.2)
	require.NoError(t, err)
	assert.Equal(t, Cents(30), c)

	c, err = FromFloat(-50)
	require.NoError(t, err)
	assert.Equal(t, Cents(-5000), c)

	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := FromFloat(f)
		assert.ErrorIs(t, err, ErrNotFinite)
	}

	for _, f := range []float64{1e20, -5e16, 1e13 + 0.01} {
		_, err := FromFloat(f)
		assert.ErrorIs(t, err, ErrOutOfRange, "input %v", f)
	}
	c, err = FromFloat(1e13)
	require.NoError(t, err)
	assert.Equal(t, MaxAbs, c)
}

func TestCents_InRange(t *testing.T) {
	assert.True(t, MaxAbs.InRange())
	assert.True(t, (-MaxAbs).InRange())
	assert.False(t, (MaxAbs + 1).InRange())
	assert.False(t, (-MaxAbs - 1).InRange())
}

func TestCents_Format(t *testing.T) {
	assert.Equal(t, "12.30", Cents(1230).String())
	assert.Equal(t, "-0.05", Cents(-5).String())
	assert.Equal(t, "0.00", Cents(0).String())
	assert.Equal(t, 12.3, Cents(1230).Float64())
	assert.Equal(t, Cents(5), Cents(-5).Abs())
}
