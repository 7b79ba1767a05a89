package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetColor(t *testing.T) {
	testCases := []struct {
		name     string
		value    float64
		rng      Range
		expected float64
	}{
		{"span from range", 2, Range{Min: 0, Max: 4}, 0.5},
		{"non-zero min", 6, Range{Min: 2, Max: 4}, 3},
		{"degenerate range", 5, Range{Min: 10, Max: 10}, 5},
		{"unset max", 0.3, Range{}, 0.3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got float64
			GetColor(tc.value, tc.rng, func(t float64) string {
				got = t
				return ""
			})
			assert.False(t, math.IsNaN(got))
			assert.False(t, math.IsInf(got, 0))
			assert.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestColorFuncFor(t *testing.T) {
	greys, err := ColorFuncFor("interpolateGreys")
	require.NoError(t, err)

	assert.Equal(t, "rgb(255, 255, 255)", greys(0))
	assert.Equal(t, "rgb(150, 150, 150)", greys(0.5))
	assert.Equal(t, "rgb(0, 0, 0)", greys(1))

	// Out of domain inputs clamp.
	assert.Equal(t, greys(0), greys(-3))
	assert.Equal(t, greys(1), greys(7))
	assert.Equal(t, greys(0), greys(math.NaN()))

	_, err = ColorFuncFor("interpolateNothing")
	assert.True(t, errors.Is(err, ErrUnknownColour))

	def, err := ColorFuncFor("")
	require.NoError(t, err)
	viridis, _ := ColorFuncFor("interpolateViridis")
	assert.Equal(t, viridis(0.4), def(0.4))
}

func TestRegisterColorFunc(t *testing.T) {
	RegisterColorFunc("testConstant", func(float64) string { return "red" })
	fn, err := ColorFuncFor("testConstant")
	require.NoError(t, err)
	assert.Equal(t, "red", fn(0.5))
	assert.Contains(t, ColorScales(), "testConstant")
}

func TestColorForIndicator(t *testing.T) {
	meta := IndicatorMetadata{Colour: "interpolateGreys"}
	c, err := ColorForIndicator(0, meta, Range{Min: 0, Max: 1})
	require.NoError(t, err)
	assert.Equal(t, "rgb(255, 255, 255)", c)

	meta.InvertScale = true
	c, err = ColorForIndicator(0, meta, Range{Min: 0, Max: 1})
	require.NoError(t, err)
	assert.Equal(t, "rgb(0, 0, 0)", c)

	_, err = ColorForIndicator(0, IndicatorMetadata{Colour: "bogus"}, Range{})
	assert.ErrorIs(t, err, ErrUnknownColour)
}

func TestBuildLegend(t *testing.T) {
	meta := IndicatorMetadata{Colour: "interpolateGreys"}

	stops := BuildLegend(meta, Range{Min: 0, Max: 1}, 5)
	require.Len(t, stops, 5)
	assert.Equal(t, 0.0, stops[0].Value)
	assert.Equal(t, 0.5, stops[2].Value)
	assert.Equal(t, 1.0, stops[4].Value)
	assert.Equal(t, "rgb(255, 255, 255)", stops[0].Color)
	assert.Equal(t, "rgb(0, 0, 0)", stops[4].Color)

	single := BuildLegend(meta, Range{Min: 3, Max: 3}, 5)
	assert.Len(t, single, 1)
}
