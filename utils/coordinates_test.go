package utils

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalDegrees(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		hemi string
		want float64
	}{
		{"longitude east", "205840", "E", 20.977778},
		{"latitude north", "521356", "N", 52.232222},
		{"zero", "000000", "N", 0},
		{"west is negative", "205840", "W", -20.977778},
		{"south is negative", "521356", "S", -52.232222},
		{"surrounding whitespace", " 175959 ", "E", 17.999722},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecimalDegrees(tt.raw, tt.hemi)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDecimalDegreesRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "12345", "1234567", "2058AB", "206040", "205860"} {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			_, err := DecimalDegrees(raw, "E")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)
		})
	}
}

func TestDecimalDegreesRangeOverGrid(t *testing.T) {
	for deg := 0; deg < 100; deg += 7 {
		for min := 0; min < 60; min += 11 {
			for sec := 0; sec < 60; sec += 13 {
				raw := fmt.Sprintf("%02d%02d%02d", deg, min, sec)
				for _, hemi := range []string{"N", "E", "S", "W"} {
					got, err := DecimalDegrees(raw, hemi)
					require.NoError(t, err, raw)
					assert.False(t, math.IsNaN(got) || math.IsInf(got, 0), raw)
					assert.LessOrEqual(t, math.Abs(got), 180.0, raw)
					if (hemi == "S" || hemi == "W") && raw != "000000" {
						assert.Negative(t, got, raw)
					}
				}
			}
		}
	}
}

func TestParseDMS(t *testing.T) {
	got, err := ParseDMS(`52N13'56.5"`)
	require.NoError(t, err)
	assert.InDelta(t, 52+13.0/60+56.5/3600, got, 1e-9)

	got, err = ParseDMS("14W30'00")
	require.NoError(t, err)
	assert.InDelta(t, -14.5, got, 1e-9)

	_, err = ParseDMS("14X30'00''")
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
