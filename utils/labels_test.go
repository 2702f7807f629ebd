package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabel(t *testing.T) {
	tests := map[string]string{
		"Dł. geogr. stacji":  "dl geogr stacji",
		"  SZER GEOGR STACJI": "szer geogr stacji",
		"Województwo":        "wojewodztwo",
		"Miejscowość":        "miejscowosc",
		"\uFEFFIdStacji":    "idstacji",
		"Nr_decyzji":         "nr decyzji",
		"Data   ważności":    "data waznosci",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLabel(in), in)
	}
}
