// utils/bands.go
package utils

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gewnthar/permitsync/models"
)

var bandTokenRegex = regexp.MustCompile(`^(GSM|UMTS|LTE|5G|IOT)(\d{3,4})$`)

// bandRemaps corrects values where the registry encoding disagrees with the band catalog.
// NR 3600 is listed as 3500 in the catalog.
var bandRemaps = map[models.BandKey]models.BandKey{
	{RAT: models.RATNR, Value: 3600}: {RAT: models.RATNR, Value: 3500},
}

// DecodeBand parses a system-type token such as "LTE800" or "5G3600".
// It returns false for anything that is not a known technology followed by 3-4 digits.
func DecodeBand(token string) (models.BandKey, bool) {
	m := bandTokenRegex.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(token)))
	if m == nil {
		return models.BandKey{}, false
	}
	value, err := strconv.Atoi(m[2])
	if err != nil {
		return models.BandKey{}, false
	}

	rat := models.RAT(m[1])
	if m[1] == "5G" {
		rat = models.RATNR
	}
	key := models.BandKey{RAT: rat, Value: value}
	if remapped, ok := bandRemaps[key]; ok {
		key = remapped
	}
	return key, true
}
