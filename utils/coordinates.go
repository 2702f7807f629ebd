// utils/coordinates.go
package utils

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidCoordinate is returned for empty, malformed or out-of-range DMS input.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// dmsRegex matches tokens like 20E58'40'' or 52N13'56.5".
var dmsRegex = regexp.MustCompile(`^(?P<deg>\d{1,3})(?P<hemi>[NSEW])(?P<min>\d{1,2})'(?P<sec>\d{1,2}(?:\.\d+)?)(?:''|")?$`)

// ParseDMS converts a degree/hemisphere/minute/second token into signed decimal degrees.
func ParseDMS(s string) (float64, error) {
	m := dmsRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q does not match DMS pattern", ErrInvalidCoordinate, s)
	}
	deg, _ := strconv.ParseFloat(m[dmsRegex.SubexpIndex("deg")], 64)
	min, _ := strconv.ParseFloat(m[dmsRegex.SubexpIndex("min")], 64)
	sec, err := strconv.ParseFloat(m[dmsRegex.SubexpIndex("sec")], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds in %q: %v", ErrInvalidCoordinate, s, err)
	}
	if min >= 60 || sec >= 60 {
		return 0, fmt.Errorf("%w: minutes or seconds out of range in %q", ErrInvalidCoordinate, s)
	}

	value := deg + min/60 + sec/3600
	switch m[dmsRegex.SubexpIndex("hemi")] {
	case "S", "W":
		value = -value
	}
	return value, nil
}

// DecimalDegrees converts the fixed-width DDMMSS encoding used by the permit
// registry into decimal degrees rounded to 6 places. hemi is "N" for latitude
// and "E" for longitude ("S" and "W" give negative results).
func DecimalDegrees(raw, hemi string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 6 {
		return 0, fmt.Errorf("%w: %q is not a 6-digit DDMMSS value", ErrInvalidCoordinate, raw)
	}
	token := fmt.Sprintf("%s%s%s'%s''", raw[0:2], strings.ToUpper(hemi), raw[2:4], raw[4:6])
	value, err := ParseDMS(token)
	if err != nil {
		return 0, err
	}
	return RoundTo6(value), nil
}

// RoundTo6 rounds a decimal-degree value to 6 decimal places.
func RoundTo6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
