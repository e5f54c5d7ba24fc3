package node

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Datatype is a Homie property datatype as published at $datatype.
type Datatype string

// Homie property datatypes.
const (
	DatatypeString   Datatype = "string"
	DatatypeInteger  Datatype = "integer"
	DatatypeFloat    Datatype = "float"
	DatatypeBoolean  Datatype = "boolean"
	DatatypeEnum     Datatype = "enum"
	DatatypeColor    Datatype = "color"
	DatatypeDatetime Datatype = "datetime"
	DatatypeDuration Datatype = "duration"
)

// Valid reports whether d is a Homie datatype.
func (d Datatype) Valid() bool {
	switch d {
	case DatatypeString, DatatypeInteger, DatatypeFloat, DatatypeBoolean,
		DatatypeEnum, DatatypeColor, DatatypeDatetime, DatatypeDuration:
		return true
	default:
		return false
	}
}

// ParseDatatype converts s to a Datatype.
func ParseDatatype(s string) (Datatype, error) {
	d := Datatype(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDatatype, s)
	}
	return d, nil
}

// validate checks value against the datatype and, where the datatype
// defines one, the $format constraint.
//
//   - integer, float: format "min:max" bounds the value
//   - enum: format is the comma-separated list of allowed values
//   - color: format "rgb" or "hsv"; value is three comma-separated numbers
func (d Datatype) validate(value, format string) error {
	switch d {
	case DatatypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, value)
		}
		return checkRange(float64(n), value, format)

	case DatatypeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a float", ErrInvalidValue, value)
		}
		return checkRange(f, value, format)

	case DatatypeBoolean:
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, value)
		}

	case DatatypeEnum:
		for _, allowed := range strings.Split(format, ",") {
			if value == allowed {
				return nil
			}
		}
		return fmt.Errorf("%w: %q not in %q", ErrInvalidValue, value, format)

	case DatatypeColor:
		parts := strings.Split(value, ",")
		if len(parts) != 3 {
			return fmt.Errorf("%w: color %q needs three components", ErrInvalidValue, value)
		}
		for _, p := range parts {
			if _, err := strconv.ParseFloat(p, 64); err != nil {
				return fmt.Errorf("%w: color component %q", ErrInvalidValue, p)
			}
		}

	case DatatypeDatetime:
		if _, err := time.Parse(time.RFC3339, value); err != nil {
			return fmt.Errorf("%w: %q is not an ISO 8601 datetime", ErrInvalidValue, value)
		}
	}

	return nil
}

// checkRange applies a "min:max" format to a numeric value. Either bound
// may be omitted.
func checkRange(v float64, raw, format string) error {
	if format == "" {
		return nil
	}
	lo, hi, ok := strings.Cut(format, ":")
	if !ok {
		return nil
	}
	if lo != "" {
		if lower, err := strconv.ParseFloat(lo, 64); err == nil && v < lower {
			return fmt.Errorf("%w: %s below %s", ErrInvalidValue, raw, lo)
		}
	}
	if hi != "" {
		if upper, err := strconv.ParseFloat(hi, 64); err == nil && v > upper {
			return fmt.Errorf("%w: %s above %s", ErrInvalidValue, raw, hi)
		}
	}
	return nil
}
