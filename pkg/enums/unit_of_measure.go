package enums

import (
	"fmt"
	"strings"
)

// UnitOfMeasure is the unit a line quantity is expressed in.
type UnitOfMeasure string

const (
	UnitKG  UnitOfMeasure = "KG"
	UnitTON UnitOfMeasure = "TON"
	UnitCX  UnitOfMeasure = "CX"
	UnitUND UnitOfMeasure = "UND"
	UnitML  UnitOfMeasure = "ML"
	UnitLT  UnitOfMeasure = "LT"
)

var validUnitsOfMeasure = []UnitOfMeasure{
	UnitKG,
	UnitTON,
	UnitCX,
	UnitUND,
	UnitML,
	UnitLT,
}

// String implements fmt.Stringer.
func (u UnitOfMeasure) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UnitOfMeasure.
func (u UnitOfMeasure) IsValid() bool {
	for _, candidate := range validUnitsOfMeasure {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnitOfMeasure converts raw input into a UnitOfMeasure. Matching is case-insensitive.
func ParseUnitOfMeasure(value string) (UnitOfMeasure, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validUnitsOfMeasure {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit of measure %q", value)
}
