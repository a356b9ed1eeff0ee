package units

import (
	"fmt"
	"math"
)

// Sentinel marks a failed conversion. No physical quantity in this domain is negative.
const Sentinel = -1.0

type Measurement struct {
	Value float64 `json:"value" toml:"value"`
	Unit  string  `json:"unit" toml:"unit"`
}

func New(value float64, unit string) Measurement {
	return Measurement{Value: value, Unit: unit}
}

// Fail returns the sentinel measurement. Its unit carries no meaning.
func Fail(unit string) Measurement {
	return Measurement{Value: Sentinel, Unit: unit}
}

func (m Measurement) Failed() bool {
	return m.Value == Sentinel
}

// Round rounds to the given number of decimal places. Sentinels pass through untouched.
func (m Measurement) Round(places int) Measurement {
	if m.Failed() {
		return m
	}
	p := math.Pow(10, float64(places))
	return Measurement{Value: math.Round(m.Value*p) / p, Unit: m.Unit}
}

func (m Measurement) Validate() error {
	if m.Unit == "" {
		return fmt.Errorf("measurement %v has no unit", m.Value)
	}
	if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return fmt.Errorf("measurement value is not finite")
	}
	if m.Value < 0 {
		return fmt.Errorf("measurement %v %s is negative", m.Value, m.Unit)
	}
	return nil
}

func (m Measurement) String() string {
	return fmt.Sprintf("%g %s", m.Value, m.Unit)
}
