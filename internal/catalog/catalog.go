// Package catalog holds the component records the calculator reads: tubes,
// fabrics, bottom rails and shade systems.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"Shade/internal/units"
)

var ErrInvalid = errors.New("invalid component")

type Tube struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	OuterDiameter units.Measurement `json:"outer_diameter"`
	InnerDiameter units.Measurement `json:"inner_diameter"`
	Modulus       units.Measurement `json:"modulus"`
	Density       units.Measurement `json:"density"`
}

type Fabric struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Thickness units.Measurement `json:"thickness"`
	// weight per area, e.g. g/m^2
	Weight units.Measurement `json:"weight"`
}

type BottomRail struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// weight per length, e.g. kg/m
	Weight units.Measurement `json:"weight"`
}

// System is a cassette or bracket set; MaxDiameter is the largest roll it encloses.
type System struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	MaxDiameter units.Measurement `json:"max_diameter"`
}

// Aluminium defaults for tubes created without modulus or density.
var (
	DefaultModulus = units.New(70, units.GPa)
	DefaultDensity = units.New(2.7, units.GPerCM3)
)

func (t *Tube) ApplyDefaults() {
	if t.Modulus.Unit == "" {
		t.Modulus = DefaultModulus
	}
	if t.Density.Unit == "" {
		t.Density = DefaultDensity
	}
}

// Thickness is outer minus inner diameter, in the outer diameter's unit.
func (t Tube) Thickness(tbl *units.Table) (units.Measurement, bool) {
	inner, ok := tbl.Convert(t.InnerDiameter, t.OuterDiameter.Unit)
	if !ok {
		return units.Fail(t.OuterDiameter.Unit), false
	}
	return units.New(t.OuterDiameter.Value-inner.Value, t.OuterDiameter.Unit), true
}

func (t Tube) Validate() error {
	if err := checkName(t.Name); err != nil {
		return err
	}
	if err := checkFields(map[string]units.Measurement{
		"outer_diameter": t.OuterDiameter,
		"inner_diameter": t.InnerDiameter,
		"modulus":        t.Modulus,
		"density":        t.Density,
	}); err != nil {
		return err
	}
	if t.OuterDiameter.Unit == t.InnerDiameter.Unit && t.InnerDiameter.Value >= t.OuterDiameter.Value {
		return fmt.Errorf("%w: inner diameter must be smaller than outer diameter", ErrInvalid)
	}
	return nil
}

func (f Fabric) Validate() error {
	if err := checkName(f.Name); err != nil {
		return err
	}
	return checkFields(map[string]units.Measurement{
		"thickness": f.Thickness,
		"weight":    f.Weight,
	})
}

func (b BottomRail) Validate() error {
	if err := checkName(b.Name); err != nil {
		return err
	}
	return checkFields(map[string]units.Measurement{"weight": b.Weight})
}

func (s System) Validate() error {
	if err := checkName(s.Name); err != nil {
		return err
	}
	return checkFields(map[string]units.Measurement{"max_diameter": s.MaxDiameter})
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalid)
	}
	return nil
}

func checkFields(fields map[string]units.Measurement) error {
	for name, m := range fields {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}
	return nil
}
