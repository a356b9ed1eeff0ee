// Package shade sizes roller shades: roll-up diameter, tube deflection and the
// widest shade a tube can carry in a given system.
//
// Every function works on one conversion table snapshot and reports a missing
// conversion as (sentinel, false) instead of an error. Internally lengths are
// millimetres and forces Newtons.
package shade

import (
	"math"

	"Shade/internal/catalog"
	"Shade/internal/units"
)

type Calculator struct {
	conv *units.Converter
}

func New(conv *units.Converter) *Calculator {
	if conv == nil {
		panic("shade: nil converter")
	}
	return &Calculator{conv: conv}
}

// Pin returns a calculator bound to the current table snapshot. Calls on it
// keep seeing that snapshot while the converter is swapped.
func (c *Calculator) Pin() *Calculator {
	return &Calculator{conv: units.NewConverter(c.conv.Table())}
}

func (c *Calculator) Table() *units.Table {
	return c.conv.Table()
}

// RollUp is the diameter of the fabric wound onto the tube, in drop's unit:
// sqrt(D^2 + 4*t*drop/pi).
func (c *Calculator) RollUp(drop, tubeOuterDiameter, fabricThickness units.Measurement) (units.Measurement, bool) {
	return rollUp(c.conv.Table(), drop, tubeOuterDiameter, fabricThickness)
}

// MaxDrop inverts RollUp for a roll diameter ceiling. Result in mm.
func (c *Calculator) MaxDrop(maxRollDiameter, tubeOuterDiameter, fabricThickness units.Measurement) (units.Measurement, bool) {
	return maxDrop(c.conv.Table(), maxRollDiameter, tubeOuterDiameter, fabricThickness)
}

// MomentOfInertia of the hollow tube in mm^4.
func (c *Calculator) MomentOfInertia(tube catalog.Tube) (units.Measurement, bool) {
	return momentOfInertia(c.conv.Table(), tube)
}

// TotalLoad is the weight of fabric plus bottom rail hanging off the tube, in N.
func (c *Calculator) TotalLoad(fabric catalog.Fabric, rail catalog.BottomRail, width, drop units.Measurement) (units.Measurement, bool) {
	return totalLoad(c.conv.Table(), fabric, rail, width, drop)
}

// Deflection of the tube under the shade's load, in unit.
func (c *Calculator) Deflection(fabric catalog.Fabric, tube catalog.Tube, rail catalog.BottomRail, width, drop units.Measurement, unit string) (units.Measurement, bool) {
	return deflection(c.conv.Table(), fabric, tube, rail, width, drop, unit)
}

func rollUp(tbl *units.Table, drop, outer, thickness units.Measurement) (units.Measurement, bool) {
	if drop.Failed() {
		return units.Fail(drop.Unit), false
	}
	d, okD := tbl.Convert(outer, drop.Unit)
	t, okT := tbl.Convert(thickness, drop.Unit)
	if !okD || !okT {
		return units.Fail(drop.Unit), false
	}
	v := math.Sqrt(d.Value*d.Value + 4*t.Value*drop.Value/math.Pi)
	return units.New(v, drop.Unit), true
}

func maxDrop(tbl *units.Table, maxRoll, outer, thickness units.Measurement) (units.Measurement, bool) {
	r, okR := tbl.Convert(maxRoll, units.MM)
	d, okD := tbl.Convert(outer, units.MM)
	t, okT := tbl.Convert(thickness, units.MM)
	if !okR || !okD || !okT {
		return units.Fail(units.MM), false
	}
	// no fabric thickness means no finite answer; a tube wider than the
	// system means no fabric fits at all
	if t.Value <= 0 || r.Value < d.Value {
		return units.Fail(units.MM), false
	}
	v := math.Pi * (r.Value*r.Value - d.Value*d.Value) / (4 * t.Value)
	return units.New(v, units.MM), true
}

// momentOfInertia keeps the historical formula: thickness is outer minus inner
// diameter, and the bore term is (Do - 2*thickness), not the inner diameter.
func momentOfInertia(tbl *units.Table, tube catalog.Tube) (units.Measurement, bool) {
	outer, ok := tbl.Convert(tube.OuterDiameter, units.MM)
	if !ok {
		return units.Fail(units.MM4), false
	}
	thick, ok := tube.Thickness(tbl)
	if !ok {
		return units.Fail(units.MM4), false
	}
	thick, ok = tbl.Convert(thick, units.MM)
	if !ok {
		return units.Fail(units.MM4), false
	}
	do := outer.Value
	bore := do - 2*thick.Value
	v := math.Pi * (math.Pow(do, 4) - math.Pow(bore, 4)) / 64
	return units.New(v, units.MM4), true
}

func totalLoad(tbl *units.Table, fabric catalog.Fabric, rail catalog.BottomRail, width, drop units.Measurement) (units.Measurement, bool) {
	w, okW := tbl.Convert(width, units.M)
	d, okD := tbl.Convert(drop, units.M)
	if !okW || !okD {
		return units.Fail(units.Newton), false
	}
	areal, okA := tbl.Convert(fabric.Weight, units.KgPerM2)
	linear, okL := tbl.Convert(rail.Weight, units.KgPerM)
	if !okA || !okL {
		return units.Fail(units.Newton), false
	}
	fabricN, okF := tbl.Convert(units.New(areal.Value*w.Value*d.Value, units.Kilogram), units.Newton)
	railN, okR := tbl.Convert(units.New(linear.Value*w.Value, units.Kilogram), units.Newton)
	if !okF || !okR {
		return units.Fail(units.Newton), false
	}
	return units.New(fabricN.Value+railN.Value, units.Newton), true
}

// deflection of a simply supported tube under uniform load: 5*W*l^3 / (384*E*I).
func deflection(tbl *units.Table, fabric catalog.Fabric, tube catalog.Tube, rail catalog.BottomRail, width, drop units.Measurement, unit string) (units.Measurement, bool) {
	l, okL := tbl.Convert(width, units.MM)
	e, okE := tbl.Convert(tube.Modulus, units.NPerMM2)
	if !okL || !okE {
		return units.Fail(unit), false
	}
	w, ok := totalLoad(tbl, fabric, rail, width, drop)
	if !ok {
		return units.Fail(unit), false
	}
	i, ok := momentOfInertia(tbl, tube)
	if !ok {
		return units.Fail(unit), false
	}
	v := 5 * w.Value * math.Pow(l.Value, 3) / (384 * e.Value * i.Value)
	// zero stiffness or a degenerate tube
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return units.Fail(unit), false
	}
	return tbl.Convert(units.New(v, units.MM), unit)
}
