package shade

import (
	"Shade/internal/catalog"
	"Shade/internal/units"
)

const (
	// DeflectionLimitMM sits just under the 3 mm serviceability threshold.
	DeflectionLimitMM = 2.99
	// MaxDropM is the hardware ceiling regardless of roll-up geometry.
	MaxDropM = 3.0
	// MaxProbes bounds the width search. Zero-load inputs never cross the limit.
	MaxProbes = 20000

	roundPlaces = 2
)

// search steps in mm, coarse to fine
var widthSteps = [...]float64{20, 10, 5}

// MinWidthStep is the resolution of the reported maximum width.
const MinWidthStep = 5.0

type SystemLimit struct {
	TubeName   string            `json:"tube_name"`
	MaxWidth   units.Measurement `json:"max_width"`
	MaxDrop    units.Measurement `json:"max_drop"`
	Deflection units.Measurement `json:"deflection"`
	OK         bool              `json:"ok"`
	Probes     int               `json:"-"`
}

func infeasible(tubeName, unit string, probes int) SystemLimit {
	return SystemLimit{
		TubeName:   tubeName,
		MaxWidth:   units.Fail(unit),
		MaxDrop:    units.Fail(unit),
		Deflection: units.Fail(unit),
		Probes:     probes,
	}
}

// SystemLimit finds the widest shade the tube carries within the deflection
// limit, at the deepest drop the system's roll diameter allows (capped at 3 m).
// Any missing conversion or an infeasible geometry yields OK=false with
// sentinel measurements.
func (c *Calculator) SystemLimit(system catalog.System, fabric catalog.Fabric, tube catalog.Tube, rail catalog.BottomRail, unit string) SystemLimit {
	return systemLimit(c.conv.Table(), system, fabric, tube, rail, unit)
}

// AllSystemLimits evaluates every tube against one system, fabric and rail.
func (c *Calculator) AllSystemLimits(system catalog.System, fabric catalog.Fabric, rail catalog.BottomRail, tubes []catalog.Tube, unit string) []SystemLimit {
	tbl := c.conv.Table()
	out := make([]SystemLimit, 0, len(tubes))
	for _, tube := range tubes {
		out = append(out, systemLimit(tbl, system, fabric, tube, rail, unit))
	}
	return out
}

func systemLimit(tbl *units.Table, system catalog.System, fabric catalog.Fabric, tube catalog.Tube, rail catalog.BottomRail, unit string) SystemLimit {
	dropMM, ok := maxDrop(tbl, system.MaxDiameter, tube.OuterDiameter, fabric.Thickness)
	if !ok {
		return infeasible(tube.Name, unit, 0)
	}
	drop, ok := tbl.Convert(dropMM, units.M)
	if !ok {
		return infeasible(tube.Name, unit, 0)
	}
	if drop.Value > MaxDropM {
		drop = units.New(MaxDropM, units.M)
	}

	res := searchWidth(func(widthMM float64) (float64, bool) {
		d, ok := deflection(tbl, fabric, tube, rail, units.New(widthMM, units.MM), drop, units.MM)
		return d.Value, ok
	}, DeflectionLimitMM)
	if !res.ok {
		return infeasible(tube.Name, unit, res.probes)
	}

	width, okW := tbl.Convert(units.New(res.width, units.MM), unit)
	outDrop, okD := tbl.Convert(drop, unit)
	defl, okF := tbl.Convert(units.New(res.deflection, units.MM), unit)
	if !okW || !okD || !okF {
		return infeasible(tube.Name, unit, res.probes)
	}
	return SystemLimit{
		TubeName:   tube.Name,
		MaxWidth:   width.Round(roundPlaces),
		MaxDrop:    outDrop.Round(roundPlaces),
		Deflection: defl.Round(roundPlaces),
		OK:         true,
		Probes:     res.probes,
	}
}

type searchResult struct {
	width      float64
	deflection float64
	probes     int
	ok         bool
}

// searchWidth walks the width up from zero while deflection stays within
// limit. The step shrinks as deflection nears the limit, and an overshoot
// with a coarse step retries with the next finer one, so on success
// defl(width) <= limit < defl(width+MinWidthStep). A probe that fails is
// treated as an overshoot.
func searchWidth(defl func(widthMM float64) (float64, bool), limit float64) searchResult {
	width, current := 0.0, 0.0
	floor := 0
	for probes := 1; probes <= MaxProbes; probes++ {
		i := stepFor(current / limit)
		if i < floor {
			i = floor
		}
		next := width + widthSteps[i]
		d, ok := defl(next)
		if ok && d <= limit {
			width, current = next, d
			continue
		}
		if i < len(widthSteps)-1 {
			floor = i + 1
			continue
		}
		return searchResult{width: width, deflection: current, probes: probes, ok: width > 0}
	}
	return searchResult{probes: MaxProbes}
}

func stepFor(ratio float64) int {
	switch {
	case ratio < 0.75:
		return 0
	case ratio < 0.9:
		return 1
	default:
		return 2
	}
}
