// Package recommend proposes tubes for a shade of given width and drop.
package recommend

import (
	"context"
	"fmt"
	"sort"

	"Shade/internal/calc/quote"
	"Shade/internal/calc/shade"
	"Shade/internal/catalog"
	"Shade/internal/repo"
	"Shade/internal/units"
)

type Proposal struct {
	SystemName     string            `json:"system_name"`
	FabricName     string            `json:"fabric_name"`
	BottomRailName string            `json:"bottom_rail_name,omitempty"`
	Width          units.Measurement `json:"width"`
	Drop           units.Measurement `json:"drop"`
}

type Candidate struct {
	TubeName   string            `json:"tube_name"`
	RollUp     units.Measurement `json:"roll_up"`
	Deflection units.Measurement `json:"deflection"`
	Fits       bool              `json:"fits"`
	Reason     string            `json:"reason,omitempty"`
}

type Result struct {
	// Recommended is the slimmest fitting tube, empty when none fits.
	Recommended string      `json:"recommended"`
	Candidates  []Candidate `json:"candidates"`
}

type Service struct {
	Catalog repo.Catalog
	Calc    *shade.Calculator
}

// Tubes checks every catalog tube: the fabric rolled onto it must fit the
// system and its deflection must stay within shade.DeflectionLimitMM.
// Fitting tubes come first, slimmest first.
func (s *Service) Tubes(ctx context.Context, p Proposal, unit string) (Result, error) {
	if p.SystemName == "" || p.FabricName == "" {
		return Result{}, fmt.Errorf("%w: system_name and fabric_name required", quote.ErrBadRequest)
	}
	for name, m := range map[string]units.Measurement{"width": p.Width, "drop": p.Drop} {
		if err := m.Validate(); err != nil {
			return Result{}, fmt.Errorf("%w: %s: %v", quote.ErrBadRequest, name, err)
		}
	}

	system, err := s.Catalog.SystemByName(ctx, p.SystemName)
	if err != nil {
		return Result{}, err
	}
	fabric, err := s.Catalog.FabricByName(ctx, p.FabricName)
	if err != nil {
		return Result{}, err
	}
	rail := quote.NoRail
	if p.BottomRailName != "" {
		if rail, err = s.Catalog.BottomRailByName(ctx, p.BottomRailName); err != nil {
			return Result{}, err
		}
	}
	tubes, err := s.Catalog.Tubes(ctx)
	if err != nil {
		return Result{}, err
	}

	calc := s.Calc.Pin()
	tbl := calc.Table()
	maxRoll, ok := tbl.Convert(system.MaxDiameter, units.MM)
	if !ok {
		return Result{}, fmt.Errorf("%w: system diameter in %s", quote.ErrNoFeasible, system.MaxDiameter.Unit)
	}

	type ranked struct {
		c     Candidate
		outer float64
	}
	var all []ranked
	for _, tube := range tubes {
		c, outer := check(calc, tube, fabric, rail, p, maxRoll.Value, unit)
		all = append(all, ranked{c, outer})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].c.Fits != all[j].c.Fits {
			return all[i].c.Fits
		}
		return all[i].outer < all[j].outer
	})

	res := Result{Candidates: make([]Candidate, 0, len(all))}
	for _, r := range all {
		res.Candidates = append(res.Candidates, r.c)
	}
	if len(all) > 0 && all[0].c.Fits {
		res.Recommended = all[0].c.TubeName
	}
	return res, nil
}

func check(calc *shade.Calculator, tube catalog.Tube, fabric catalog.Fabric, rail catalog.BottomRail, p Proposal, maxRollMM float64, unit string) (Candidate, float64) {
	tbl := calc.Table()
	c := Candidate{TubeName: tube.Name, RollUp: units.Fail(unit), Deflection: units.Fail(unit)}
	outer, ok := tbl.Convert(tube.OuterDiameter, units.MM)
	if !ok {
		c.Reason = "tube diameter cannot be converted"
		return c, 0
	}

	dropMM, ok := tbl.Convert(p.Drop, units.MM)
	if !ok {
		c.Reason = "drop cannot be converted"
		return c, outer.Value
	}
	roll, ok := calc.RollUp(dropMM, tube.OuterDiameter, fabric.Thickness)
	if !ok {
		c.Reason = "roll-up needs missing conversions"
		return c, outer.Value
	}
	defl, ok := calc.Deflection(fabric, tube, rail, p.Width, p.Drop, units.MM)
	if !ok {
		c.Reason = "deflection needs missing conversions"
		return c, outer.Value
	}

	if r, ok := tbl.Convert(roll, unit); ok {
		c.RollUp = r.Round(2)
	}
	if d, ok := tbl.Convert(defl, unit); ok {
		c.Deflection = d.Round(2)
	}

	switch {
	case roll.Value > maxRollMM:
		c.Reason = "roll does not fit the system"
	case defl.Value > shade.DeflectionLimitMM:
		c.Reason = "deflection over limit"
	default:
		c.Fits = true
	}
	return c, outer.Value
}
