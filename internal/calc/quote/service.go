// Package quote resolves catalog components by name, runs the shade
// calculator and shapes the results for the calculator endpoints.
package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Shade/internal/calc/shade"
	"Shade/internal/catalog"
	"Shade/internal/metrics"
	"Shade/internal/repo"
	"Shade/internal/units"
)

var (
	ErrNoFeasible = errors.New("no feasible configuration")
	ErrBadRequest = errors.New("invalid request")
)

const roundPlaces = 2

// NoRail stands in for a shade quoted without a bottom rail.
var NoRail = catalog.BottomRail{Name: "none", Weight: units.New(0, units.KgPerM)}

type RollUpRequest struct {
	Drop              units.Measurement `json:"drop"`
	TubeOuterDiameter units.Measurement `json:"tube_outer_diameter"`
	FabricThickness   units.Measurement `json:"fabric_thickness"`
}

// SystemLimitRequest names the components of a shade. An empty TubeName
// evaluates every tube in the catalog; an empty BottomRailName means no rail.
type SystemLimitRequest struct {
	SystemName     string `json:"system_name"`
	FabricName     string `json:"fabric_name"`
	TubeName       string `json:"tube_name,omitempty"`
	BottomRailName string `json:"bottom_rail_name,omitempty"`
}

type SystemLimitResponse struct {
	SystemName string               `json:"system_name"`
	Fabric     catalog.Fabric       `json:"fabric"`
	BottomRail catalog.BottomRail   `json:"bottom_rail"`
	Limits     []shade.SystemLimit `json:"limits"`
}

// DeflectionRequest identifies the tube by id or, failing that, by name.
type DeflectionRequest struct {
	FabricName     string            `json:"fabric_name"`
	TubeID         string            `json:"tube_id,omitempty"`
	TubeName       string            `json:"tube_name,omitempty"`
	BottomRailName string            `json:"bottom_rail_name,omitempty"`
	Width          units.Measurement `json:"width"`
	Drop           units.Measurement `json:"drop"`
}

type Service struct {
	catalog repo.Catalog
	conv    *units.Converter
	calc    *shade.Calculator
}

func NewService(c repo.Catalog, conv *units.Converter) *Service {
	return &Service{catalog: c, conv: conv, calc: shade.New(conv)}
}

func (s *Service) Calculator() *shade.Calculator { return s.calc }

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, repo.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrNoFeasible):
		return metrics.OutcomeNoFeasible
	default:
		return metrics.OutcomeError
	}
}

func record(kind string, start time.Time, err error) {
	metrics.RecordCalculation(kind, outcome(err), time.Since(start))
}

func validate(fields map[string]units.Measurement) error {
	for name, m := range fields {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadRequest, name, err)
		}
	}
	return nil
}

// Convert converts m to unit through a direct table edge. No rounding.
func (s *Service) Convert(m units.Measurement, unit string) (res units.Measurement, err error) {
	start := time.Now()
	defer func() { record("convert", start, err) }()

	if err = validate(map[string]units.Measurement{"measurement": m}); err != nil {
		return units.Fail(unit), err
	}
	out, ok := s.conv.Convert(m, unit)
	if !ok {
		return out, fmt.Errorf("%w: no conversion from %s to %s", ErrNoFeasible, m.Unit, unit)
	}
	return out, nil
}

// RollUp returns the rolled-up diameter in unit. When the result cannot be
// converted to unit it is returned in the drop's unit.
func (s *Service) RollUp(req RollUpRequest, unit string) (res units.Measurement, err error) {
	start := time.Now()
	defer func() { record("rollup", start, err) }()

	if err = validate(map[string]units.Measurement{
		"drop":                req.Drop,
		"tube_outer_diameter": req.TubeOuterDiameter,
		"fabric_thickness":    req.FabricThickness,
	}); err != nil {
		return units.Fail(unit), err
	}

	calc := s.calc.Pin()
	rollUp, ok := calc.RollUp(req.Drop, req.TubeOuterDiameter, req.FabricThickness)
	if !ok {
		return rollUp, fmt.Errorf("%w: roll-up needs conversions to %s", ErrNoFeasible, req.Drop.Unit)
	}
	if converted, ok := calc.Table().Convert(rollUp, unit); ok {
		rollUp = converted
	}
	return rollUp.Round(roundPlaces), nil
}

type components struct {
	system catalog.System
	fabric catalog.Fabric
	rail   catalog.BottomRail
}

func (s *Service) resolve(ctx context.Context, req SystemLimitRequest) (components, error) {
	var c components
	if req.SystemName == "" || req.FabricName == "" {
		return c, fmt.Errorf("%w: system_name and fabric_name required", ErrBadRequest)
	}
	var err error
	if c.system, err = s.catalog.SystemByName(ctx, req.SystemName); err != nil {
		return c, err
	}
	if c.fabric, err = s.catalog.FabricByName(ctx, req.FabricName); err != nil {
		return c, err
	}
	if c.rail, err = s.rail(ctx, req.BottomRailName); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Service) rail(ctx context.Context, name string) (catalog.BottomRail, error) {
	if name == "" {
		return NoRail, nil
	}
	return s.catalog.BottomRailByName(ctx, name)
}

// SystemLimit evaluates the single tube named in req.
func (s *Service) SystemLimit(ctx context.Context, req SystemLimitRequest, unit string) (res shade.SystemLimit, err error) {
	start := time.Now()
	defer func() { record("system_limit", start, err) }()

	if req.TubeName == "" {
		return res, fmt.Errorf("%w: tube_name required", ErrBadRequest)
	}
	c, err := s.resolve(ctx, req)
	if err != nil {
		return res, err
	}
	return s.single(ctx, c, req.TubeName, unit)
}

func (s *Service) single(ctx context.Context, c components, tubeName, unit string) (shade.SystemLimit, error) {
	tube, err := s.catalog.TubeByName(ctx, tubeName)
	if err != nil {
		return shade.SystemLimit{}, err
	}
	res := s.calc.SystemLimit(c.system, c.fabric, tube, c.rail, unit)
	metrics.RecordProbes(res.Probes)
	if !res.OK {
		return res, fmt.Errorf("%w: tube %s in system %s", ErrNoFeasible, tube.Name, c.system.Name)
	}
	return res, nil
}

// SystemLimits reports the limit of the named tube, or of every catalog tube
// when none is named. With no tube named, infeasible tubes are listed with
// ok=false instead of failing the request.
func (s *Service) SystemLimits(ctx context.Context, req SystemLimitRequest, unit string) (res SystemLimitResponse, err error) {
	start := time.Now()
	defer func() { record("system_limits", start, err) }()

	c, err := s.resolve(ctx, req)
	if err != nil {
		return res, err
	}
	res = SystemLimitResponse{SystemName: c.system.Name, Fabric: c.fabric, BottomRail: c.rail}

	if req.TubeName != "" {
		limit, err := s.single(ctx, c, req.TubeName, unit)
		if err != nil {
			return res, err
		}
		res.Limits = []shade.SystemLimit{limit}
		return res, nil
	}

	tubes, err := s.catalog.Tubes(ctx)
	if err != nil {
		return res, err
	}
	res.Limits = s.calc.AllSystemLimits(c.system, c.fabric, c.rail, tubes, unit)
	for _, l := range res.Limits {
		metrics.RecordProbes(l.Probes)
	}
	return res, nil
}

// DeflectionCheck is a deflection in the requested unit together with the
// limit verdict, which is taken on the unrounded millimetre value.
type DeflectionCheck struct {
	Deflection  units.Measurement `json:"deflection"`
	WithinLimit bool              `json:"within_limit"`
}

// TubeDeflection is the midspan deflection of a shade, in unit.
func (s *Service) TubeDeflection(ctx context.Context, req DeflectionRequest, unit string) (res units.Measurement, err error) {
	start := time.Now()
	defer func() { record("deflection", start, err) }()

	check, err := s.checkDeflection(ctx, req, unit)
	return check.Deflection, err
}

// CheckDeflection is TubeDeflection plus whether the shade stays within
// shade.DeflectionLimitMM.
func (s *Service) CheckDeflection(ctx context.Context, req DeflectionRequest, unit string) (res DeflectionCheck, err error) {
	start := time.Now()
	defer func() { record("deflection", start, err) }()

	return s.checkDeflection(ctx, req, unit)
}

func (s *Service) checkDeflection(ctx context.Context, req DeflectionRequest, unit string) (DeflectionCheck, error) {
	fail := DeflectionCheck{Deflection: units.Fail(unit)}
	if req.FabricName == "" || (req.TubeID == "" && req.TubeName == "") {
		return fail, fmt.Errorf("%w: fabric_name and tube_id or tube_name required", ErrBadRequest)
	}
	if err := validate(map[string]units.Measurement{"width": req.Width, "drop": req.Drop}); err != nil {
		return fail, err
	}

	fabric, err := s.catalog.FabricByName(ctx, req.FabricName)
	if err != nil {
		return fail, err
	}
	var tube catalog.Tube
	if req.TubeID != "" {
		tube, err = s.catalog.TubeByID(ctx, req.TubeID)
	} else {
		tube, err = s.catalog.TubeByName(ctx, req.TubeName)
	}
	if err != nil {
		return fail, err
	}
	rail, err := s.rail(ctx, req.BottomRailName)
	if err != nil {
		return fail, err
	}

	calc := s.calc.Pin()
	mm, ok := calc.Deflection(fabric, tube, rail, req.Width, req.Drop, units.MM)
	if !ok {
		return fail, fmt.Errorf("%w: deflection of %s in %s", ErrNoFeasible, tube.Name, units.MM)
	}
	d, ok := calc.Table().Convert(mm, unit)
	if !ok {
		return fail, fmt.Errorf("%w: deflection of %s in %s", ErrNoFeasible, tube.Name, unit)
	}
	return DeflectionCheck{
		Deflection:  d.Round(roundPlaces),
		WithinLimit: mm.Value <= shade.DeflectionLimitMM,
	}, nil
}
