// Package repo stores catalog components and unit conversions.
package repo

import (
	"context"
	"errors"

	"Shade/internal/catalog"
	"Shade/internal/units"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type Catalog interface {
	Tubes(ctx context.Context) ([]catalog.Tube, error)
	TubeByID(ctx context.Context, id string) (catalog.Tube, error)
	TubeByName(ctx context.Context, name string) (catalog.Tube, error)
	CreateTube(ctx context.Context, t catalog.Tube) (catalog.Tube, error)
	UpdateTube(ctx context.Context, id string, t catalog.Tube) (catalog.Tube, error)
	DeleteTube(ctx context.Context, id string) error

	Fabrics(ctx context.Context) ([]catalog.Fabric, error)
	FabricByID(ctx context.Context, id string) (catalog.Fabric, error)
	FabricByName(ctx context.Context, name string) (catalog.Fabric, error)
	CreateFabric(ctx context.Context, f catalog.Fabric) (catalog.Fabric, error)
	UpdateFabric(ctx context.Context, id string, f catalog.Fabric) (catalog.Fabric, error)
	DeleteFabric(ctx context.Context, id string) error

	BottomRails(ctx context.Context) ([]catalog.BottomRail, error)
	BottomRailByID(ctx context.Context, id string) (catalog.BottomRail, error)
	BottomRailByName(ctx context.Context, name string) (catalog.BottomRail, error)
	CreateBottomRail(ctx context.Context, b catalog.BottomRail) (catalog.BottomRail, error)
	UpdateBottomRail(ctx context.Context, id string, b catalog.BottomRail) (catalog.BottomRail, error)
	DeleteBottomRail(ctx context.Context, id string) error

	Systems(ctx context.Context) ([]catalog.System, error)
	SystemByID(ctx context.Context, id string) (catalog.System, error)
	SystemByName(ctx context.Context, name string) (catalog.System, error)
	CreateSystem(ctx context.Context, s catalog.System) (catalog.System, error)
	UpdateSystem(ctx context.Context, id string, s catalog.System) (catalog.System, error)
	DeleteSystem(ctx context.Context, id string) error
}

type Conversions interface {
	Units(ctx context.Context) ([]string, error)
	CreateUnit(ctx context.Context, name string) error
	DeleteUnit(ctx context.Context, name string) error
	Conversions(ctx context.Context) ([]units.Edge, error)
	// CreateConversion registers both units if needed and fails with
	// ErrConflict when the from/to pair already has an edge.
	CreateConversion(ctx context.Context, e units.Edge) (units.Edge, error)
	DeleteConversion(ctx context.Context, id string) error
}

type Repository interface {
	Catalog
	Conversions
}

// LoadTable builds a conversion table snapshot from stored units and edges.
func LoadTable(ctx context.Context, c Conversions) (*units.Table, error) {
	names, err := c.Units(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := c.Conversions(ctx)
	if err != nil {
		return nil, err
	}
	return units.NewTable(names, edges), nil
}

// Seed stores every edge of t that is not stored yet.
func Seed(ctx context.Context, c Conversions, t *units.Table) (int, error) {
	added := 0
	for _, u := range t.Units() {
		if err := c.CreateUnit(ctx, u); err != nil && !errors.Is(err, ErrConflict) {
			return added, err
		}
	}
	for _, e := range t.Edges() {
		e.ID = ""
		_, err := c.CreateConversion(ctx, e)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
