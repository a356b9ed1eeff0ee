// Package repotest builds in-memory catalogs for tests.
package repotest

import (
	"context"
	"testing"

	"Shade/internal/catalog"
	"Shade/internal/repo"
	"Shade/internal/units"

	"github.com/stretchr/testify/require"
)

// Reference component names.
const (
	System = "Cassette 65"
	Fabric = "Screen"
	Rail   = "Flat"
	Tube   = "T32"
	// BigTube does not fit System.
	BigTube = "T70"
)

// Reference returns a catalog holding a 65 mm cassette, a 410 g/m^2 fabric
// 0.5 mm thick, a 1.15 kg/m rail and a 32/30 mm aluminium tube.
func Reference(t testing.TB) *repo.Memory {
	t.Helper()
	ctx := context.Background()
	m := repo.NewMemory()

	_, err := m.CreateSystem(ctx, catalog.System{Name: System, MaxDiameter: units.New(65, units.MM)})
	require.NoError(t, err)
	_, err = m.CreateFabric(ctx, catalog.Fabric{Name: Fabric, Thickness: units.New(0.5, units.MM), Weight: units.New(410, units.GPerM2)})
	require.NoError(t, err)
	_, err = m.CreateBottomRail(ctx, catalog.BottomRail{Name: Rail, Weight: units.New(1.15, units.KgPerM)})
	require.NoError(t, err)
	AddTube(t, m, Tube, 32, 30)
	return m
}

// AddTube stores an aluminium tube with diameters in mm.
func AddTube(t testing.TB, m *repo.Memory, name string, outer, inner float64) catalog.Tube {
	t.Helper()
	tube := catalog.Tube{Name: name, OuterDiameter: units.New(outer, units.MM), InnerDiameter: units.New(inner, units.MM)}
	tube.ApplyDefaults()
	created, err := m.CreateTube(context.Background(), tube)
	require.NoError(t, err)
	return created
}
