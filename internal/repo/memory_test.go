package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"Shade/internal/catalog"
	"Shade/internal/units"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTube(name string) catalog.Tube {
	return catalog.Tube{
		Name:          name,
		OuterDiameter: units.New(32, units.MM),
		InnerDiameter: units.New(30, units.MM),
		Modulus:       catalog.DefaultModulus,
		Density:       catalog.DefaultDensity,
	}
}

func TestMemoryTubeCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.CreateTube(ctx, sampleTube("T32"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := m.TubeByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	got, err = m.TubeByName(ctx, "T32")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = m.CreateTube(ctx, sampleTube("T32"))
	assert.ErrorIs(t, err, ErrConflict)

	upd := sampleTube("T32b")
	upd.OuterDiameter = units.New(33, units.MM)
	updated, err := m.UpdateTube(ctx, created.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 33.0, updated.OuterDiameter.Value)

	_, err = m.UpdateTube(ctx, "missing", upd)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.DeleteTube(ctx, created.ID))
	_, err = m.TubeByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteTube(ctx, created.ID), ErrNotFound)
}

func TestMemoryUpdateKeepsNameUnique(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateSystem(ctx, catalog.System{Name: "S65", MaxDiameter: units.New(65, units.MM)})
	require.NoError(t, err)
	other, err := m.CreateSystem(ctx, catalog.System{Name: "S80", MaxDiameter: units.New(80, units.MM)})
	require.NoError(t, err)

	_, err = m.UpdateSystem(ctx, other.ID, catalog.System{Name: "S65", MaxDiameter: units.New(80, units.MM)})
	assert.ErrorIs(t, err, ErrConflict)

	// renaming to its own name is fine
	_, err = m.UpdateSystem(ctx, other.ID, catalog.System{Name: "S80", MaxDiameter: units.New(85, units.MM)})
	assert.NoError(t, err)
}

func TestMemoryListsSortedByName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, n := range []string{"Screen", "Blackout", "Linen"} {
		_, err := m.CreateFabric(ctx, catalog.Fabric{Name: n, Thickness: units.New(0.5, units.MM), Weight: units.New(400, units.GPerM2)})
		require.NoError(t, err)
	}

	list, err := m.Fabrics(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Blackout", "Linen", "Screen"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestMemoryConversions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	e, err := m.CreateConversion(ctx, units.Edge{From: units.MM, To: units.M, Factor: 0.001})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	_, err = m.CreateConversion(ctx, units.Edge{From: units.MM, To: units.M, Factor: 0.002})
	assert.ErrorIs(t, err, ErrConflict)

	names, err := m.Units(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{units.M, units.MM}, names)

	require.NoError(t, m.DeleteUnit(ctx, units.M))
	edges, err := m.Conversions(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)

	assert.ErrorIs(t, m.DeleteConversion(ctx, e.ID), ErrNotFound)
}

func TestSeedAndLoadTable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	added, err := Seed(ctx, m, units.DefaultTable())
	require.NoError(t, err)
	assert.Equal(t, units.DefaultTable().Len(), added)

	again, err := Seed(ctx, m, units.DefaultTable())
	require.NoError(t, err)
	assert.Zero(t, again)

	tbl, err := LoadTable(ctx, m)
	require.NoError(t, err)
	got, ok := tbl.Convert(units.New(1, units.M), units.MM)
	require.True(t, ok)
	assert.InDelta(t, 1000, got.Value, 1e-9)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
