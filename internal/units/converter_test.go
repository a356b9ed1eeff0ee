package units

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Identity(t *testing.T) {
	conv := NewConverter(DefaultTable())
	for _, m := range []Measurement{New(65, MM), New(0, "furlong"), New(410, GPerM2), New(-1, "x")} {
		got, ok := conv.Convert(m, m.Unit)
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}
}

func TestConvert_DirectEdge(t *testing.T) {
	conv := NewConverter(DefaultTable())

	got, ok := conv.Convert(New(65, MM), M)
	require.True(t, ok)
	assert.InDelta(t, 0.065, got.Value, 1e-12)
	assert.Equal(t, M, got.Unit)

	got, ok = conv.Convert(New(70, GPa), NPerMM2)
	require.True(t, ok)
	assert.InDelta(t, 70000, got.Value, 1e-9)

	got, ok = conv.Convert(New(1, Kilogram), Newton)
	require.True(t, ok)
	assert.InDelta(t, 9.81, got.Value, 1e-12)
}

func TestConvert_MissingEdge(t *testing.T) {
	conv := NewConverter(DefaultTable())
	got, ok := conv.Convert(New(5, "furlong"), MM)
	assert.False(t, ok)
	assert.True(t, got.Failed())
	assert.Equal(t, Sentinel, got.Value)
}

func TestConvert_CaseSensitiveUnits(t *testing.T) {
	conv := NewConverter(DefaultTable())
	_, ok := conv.Convert(New(1.15, "Kg/M"), GPerM)
	assert.False(t, ok)
}

func TestConvert_RoundTrip(t *testing.T) {
	tbl := DefaultTable()
	for _, e := range tbl.Edges() {
		if _, ok := tbl.Lookup(e.To, e.From); !ok {
			continue
		}
		x := New(123.456, e.From)
		there, ok := tbl.Convert(x, e.To)
		require.True(t, ok)
		back, ok := tbl.Convert(there, e.From)
		require.True(t, ok)
		assert.InDelta(t, x.Value, back.Value, 1e-9, "%s -> %s -> %s", e.From, e.To, e.From)
	}
}

// Edges are not chained: in -> m and m -> ft do not give in -> ft.
func TestConvert_NotTransitive(t *testing.T) {
	tbl := NewTable(nil, []Edge{
		{From: Inch, To: M, Factor: 0.0254},
		{From: M, To: Foot, Factor: 1 / 0.3048},
	})
	got, ok := tbl.Convert(New(12, Inch), Foot)
	assert.False(t, ok)
	assert.True(t, got.Failed())
}

// Edges are not inverted: mm -> m does not give m -> mm.
func TestConvert_NotInverted(t *testing.T) {
	tbl := NewTable(nil, []Edge{{From: MM, To: M, Factor: 0.001}})
	_, ok := tbl.Convert(New(1, M), MM)
	assert.False(t, ok)
}

func TestConverter_Swap(t *testing.T) {
	conv := NewConverter(NewTable(nil, nil))
	_, ok := conv.Convert(New(1, MM), M)
	assert.False(t, ok)

	old := conv.Swap(DefaultTable())
	assert.Equal(t, 0, old.Len())

	got, ok := conv.Convert(New(1000, MM), M)
	assert.True(t, ok)
	assert.InDelta(t, 1, got.Value, 1e-12)
}

func TestConverter_ConcurrentSwap(t *testing.T) {
	conv := NewConverter(DefaultTable())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tbl := conv.Table()
				got, ok := tbl.Convert(New(1, M), MM)
				assert.True(t, ok)
				assert.InDelta(t, 1000, got.Value, 1e-9)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				conv.Swap(DefaultTable())
			}
		}()
	}
	wg.Wait()
}

func TestTable_UnitsAndEdges(t *testing.T) {
	tbl := NewTable([]string{"furlong", ""}, []Edge{
		{From: MM, To: M, Factor: 0.001},
		{From: MM, To: M, Factor: 0.002},
		{From: "", To: M, Factor: 1},
	})
	assert.Equal(t, []string{"furlong", M, MM}, tbl.Units())
	assert.True(t, tbl.HasUnit("furlong"))
	require.Len(t, tbl.Edges(), 1)
	assert.Equal(t, 0.002, tbl.Edges()[0].Factor)
}
