package units

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleTable = `
units = ["furlong"]

[[conversion]]
from = "mm"
to = "m"
factor = 0.001

[[conversion]]
from = "kg"
to = "N"
factor = 9.81
`

func TestParseTOML(t *testing.T) {
	tbl, err := ParseTOML([]byte(sampleTable))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.True(t, tbl.HasUnit("furlong"))

	got, ok := tbl.Convert(New(2, Kilogram), Newton)
	require.True(t, ok)
	assert.InDelta(t, 19.62, got.Value, 1e-12)
}

func TestParseTOML_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad syntax":    "[[conversion]\nfrom=",
		"zero factor":   "[[conversion]]\nfrom = \"a\"\nto = \"b\"\nfactor = 0\n",
		"missing to":    "[[conversion]]\nfrom = \"a\"\nfactor = 2\n",
		"unknown field": "[[conversion]]\nfrom = \"a\"\nto = \"b\"\nfactor = 2\nrate = 3\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTOML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestMarshalTOML_ParsesBack(t *testing.T) {
	data, err := MarshalTOML(DefaultTable())
	require.NoError(t, err)
	tbl, err := ParseTOML(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultTable().Len(), tbl.Len())
}

func TestDefaultTable_CoversCalculatorUnits(t *testing.T) {
	tbl := DefaultTable()
	for _, p := range [][2]string{
		{MM, M}, {M, MM}, {Inch, MM}, {MM, Inch}, {Foot, M}, {CM, MM},
		{Kilogram, Newton}, {Gram, Newton}, {GPerM2, KgPerM2}, {GPerM, KgPerM},
		{GPa, NPerMM2}, {KgPerM, GPerMM},
	} {
		_, ok := tbl.Lookup(p[0], p[1])
		assert.True(t, ok, "%s -> %s", p[0], p[1])
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conversions.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[conversion]]\nfrom = \"mm\"\nto = \"m\"\nfactor = 0.001\n"), 0644))

	conv := NewConverter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, Watch(ctx, path, conv, zap.NewNop(), nil))

	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0644))

	require.Eventually(t, func() bool {
		_, ok := conv.Convert(New(1, Kilogram), Newton)
		return ok
	}, 3*time.Second, 20*time.Millisecond)
	assert.True(t, conv.Table().HasUnit("furlong"))
}

func TestWatch_OnLoadOwnsSwap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conversions.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[conversion]]\nfrom = \"mm\"\nto = \"m\"\nfactor = 0.001\n"), 0644))

	conv := NewConverter(NewTable(nil, []Edge{{From: "in", To: "mm", Factor: 25.4}}))
	loaded := make(chan *Table, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, Watch(ctx, path, conv, zap.NewNop(), func(t *Table) {
		select {
		case loaded <- t:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case tbl := <-loaded:
			if !tbl.HasUnit("furlong") {
				continue
			}
			_, ok := conv.Convert(New(1, Inch), MM)
			assert.True(t, ok, "converter swapped behind the callback")
			assert.False(t, conv.Table().HasUnit("furlong"))
			return
		case <-deadline:
			t.Fatal("conversion file was not reloaded")
		}
	}
}
