package units

import "sync/atomic"

// Converter hands out the current conversion table. Refreshes swap in a whole
// new snapshot, so a caller holding a *Table always sees a consistent view.
type Converter struct {
	table atomic.Pointer[Table]
}

func NewConverter(t *Table) *Converter {
	if t == nil {
		t = NewTable(nil, nil)
	}
	c := &Converter{}
	c.table.Store(t)
	return c
}

func (c *Converter) Table() *Table {
	return c.table.Load()
}

// Swap installs t and returns the previous snapshot.
func (c *Converter) Swap(t *Table) *Table {
	if t == nil {
		t = NewTable(nil, nil)
	}
	return c.table.Swap(t)
}

func (c *Converter) Convert(m Measurement, to string) (Measurement, bool) {
	return c.Table().Convert(m, to)
}
