package units

import "sort"

// Edge is a directed conversion: value(To) = value(From) * Factor.
type Edge struct {
	ID     string  `json:"id,omitempty" toml:"-"`
	From   string  `json:"from" toml:"from"`
	To     string  `json:"to" toml:"to"`
	Factor float64 `json:"factor" toml:"factor"`
}

type edgeKey struct {
	from, to string
}

// Table is an immutable snapshot of registered units and conversion edges.
// Edges are never inverted or chained; only a direct edge is honoured.
type Table struct {
	units map[string]struct{}
	edges map[edgeKey]Edge
}

// NewTable builds a snapshot. Edge endpoints are registered as units
// automatically. A later edge for the same pair replaces an earlier one.
func NewTable(unitNames []string, edges []Edge) *Table {
	t := &Table{
		units: make(map[string]struct{}, len(unitNames)),
		edges: make(map[edgeKey]Edge, len(edges)),
	}
	for _, u := range unitNames {
		if u != "" {
			t.units[u] = struct{}{}
		}
	}
	for _, e := range edges {
		if e.From == "" || e.To == "" {
			continue
		}
		t.units[e.From] = struct{}{}
		t.units[e.To] = struct{}{}
		t.edges[edgeKey{e.From, e.To}] = e
	}
	return t
}

func (t *Table) Lookup(from, to string) (Edge, bool) {
	e, ok := t.edges[edgeKey{from, to}]
	return e, ok
}

func (t *Table) HasUnit(unit string) bool {
	_, ok := t.units[unit]
	return ok
}

// Convert resolves m into the target unit. On a missing edge it returns the
// sentinel measurement and false.
func (t *Table) Convert(m Measurement, to string) (Measurement, bool) {
	if m.Unit == to {
		return m, true
	}
	e, ok := t.Lookup(m.Unit, to)
	if !ok {
		return Fail(to), false
	}
	return Measurement{Value: m.Value * e.Factor, Unit: to}, true
}

func (t *Table) Units() []string {
	out := make([]string, 0, len(t.units))
	for u := range t.units {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (t *Table) Edges() []Edge {
	out := make([]Edge, 0, len(t.edges))
	for _, e := range t.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func (t *Table) Len() int {
	return len(t.edges)
}
