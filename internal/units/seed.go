package units

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Unit labels the calculator works in.
const (
	MM         = "mm"
	M          = "m"
	CM         = "cm"
	Inch       = "in"
	Foot       = "ft"
	Newton     = "N"
	Kilogram   = "kg"
	Gram       = "g"
	KgPerM     = "kg/m"
	GPerM      = "g/m"
	GPerMM     = "g/mm"
	KgPerM2    = "kg/m^2"
	GPerM2     = "g/m^2"
	NPerMM2    = "N/mm2"
	GPa        = "GPa"
	MPa        = "MPa"
	MM4        = "mm^4"
	GPerCM3    = "g/cm^3"
	KgPerM3    = "kg/m^3"
	OzPerYard2 = "oz/yd^2"
)

// Gravity is the kg -> N factor of the reference table.
const Gravity = 9.81

// DefaultEdges is the reference table the service seeds when nothing else is configured.
func DefaultEdges() []Edge {
	pair := func(from, to string, f float64) []Edge {
		return []Edge{{From: from, To: to, Factor: f}, {From: to, To: from, Factor: 1 / f}}
	}
	var out []Edge
	for _, p := range [][]Edge{
		pair(MM, M, 0.001),
		pair(MM, CM, 0.1),
		pair(CM, M, 0.01),
		pair(Inch, MM, 25.4),
		pair(Inch, CM, 2.54),
		pair(Inch, M, 0.0254),
		pair(Foot, MM, 304.8),
		pair(Foot, CM, 30.48),
		pair(Foot, M, 0.3048),
		pair(Foot, Inch, 12),
		pair(Kilogram, Newton, Gravity),
		pair(Gram, Newton, Gravity/1000),
		pair(Kilogram, Gram, 1000),
		pair(KgPerM, GPerM, 1000),
		pair(GPerM, GPerMM, 0.001),
		pair(KgPerM, GPerMM, 1),
		pair(GPerM2, KgPerM2, 0.001),
		pair(OzPerYard2, GPerM2, 33.905747),
		pair(GPa, NPerMM2, 1000),
		pair(MPa, NPerMM2, 1),
		pair(GPerCM3, KgPerM3, 1000),
	} {
		out = append(out, p...)
	}
	return out
}

func DefaultTable() *Table {
	return NewTable(nil, DefaultEdges())
}

type tableFile struct {
	Units       []string `toml:"units"`
	Conversions []Edge   `toml:"conversion"`
}

// ParseTOML reads a conversion table document:
//
//	units = ["mm", "m"]
//	[[conversion]]
//	from = "mm"
//	to = "m"
//	factor = 0.001
func ParseTOML(data []byte) (*Table, error) {
	var f tableFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse conversion table: %w", err)
	}
	for i, e := range f.Conversions {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("conversion #%d: from and to are required", i+1)
		}
		if e.Factor <= 0 {
			return nil, fmt.Errorf("conversion #%d (%s -> %s): factor must be positive", i+1, e.From, e.To)
		}
	}
	return NewTable(f.Units, f.Conversions), nil
}

func LoadTOML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversion file '%s': %w", path, err)
	}
	return ParseTOML(data)
}

// MarshalTOML writes t in the format ParseTOML reads.
func MarshalTOML(t *Table) ([]byte, error) {
	return toml.Marshal(tableFile{Units: t.Units(), Conversions: t.Edges()})
}
