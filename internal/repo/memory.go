package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"Shade/internal/catalog"
	"Shade/internal/units"

	"github.com/google/uuid"
)

// store is a name-unique collection keyed by id.
type store[T any] struct {
	kind  string
	items map[string]T
	name  func(T) string
	setID func(*T, string)
}

func newStore[T any](kind string, name func(T) string, setID func(*T, string)) store[T] {
	return store[T]{kind: kind, items: map[string]T{}, name: name, setID: setID}
}

func (s *store[T]) list() []T {
	out := make([]T, 0, len(s.items))
	for _, v := range s.items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return s.name(out[i]) < s.name(out[j]) })
	return out
}

func (s *store[T]) byID(id string) (T, error) {
	v, ok := s.items[id]
	if !ok {
		return v, fmt.Errorf("%s %q: %w", s.kind, id, ErrNotFound)
	}
	return v, nil
}

func (s *store[T]) byName(name string) (T, error) {
	for _, v := range s.items {
		if s.name(v) == name {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s %q: %w", s.kind, name, ErrNotFound)
}

func (s *store[T]) nameTaken(name, except string) bool {
	for id, v := range s.items {
		if id != except && s.name(v) == name {
			return true
		}
	}
	return false
}

func (s *store[T]) create(v T) (T, error) {
	if s.nameTaken(s.name(v), "") {
		return v, fmt.Errorf("%s %q: %w", s.kind, s.name(v), ErrConflict)
	}
	id := uuid.NewString()
	s.setID(&v, id)
	s.items[id] = v
	return v, nil
}

func (s *store[T]) update(id string, v T) (T, error) {
	if _, ok := s.items[id]; !ok {
		return v, fmt.Errorf("%s %q: %w", s.kind, id, ErrNotFound)
	}
	if s.nameTaken(s.name(v), id) {
		return v, fmt.Errorf("%s %q: %w", s.kind, s.name(v), ErrConflict)
	}
	s.setID(&v, id)
	s.items[id] = v
	return v, nil
}

func (s *store[T]) remove(id string) error {
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%s %q: %w", s.kind, id, ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// Memory is a Repository kept in process memory. It backs the service when
// no DATABASE_URL is configured, and the handler tests.
type Memory struct {
	mu          sync.RWMutex
	tubes       store[catalog.Tube]
	fabrics     store[catalog.Fabric]
	rails       store[catalog.BottomRail]
	systems     store[catalog.System]
	units       map[string]bool
	conversions map[string]units.Edge
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		tubes: newStore("tube",
			func(t catalog.Tube) string { return t.Name },
			func(t *catalog.Tube, id string) { t.ID = id }),
		fabrics: newStore("fabric",
			func(f catalog.Fabric) string { return f.Name },
			func(f *catalog.Fabric, id string) { f.ID = id }),
		rails: newStore("bottom rail",
			func(b catalog.BottomRail) string { return b.Name },
			func(b *catalog.BottomRail, id string) { b.ID = id }),
		systems: newStore("system",
			func(s catalog.System) string { return s.Name },
			func(s *catalog.System, id string) { s.ID = id }),
		units:       map[string]bool{},
		conversions: map[string]units.Edge{},
	}
}

func (m *Memory) Tubes(ctx context.Context) ([]catalog.Tube, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tubes.list(), nil
}

func (m *Memory) TubeByID(ctx context.Context, id string) (catalog.Tube, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tubes.byID(id)
}

func (m *Memory) TubeByName(ctx context.Context, name string) (catalog.Tube, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tubes.byName(name)
}

func (m *Memory) CreateTube(ctx context.Context, t catalog.Tube) (catalog.Tube, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tubes.create(t)
}

func (m *Memory) UpdateTube(ctx context.Context, id string, t catalog.Tube) (catalog.Tube, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tubes.update(id, t)
}

func (m *Memory) DeleteTube(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tubes.remove(id)
}

func (m *Memory) Fabrics(ctx context.Context) ([]catalog.Fabric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fabrics.list(), nil
}

func (m *Memory) FabricByID(ctx context.Context, id string) (catalog.Fabric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fabrics.byID(id)
}

func (m *Memory) FabricByName(ctx context.Context, name string) (catalog.Fabric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fabrics.byName(name)
}

func (m *Memory) CreateFabric(ctx context.Context, f catalog.Fabric) (catalog.Fabric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fabrics.create(f)
}

func (m *Memory) UpdateFabric(ctx context.Context, id string, f catalog.Fabric) (catalog.Fabric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fabrics.update(id, f)
}

func (m *Memory) DeleteFabric(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fabrics.remove(id)
}

func (m *Memory) BottomRails(ctx context.Context) ([]catalog.BottomRail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rails.list(), nil
}

func (m *Memory) BottomRailByID(ctx context.Context, id string) (catalog.BottomRail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rails.byID(id)
}

func (m *Memory) BottomRailByName(ctx context.Context, name string) (catalog.BottomRail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rails.byName(name)
}

func (m *Memory) CreateBottomRail(ctx context.Context, b catalog.BottomRail) (catalog.BottomRail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rails.create(b)
}

func (m *Memory) UpdateBottomRail(ctx context.Context, id string, b catalog.BottomRail) (catalog.BottomRail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rails.update(id, b)
}

func (m *Memory) DeleteBottomRail(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rails.remove(id)
}

func (m *Memory) Systems(ctx context.Context) ([]catalog.System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.systems.list(), nil
}

func (m *Memory) SystemByID(ctx context.Context, id string) (catalog.System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.systems.byID(id)
}

func (m *Memory) SystemByName(ctx context.Context, name string) (catalog.System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.systems.byName(name)
}

func (m *Memory) CreateSystem(ctx context.Context, s catalog.System) (catalog.System, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.systems.create(s)
}

func (m *Memory) UpdateSystem(ctx context.Context, id string, s catalog.System) (catalog.System, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.systems.update(id, s)
}

func (m *Memory) DeleteSystem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.systems.remove(id)
}

func (m *Memory) Units(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.units))
	for u := range m.units {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) CreateUnit(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.units[name] {
		return fmt.Errorf("unit %q: %w", name, ErrConflict)
	}
	m.units[name] = true
	return nil
}

func (m *Memory) DeleteUnit(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.units[name] {
		return fmt.Errorf("unit %q: %w", name, ErrNotFound)
	}
	delete(m.units, name)
	for id, e := range m.conversions {
		if e.From == name || e.To == name {
			delete(m.conversions, id)
		}
	}
	return nil
}

func (m *Memory) Conversions(ctx context.Context) ([]units.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]units.Edge, 0, len(m.conversions))
	for _, e := range m.conversions {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out, nil
}

func (m *Memory) CreateConversion(ctx context.Context, e units.Edge) (units.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.conversions {
		if have.From == e.From && have.To == e.To {
			return e, fmt.Errorf("conversion %s -> %s: %w", e.From, e.To, ErrConflict)
		}
	}
	m.units[e.From] = true
	m.units[e.To] = true
	e.ID = uuid.NewString()
	m.conversions[e.ID] = e
	return e, nil
}

func (m *Memory) DeleteConversion(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversions[id]; !ok {
		return fmt.Errorf("conversion %q: %w", id, ErrNotFound)
	}
	delete(m.conversions, id)
	return nil
}
