package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"Shade/internal/catalog"
	"Shade/internal/units"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Open connects to Postgres. Connection strings without an sslmode get
// sslmode=require.
func Open(ctx context.Context, connStr string) (*sql.DB, error) {
	if connStr == "" {
		connStr = "user=postgres dbname=postgres password=password sslmode=disable"
	}
	if !strings.Contains(connStr, "sslmode=") {
		if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
			sep := "?"
			if strings.Contains(connStr, "?") {
				sep = "&"
			}
			connStr = connStr + sep + "sslmode=require"
		} else {
			connStr = connStr + " sslmode=require"
		}
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not responding: %w", err)
	}
	return db, nil
}

type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// entity maps one catalog type onto its table. columns excludes id.
type entity[T any] struct {
	table   string
	columns []string
	scan    func(row scanner) (T, error)
	values  func(v T) []any
	setID   func(v *T, id string)
}

func (e entity[T]) selectSQL() string {
	return "SELECT id, " + strings.Join(e.columns, ", ") + " FROM " + e.table
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func list[T any](ctx context.Context, db *sql.DB, e entity[T]) ([]T, error) {
	rows, err := db.QueryContext(ctx, e.selectSQL()+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", e.table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := e.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", e.table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func getBy[T any](ctx context.Context, db *sql.DB, e entity[T], column, value string) (T, error) {
	row := db.QueryRowContext(ctx, e.selectSQL()+" WHERE "+column+" = $1", value)
	v, err := e.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("%s %q: %w", e.table, value, ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("get %s: %w", e.table, err)
	}
	return v, nil
}

func insert[T any](ctx context.Context, db *sql.DB, e entity[T], v T) (T, error) {
	id := uuid.NewString()
	e.setID(&v, id)

	marks := make([]string, len(e.columns)+1)
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	query := "INSERT INTO " + e.table + " (id, " + strings.Join(e.columns, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	args := append([]any{id}, e.values(v)...)

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return v, fmt.Errorf("%s: %w", e.table, ErrConflict)
		}
		return v, fmt.Errorf("insert %s: %w", e.table, err)
	}
	return v, nil
}

func update[T any](ctx context.Context, db *sql.DB, e entity[T], id string, v T) (T, error) {
	e.setID(&v, id)

	sets := make([]string, len(e.columns))
	for i, c := range e.columns {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	query := "UPDATE " + e.table + " SET " + strings.Join(sets, ", ") + fmt.Sprintf(" WHERE id = $%d", len(e.columns)+1)
	args := append(e.values(v), id)

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return v, fmt.Errorf("%s: %w", e.table, ErrConflict)
		}
		return v, fmt.Errorf("update %s: %w", e.table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return v, fmt.Errorf("%s %q: %w", e.table, id, ErrNotFound)
	}
	return v, nil
}

func remove(ctx context.Context, db *sql.DB, table, column, value string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+column+" = $1", value)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %q: %w", table, value, ErrNotFound)
	}
	return nil
}

var tubes = entity[catalog.Tube]{
	table: "roller_tubes",
	columns: []string{
		"name",
		"outer_diameter_value", "outer_diameter_unit",
		"inner_diameter_value", "inner_diameter_unit",
		"modulus_value", "modulus_unit",
		"density_value", "density_unit",
	},
	scan: func(row scanner) (catalog.Tube, error) {
		var t catalog.Tube
		err := row.Scan(&t.ID, &t.Name,
			&t.OuterDiameter.Value, &t.OuterDiameter.Unit,
			&t.InnerDiameter.Value, &t.InnerDiameter.Unit,
			&t.Modulus.Value, &t.Modulus.Unit,
			&t.Density.Value, &t.Density.Unit)
		return t, err
	},
	values: func(t catalog.Tube) []any {
		return []any{t.Name,
			t.OuterDiameter.Value, t.OuterDiameter.Unit,
			t.InnerDiameter.Value, t.InnerDiameter.Unit,
			t.Modulus.Value, t.Modulus.Unit,
			t.Density.Value, t.Density.Unit}
	},
	setID: func(t *catalog.Tube, id string) { t.ID = id },
}

var fabrics = entity[catalog.Fabric]{
	table:   "roller_fabrics",
	columns: []string{"name", "thickness_value", "thickness_unit", "weight_value", "weight_unit"},
	scan: func(row scanner) (catalog.Fabric, error) {
		var f catalog.Fabric
		err := row.Scan(&f.ID, &f.Name, &f.Thickness.Value, &f.Thickness.Unit, &f.Weight.Value, &f.Weight.Unit)
		return f, err
	},
	values: func(f catalog.Fabric) []any {
		return []any{f.Name, f.Thickness.Value, f.Thickness.Unit, f.Weight.Value, f.Weight.Unit}
	},
	setID: func(f *catalog.Fabric, id string) { f.ID = id },
}

var bottomRails = entity[catalog.BottomRail]{
	table:   "bottom_rails",
	columns: []string{"name", "weight_value", "weight_unit"},
	scan: func(row scanner) (catalog.BottomRail, error) {
		var b catalog.BottomRail
		err := row.Scan(&b.ID, &b.Name, &b.Weight.Value, &b.Weight.Unit)
		return b, err
	},
	values: func(b catalog.BottomRail) []any {
		return []any{b.Name, b.Weight.Value, b.Weight.Unit}
	},
	setID: func(b *catalog.BottomRail, id string) { b.ID = id },
}

var systems = entity[catalog.System]{
	table:   "roller_systems",
	columns: []string{"name", "diameter_value", "diameter_unit"},
	scan: func(row scanner) (catalog.System, error) {
		var s catalog.System
		err := row.Scan(&s.ID, &s.Name, &s.MaxDiameter.Value, &s.MaxDiameter.Unit)
		return s, err
	},
	values: func(s catalog.System) []any {
		return []any{s.Name, s.MaxDiameter.Value, s.MaxDiameter.Unit}
	},
	setID: func(s *catalog.System, id string) { s.ID = id },
}

func (r *PostgresRepository) Tubes(ctx context.Context) ([]catalog.Tube, error) {
	return list(ctx, r.db, tubes)
}

func (r *PostgresRepository) TubeByID(ctx context.Context, id string) (catalog.Tube, error) {
	return getBy(ctx, r.db, tubes, "id", id)
}

func (r *PostgresRepository) TubeByName(ctx context.Context, name string) (catalog.Tube, error) {
	return getBy(ctx, r.db, tubes, "name", name)
}

func (r *PostgresRepository) CreateTube(ctx context.Context, t catalog.Tube) (catalog.Tube, error) {
	return insert(ctx, r.db, tubes, t)
}

func (r *PostgresRepository) UpdateTube(ctx context.Context, id string, t catalog.Tube) (catalog.Tube, error) {
	return update(ctx, r.db, tubes, id, t)
}

func (r *PostgresRepository) DeleteTube(ctx context.Context, id string) error {
	return remove(ctx, r.db, tubes.table, "id", id)
}

func (r *PostgresRepository) Fabrics(ctx context.Context) ([]catalog.Fabric, error) {
	return list(ctx, r.db, fabrics)
}

func (r *PostgresRepository) FabricByID(ctx context.Context, id string) (catalog.Fabric, error) {
	return getBy(ctx, r.db, fabrics, "id", id)
}

func (r *PostgresRepository) FabricByName(ctx context.Context, name string) (catalog.Fabric, error) {
	return getBy(ctx, r.db, fabrics, "name", name)
}

func (r *PostgresRepository) CreateFabric(ctx context.Context, f catalog.Fabric) (catalog.Fabric, error) {
	return insert(ctx, r.db, fabrics, f)
}

func (r *PostgresRepository) UpdateFabric(ctx context.Context, id string, f catalog.Fabric) (catalog.Fabric, error) {
	return update(ctx, r.db, fabrics, id, f)
}

func (r *PostgresRepository) DeleteFabric(ctx context.Context, id string) error {
	return remove(ctx, r.db, fabrics.table, "id", id)
}

func (r *PostgresRepository) BottomRails(ctx context.Context) ([]catalog.BottomRail, error) {
	return list(ctx, r.db, bottomRails)
}

func (r *PostgresRepository) BottomRailByID(ctx context.Context, id string) (catalog.BottomRail, error) {
	return getBy(ctx, r.db, bottomRails, "id", id)
}

func (r *PostgresRepository) BottomRailByName(ctx context.Context, name string) (catalog.BottomRail, error) {
	return getBy(ctx, r.db, bottomRails, "name", name)
}

func (r *PostgresRepository) CreateBottomRail(ctx context.Context, b catalog.BottomRail) (catalog.BottomRail, error) {
	return insert(ctx, r.db, bottomRails, b)
}

func (r *PostgresRepository) UpdateBottomRail(ctx context.Context, id string, b catalog.BottomRail) (catalog.BottomRail, error) {
	return update(ctx, r.db, bottomRails, id, b)
}

func (r *PostgresRepository) DeleteBottomRail(ctx context.Context, id string) error {
	return remove(ctx, r.db, bottomRails.table, "id", id)
}

func (r *PostgresRepository) Systems(ctx context.Context) ([]catalog.System, error) {
	return list(ctx, r.db, systems)
}

func (r *PostgresRepository) SystemByID(ctx context.Context, id string) (catalog.System, error) {
	return getBy(ctx, r.db, systems, "id", id)
}

func (r *PostgresRepository) SystemByName(ctx context.Context, name string) (catalog.System, error) {
	return getBy(ctx, r.db, systems, "name", name)
}

func (r *PostgresRepository) CreateSystem(ctx context.Context, s catalog.System) (catalog.System, error) {
	return insert(ctx, r.db, systems, s)
}

func (r *PostgresRepository) UpdateSystem(ctx context.Context, id string, s catalog.System) (catalog.System, error) {
	return update(ctx, r.db, systems, id, s)
}

func (r *PostgresRepository) DeleteSystem(ctx context.Context, id string) error {
	return remove(ctx, r.db, systems.table, "id", id)
}

func (r *PostgresRepository) Units(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT unit FROM measurement_units ORDER BY unit")
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateUnit(ctx context.Context, name string) error {
	query := "INSERT INTO measurement_units (id, unit) VALUES ($1, $2)"
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), name); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("unit %q: %w", name, ErrConflict)
		}
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

// DeleteUnit also drops every conversion touching the unit.
func (r *PostgresRepository) DeleteUnit(ctx context.Context, name string) error {
	return remove(ctx, r.db, "measurement_units", "unit", name)
}

func (r *PostgresRepository) Conversions(ctx context.Context) ([]units.Edge, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, from_unit, to_unit, factor FROM unit_conversions ORDER BY from_unit, to_unit")
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var out []units.Edge
	for rows.Next() {
		var e units.Edge
		if err := rows.Scan(&e.ID, &e.From, &e.To, &e.Factor); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateConversion(ctx context.Context, e units.Edge) (units.Edge, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return e, err
	}
	defer tx.Rollback()

	for _, u := range []string{e.From, e.To} {
		query := "INSERT INTO measurement_units (id, unit) VALUES ($1, $2) ON CONFLICT (unit) DO NOTHING"
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), u); err != nil {
			return e, fmt.Errorf("insert unit: %w", err)
		}
	}

	e.ID = uuid.NewString()
	query := "INSERT INTO unit_conversions (id, from_unit, to_unit, factor) VALUES ($1, $2, $3, $4)"
	if _, err := tx.ExecContext(ctx, query, e.ID, e.From, e.To, e.Factor); err != nil {
		if isUniqueViolation(err) {
			return e, fmt.Errorf("conversion %s -> %s: %w", e.From, e.To, ErrConflict)
		}
		return e, fmt.Errorf("insert conversion: %w", err)
	}
	return e, tx.Commit()
}

func (r *PostgresRepository) DeleteConversion(ctx context.Context, id string) error {
	return remove(ctx, r.db, "unit_conversions", "id", id)
}
