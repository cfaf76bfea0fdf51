// Package sql mirrors map rows into a relational table using database/sql
// with the sqlite driver.
package sql

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dSM/lib/replicator"
	"github.com/ValentinKolb/dSM/lib/replicator/fieldmap"

	_ "modernc.org/sqlite"
)

// sqlReplicator mirrors rows of type V into a single table. Column values
// travel in their rendered string form (see fieldmap), which sqlite stores
// and compares without loss.
type sqlReplicator[K comparable, V any] struct {
	db     *sql.DB
	table  string
	mapper *fieldmap.Mapper[V]
	ownsDB bool

	upsertStmt string
	deleteStmt string
	selectStmt string
}

// NewSQLReplicator creates a replicator mirroring rows into the given table
// of an existing database handle. The table is created if it does not exist.
// The caller keeps ownership of db.
func NewSQLReplicator[K comparable, V any](db *sql.DB, table string) (replicator.IExternalReplicator[K, V], error) {
	return newSQLReplicator[K, V](db, table, false)
}

// OpenSQLReplicator opens (or creates) an sqlite database at the given path
// and mirrors rows into the given table. The database is closed by Close.
func OpenSQLReplicator[K comparable, V any](path, table string) (replicator.IExternalReplicator[K, V], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %v", path, err)
	}

	r, err := newSQLReplicator[K, V](db, table, true)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func newSQLReplicator[K comparable, V any](db *sql.DB, table string, ownsDB bool) (replicator.IExternalReplicator[K, V], error) {
	if !validIdentifier(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}

	mapper, err := fieldmap.New[V]()
	if err != nil {
		return nil, err
	}

	var zero V
	if _, ok := mapper.KeyOf(zero).(K); !ok {
		return nil, fmt.Errorf("key field of %T is not of key type %T", zero, *new(K))
	}

	r := &sqlReplicator[K, V]{
		db:     db,
		table:  table,
		mapper: mapper,
		ownsDB: ownsDB,
	}
	r.buildStatements()

	if err := r.createTable(); err != nil {
		return nil, err
	}
	return r, nil
}

// validIdentifier reports whether the name is safe to interpolate into SQL
func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

// buildStatements prepares the SQL text for the row operations
func (r *sqlReplicator[K, V]) buildStatements() {
	cols := r.mapper.Columns()
	keyCol := r.mapper.KeyColumn()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")

	var updates []string
	for _, col := range cols {
		if col != keyCol {
			updates = append(updates, fmt.Sprintf("%s=excluded.%s", col, col))
		}
	}

	r.upsertStmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		r.table, strings.Join(cols, ","), placeholders, keyCol, strings.Join(updates, ","))
	r.deleteStmt = fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.table, keyCol)
	r.selectStmt = fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ","), r.table)
}

// createTable creates the mirror table if it does not exist
func (r *sqlReplicator[K, V]) createTable() error {
	var defs []string
	for _, col := range r.mapper.Columns() {
		if col == r.mapper.KeyColumn() {
			defs = append(defs, fmt.Sprintf("%s TEXT NOT NULL PRIMARY KEY", col))
		} else {
			defs = append(defs, fmt.Sprintf("%s TEXT", col))
		}
	}

	_, err := r.db.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", r.table, strings.Join(defs, ", ")))
	if err != nil {
		return fmt.Errorf("failed to create table %s: %v", r.table, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see replicator/interface.go)
// --------------------------------------------------------------------------

func (r *sqlReplicator[K, V]) PutExternal(key K, value V) error {
	fields := r.mapper.Fields(value, false)

	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f.Value
	}

	if _, err := r.db.Exec(r.upsertStmt, args...); err != nil {
		return fmt.Errorf("failed to upsert row %v: %v", key, err)
	}
	return nil
}

func (r *sqlReplicator[K, V]) RemoveExternal(key K) error {
	if _, err := r.db.Exec(r.deleteStmt, fmt.Sprint(key)); err != nil {
		return fmt.Errorf("failed to delete row %v: %v", key, err)
	}
	return nil
}

func (r *sqlReplicator[K, V]) GetExternal(key K) (V, bool, error) {
	var zero V

	rows, err := r.db.Query(r.selectStmt+fmt.Sprintf(" WHERE %s = ?", r.mapper.KeyColumn()), fmt.Sprint(key))
	if err != nil {
		return zero, false, fmt.Errorf("failed to query row %v: %v", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return zero, false, rows.Err()
	}

	v, err := r.scanRow(rows)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (r *sqlReplicator[K, V]) GetAllExternal() (map[K]V, error) {
	rows, err := r.db.Query(r.selectStmt)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %v", r.table, err)
	}
	defer rows.Close()

	result := make(map[K]V)
	for rows.Next() {
		v, err := r.scanRow(rows)
		if err != nil {
			replicator.Logger.Errorf("failed to scan row, skipping: %v", err)
			continue
		}
		result[r.mapper.KeyOf(v).(K)] = v
	}

	return result, rows.Err()
}

func (r *sqlReplicator[K, V]) Close() error {
	if r.ownsDB {
		return r.db.Close()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// scanRow converts the current result row back into a value
func (r *sqlReplicator[K, V]) scanRow(rows *sql.Rows) (V, error) {
	var v V

	cols := r.mapper.Columns()
	raw := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}

	if err := rows.Scan(dest...); err != nil {
		return v, err
	}

	for i, col := range cols {
		if !raw[i].Valid {
			continue
		}
		if err := r.mapper.SetColumn(&v, col, raw[i].String); err != nil {
			return v, err
		}
	}

	return v, nil
}
