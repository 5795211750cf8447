package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when no row matches the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a unique index.
	ErrConflict = errors.New("unique constraint violated")
	// ErrUnknownField is returned when a query names a column the table does not have.
	ErrUnknownField = errors.New("unknown field")
)

// Op is a where-clause operator.
type Op int

const (
	OpEq Op = iota
	OpContains
)

// Cond is a single where-clause condition. Conditions are ANDed.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Eq matches rows whose field equals value.
func Eq(field string, value any) Cond { return Cond{Field: field, Op: OpEq, Value: value} }

// Contains matches rows whose field contains value as a substring.
func Contains(field, value string) Cond { return Cond{Field: field, Op: OpContains, Value: value} }

// Query narrows a List or Count call.
type Query struct {
	Where   []Cond
	OrderBy string
	Desc    bool
	Limit   int
}

// Fields is a partial update keyed by column name.
type Fields map[string]any

// Table is a CRUD collection over one SQL table. Column names are taken from
// the caller-provided list and every query field is checked against it.
type Table[T any] struct {
	db      *sqlx.DB
	name    string
	columns []string
	known   map[string]bool
}

// NewTable creates a collection over table name with the given data columns.
// The id and created_at columns are implicit.
func NewTable[T any](db *sqlx.DB, name string, columns ...string) *Table[T] {
	known := map[string]bool{"id": true, "created_at": true}
	for _, c := range columns {
		known[c] = true
	}
	return &Table[T]{db: db, name: name, columns: columns, known: known}
}

// Name returns the underlying table name.
func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) selectList() string {
	return "id, created_at, " + strings.Join(t.columns, ", ")
}

func (t *Table[T]) where(q Query) (string, []any, error) {
	if len(q.Where) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(q.Where))
	args := make([]any, 0, len(q.Where))
	for _, c := range q.Where {
		if !t.known[c.Field] {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.name, c.Field)
		}
		switch c.Op {
		case OpContains:
			parts = append(parts, c.Field+" LIKE ? ESCAPE '!'")
			args = append(args, "%"+escapeLike(fmt.Sprint(c.Value))+"%")
		default:
			parts = append(parts, c.Field+" = ?")
			args = append(args, c.Value)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// List returns rows matching q.
func (t *Table[T]) List(ctx context.Context, q Query) ([]T, error) {
	where, args, err := t.where(q)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + t.selectList() + " FROM " + t.name + where
	if q.OrderBy != "" {
		if !t.known[q.OrderBy] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.name, q.OrderBy)
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		// id breaks ties so equal timestamps keep a stable order.
		query += fmt.Sprintf(" ORDER BY %s %s, id %s", q.OrderBy, dir, dir)
	}
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows := []T{}
	if err := t.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	return rows, nil
}

// Get returns the row with the given id or ErrNotFound.
func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	var row T
	query := "SELECT " + t.selectList() + " FROM " + t.name + " WHERE id = ?"
	if err := t.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %q: %w", t.name, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", t.name, err)
	}
	return &row, nil
}

// Count returns the number of rows matching q. Ordering and limit are ignored.
func (t *Table[T]) Count(ctx context.Context, q Query) (int, error) {
	where, args, err := t.where(q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := t.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+t.name+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.name, err)
	}
	return n, nil
}

// stamp fills in a missing id and created_at. Ids are UUIDv7, which sort in
// creation order, so rows created within the same second still list in
// insertion order through the id tiebreak.
func stamp(row any) error {
	e, ok := row.(Entity)
	if !ok {
		return nil
	}
	m := e.RowMeta()
	if m.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate id: %w", err)
		}
		m.ID = id.String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	return nil
}

func (t *Table[T]) insertQuery() string {
	cols := append([]string{"id", "created_at"}, t.columns...)
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(cols, ", "), strings.Join(named, ", "))
}

func (t *Table[T]) updateAllQuery() string {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = c + " = :" + c
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", t.name, strings.Join(sets, ", "))
}

// Create inserts row, assigning id and created_at when they are empty.
func (t *Table[T]) Create(ctx context.Context, row *T) error {
	if err := stamp(row); err != nil {
		return err
	}
	if _, err := t.db.NamedExecContext(ctx, t.insertQuery(), row); err != nil {
		return t.writeErr("create", err)
	}
	return nil
}

// Update sets the given columns on the row with id and returns the stored row.
func (t *Table[T]) Update(ctx context.Context, id string, fields Fields) (*T, error) {
	if len(fields) == 0 {
		return t.Get(ctx, id)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !t.known[k] || k == "id" || k == "created_at" {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.name, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = k + " = ?"
		args = append(args, fields[k])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.name, strings.Join(sets, ", "))
	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return nil, t.writeErr("update", err)
	}
	// MySQL reports zero affected rows for a no-op update, so existence is
	// confirmed by reading the row back.
	return t.Get(ctx, id)
}

// Upsert inserts row, or replaces every data column when a row with the same id exists.
func (t *Table[T]) Upsert(ctx context.Context, row *T) error {
	if err := stamp(row); err != nil {
		return err
	}
	id := any(row).(Entity).RowMeta().ID

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert on %s: %w", t.name, err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+t.name+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to check %s: %w", t.name, err)
	}
	query := t.insertQuery()
	if n > 0 {
		query = t.updateAllQuery()
	}
	if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
		return t.writeErr("upsert", err)
	}
	return tx.Commit()
}

// Delete removes the row with id. It returns ErrNotFound when nothing was deleted.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", t.name, id, ErrNotFound)
	}
	return nil
}

// Increment atomically adds delta to an integer column.
func (t *Table[T]) Increment(ctx context.Context, id, field string, delta int) error {
	if !t.known[field] {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, t.name, field)
	}
	query := fmt.Sprintf("UPDATE %s SET %s = %s + ? WHERE id = ?", t.name, field, field)
	res, err := t.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to increment %s.%s: %w", t.name, field, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %q: %w", t.name, id, ErrNotFound)
	}
	return nil
}

// Reassign moves every row whose field equals from to the value to.
func (t *Table[T]) Reassign(ctx context.Context, field, from, to string) (int64, error) {
	if !t.known[field] {
		return 0, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.name, field)
	}
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", t.name, field, field)
	res, err := t.db.ExecContext(ctx, query, to, from)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign %s.%s: %w", t.name, field, err)
	}
	return res.RowsAffected()
}

func (t *Table[T]) writeErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s %s: %w", op, t.name, ErrConflict)
	}
	return fmt.Errorf("failed to %s %s: %w", op, t.name, err)
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	// Both SQLite drivers report the constraint in the message text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
