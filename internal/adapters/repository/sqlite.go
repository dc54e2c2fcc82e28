package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/okian/grader/internal/domain/model"
	"github.com/okian/grader/pkg/metrics"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const (
	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 4
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	roll_number TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	grade       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_students_grade ON students (grade);
`

const selectColumns = `SELECT id, roll_number, name, grade FROM students`

// SQLiteStore is a Store backed by a single SQLite table.
type SQLiteStore struct {
	db           *sqlx.DB
	path         string
	busyTimeout  time.Duration
	maxOpenConns int
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures
// the students table exists.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:         path,
		busyTimeout:  defaultBusyTimeout,
		maxOpenConns: defaultMaxOpenConns,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrOpen)
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, s.busyTimeout.Milliseconds())

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if path == MemoryPath {
		// each connection would otherwise see its own empty database
		s.maxOpenConns = 1
	}
	db.SetMaxOpenConns(s.maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create schema: %w", ErrOpen, err)
	}
	s.db = db

	s.refreshCount(ctx)
	return s, nil
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore) Path() string { return s.path }

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, st model.Student) (model.Student, error) {
	defer observe("create", time.Now())

	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO students (roll_number, name, grade) VALUES (:roll_number, :name, :grade)`, st)
	if err != nil {
		if isUniqueViolation(err) {
			metrics.RecordErrorByComponent("repository", "duplicate")
			return model.Student{}, fmt.Errorf("%w: %s", ErrDuplicate, st.RollNumber)
		}
		return model.Student{}, fmt.Errorf("insert student: %w", err)
	}
	if st.ID, err = res.LastInsertId(); err != nil {
		return model.Student{}, fmt.Errorf("insert student: %w", err)
	}

	s.refreshCount(ctx)
	return st, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, rollNumber string) (model.Student, error) {
	defer observe("get", time.Now())

	var st model.Student
	err := s.db.GetContext(ctx, &st, selectColumns+` WHERE roll_number = ?`, rollNumber)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Student{}, fmt.Errorf("%w: %s", ErrNotFound, rollNumber)
	}
	if err != nil {
		return model.Student{}, fmt.Errorf("get student: %w", err)
	}
	return st, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Student, error) {
	defer observe("list", time.Now())

	out := []model.Student{}
	if err := s.db.SelectContext(ctx, &out, selectColumns+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return out, nil
}

// Search implements Store. An empty filter returns every student.
func (s *SQLiteStore) Search(ctx context.Context, f model.StudentFilter) ([]model.Student, error) {
	defer observe("search", time.Now())

	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.Name)+"%")
	}
	if f.Grade != "" {
		where = append(where, `grade = ?`)
		args = append(args, f.Grade)
	}

	query := selectColumns
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id`

	out := []model.Student{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return out, nil
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, st model.Student) (model.Student, error) {
	defer observe("update", time.Now())

	res, err := s.db.NamedExecContext(ctx,
		`UPDATE students SET name = :name, grade = :grade WHERE roll_number = :roll_number`, st)
	if err != nil {
		return model.Student{}, fmt.Errorf("update student: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Student{}, fmt.Errorf("update student: %w", err)
	} else if n == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Student{}, fmt.Errorf("%w: %s", ErrNotFound, st.RollNumber)
	}
	return s.Get(ctx, st.RollNumber)
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, rollNumber string) error {
	defer observe("delete", time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE roll_number = ?`, rollNumber)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete student: %w", err)
	} else if n == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return fmt.Errorf("%w: %s", ErrNotFound, rollNumber)
	}

	s.refreshCount(ctx)
	return nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) refreshCount(ctx context.Context) {
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateStudentsTotal(n)
	}
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
