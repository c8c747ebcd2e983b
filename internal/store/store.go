package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when employee has no registered face.
var ErrNotFound = errors.New("face encoding not found")

// Record is a registered face encoding of an employee.
type Record struct {
	EmployeeID string
	Encoding   string
	UpdatedAt  time.Time
}

// Store keeps serialized face encodings keyed by employee ID.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS employee_face_encodings (
			employee_id TEXT PRIMARY KEY,
			encoding TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// Close terminates all database connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Save stores encoding of employee, replacing the previous one.
func (s *Store) Save(ctx context.Context, employeeID, encoding string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employee_face_encodings (employee_id, encoding, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (employee_id) DO UPDATE SET encoding = EXCLUDED.encoding, updated_at = NOW()
	`, employeeID, encoding)
	if err != nil {
		return fmt.Errorf("save face encoding of %s: %w", employeeID, err)
	}
	return nil
}

// Load returns registered encoding of employee or ErrNotFound.
func (s *Store) Load(ctx context.Context, employeeID string) (Record, error) {
	r := Record{EmployeeID: employeeID}
	err := s.pool.QueryRow(ctx,
		`SELECT encoding, updated_at FROM employee_face_encodings WHERE employee_id = $1`,
		employeeID).Scan(&r.Encoding, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load face encoding of %s: %w", employeeID, err)
	}
	return r, nil
}

// Delete removes registered encoding. Deleting a missing one is ErrNotFound.
func (s *Store) Delete(ctx context.Context, employeeID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM employee_face_encodings WHERE employee_id = $1`, employeeID)
	if err != nil {
		return fmt.Errorf("delete face encoding of %s: %w", employeeID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Registered reports whether employee has a face encoding.
func (s *Store) Registered(ctx context.Context, employeeID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM employee_face_encodings WHERE employee_id = $1)`,
		employeeID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check face encoding of %s: %w", employeeID, err)
	}
	return ok, nil
}
