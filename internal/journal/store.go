// Package journal implements an optional SQLite history of launches.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store manages the persistence of Launch records using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initialises a new Store with SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	_, err := s.db.Exec(dbschema)
	return err
}

// NewLaunch creates and stores a running Launch of target with the given args.
func (s *Store) NewLaunch(target, targetHash, mode string, args []string) (*Launch, error) {
	encoded, err := marshalArgs(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode args: %w", err)
	}

	now := time.Now().UTC()
	l := &Launch{
		ID:         uuid.New().String(),
		Target:     target,
		TargetHash: targetHash,
		Args:       append([]string{}, args...),
		Mode:       mode,
		Status:     StatusRunning,
		StartedAt:  now,
		CreatedAt:  now,
	}

	_, err = s.db.Exec(QueryCreateLaunch, l.ID, l.Target, l.TargetHash, encoded, l.Mode, l.Status, l.StartedAt, l.CreatedAt)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// Update persists changes to an existing Launch.
func (s *Store) Update(l *Launch) error {
	_, err := s.db.Exec(QueryUpdateLaunch, l.Mode, l.Status, l.PID, l.EndedAt, l.ExitCode, l.LastError, l.ID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLaunch(row scanner) (*Launch, error) {
	l := &Launch{}
	var args string
	if err := row.Scan(&l.ID, &l.Target, &l.TargetHash, &args, &l.Mode, &l.Status, &l.PID, &l.StartedAt, &l.EndedAt, &l.ExitCode, &l.LastError, &l.CreatedAt); err != nil {
		return nil, err
	}

	decoded, err := unmarshalArgs(args)
	if err != nil {
		return nil, fmt.Errorf("launch %s has malformed args: %w", l.ID, err)
	}
	l.Args = decoded

	return l, nil
}

// Load retrieves a Launch by its ID.
func (s *Store) Load(id string) (*Launch, error) {
	return scanLaunch(s.db.QueryRow(QueryLoadLaunch, id))
}

// List retrieves launches with optional filtering and pagination, newest first.
func (s *Store) List(target, status string, limit, offset int) ([]*Launch, error) {
	rows, err := s.db.Query(QueryListLaunches, target, target, status, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var launches []*Launch
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, err
		}
		launches = append(launches, l)
	}

	return launches, rows.Err()
}

// Prune deletes launches created before the given time and returns how many
// were removed.
func (s *Store) Prune(before time.Time) (int64, error) {
	result, err := s.db.Exec(QueryPruneLaunches, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
