package journal

import (
	"database/sql"
	"encoding/json"
	"time"
)

type LaunchStatus string

const (
	// StatusRunning: a spawned downstream has not exited yet.
	StatusRunning LaunchStatus = "running"
	// StatusExec: the launcher replaced itself; the outcome is not observable.
	StatusExec    LaunchStatus = "exec"
	StatusSuccess LaunchStatus = "success"
	StatusFailed  LaunchStatus = "failed"
)

// ValidStatus reports whether s names a launch status.
func ValidStatus(s string) bool {
	switch LaunchStatus(s) {
	case StatusRunning, StatusExec, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

const dbschema = `
CREATE TABLE IF NOT EXISTS launches (
    id TEXT PRIMARY KEY,
    target TEXT NOT NULL,
    target_hash TEXT NOT NULL,
    args TEXT NOT NULL,
    mode TEXT NOT NULL,
    status TEXT NOT NULL,
    pid INTEGER,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP,
    exit_code INTEGER,
    last_error TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_launches_target ON launches(target);
CREATE INDEX IF NOT EXISTS idx_launches_created_at ON launches(created_at);
`

const (
	QueryCreateLaunch = `
        INSERT INTO launches (id, target, target_hash, args, mode, status, started_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `

	QueryUpdateLaunch = `
        UPDATE launches
        SET mode = ?, status = ?, pid = ?, ended_at = ?, exit_code = ?, last_error = ?
        WHERE id = ?
    `

	QueryLoadLaunch = `
        SELECT id, target, target_hash, args, mode, status, pid, started_at, ended_at, exit_code, last_error, created_at
        FROM launches
        WHERE id = ?
    `

	QueryListLaunches = `
		SELECT id, target, target_hash, args, mode, status, pid, started_at, ended_at, exit_code, last_error, created_at
		FROM launches
		WHERE (? = '' OR target = ?)
			AND (? = '' OR status = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	QueryPruneLaunches = `
		DELETE FROM launches
		WHERE created_at < ?
	`
)

// Launch records one hand-off to a downstream entry point.
type Launch struct {
	ID         string         `db:"id"`
	Target     string         `db:"target"`
	TargetHash string         `db:"target_hash"`
	Args       []string       `db:"args"` // stored as a JSON array
	Mode       string         `db:"mode"`
	Status     LaunchStatus   `db:"status"`
	PID        sql.NullInt64  `db:"pid"`
	StartedAt  time.Time      `db:"started_at"`
	EndedAt    sql.NullTime   `db:"ended_at"`
	ExitCode   sql.NullInt64  `db:"exit_code"`
	LastError  sql.NullString `db:"last_error"`
	CreatedAt  time.Time      `db:"created_at"`
}

// Finish marks the launch as ended with the given status code.
func (l *Launch) Finish(code int, err error) {
	now := time.Now()
	l.EndedAt = sql.NullTime{Time: now, Valid: true}
	l.ExitCode = sql.NullInt64{Int64: int64(code), Valid: true}
	if err != nil {
		l.LastError = sql.NullString{String: err.Error(), Valid: true}
	}
	if code == 0 && err == nil {
		l.Status = StatusSuccess
	} else {
		l.Status = StatusFailed
	}
}

func marshalArgs(args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalArgs(data string) ([]string, error) {
	args := []string{}
	if data == "" {
		return args, nil
	}
	err := json.Unmarshal([]byte(data), &args)
	return args, err
}

// MarshalLaunch converts a Launch to JSON bytes.
func MarshalLaunch(l *Launch) ([]byte, error) {
	type launchOutput struct {
		ID        string     `json:"id"`
		Target    string     `json:"target"`
		Args      []string   `json:"args"`
		Mode      string     `json:"mode"`
		Status    string     `json:"status"`
		PID       *int64     `json:"pid,omitempty"`
		StartedAt time.Time  `json:"started_at"`
		EndedAt   *time.Time `json:"ended_at,omitempty"`
		ExitCode  *int64     `json:"exit_code,omitempty"`
		LastError string     `json:"last_error,omitempty"`
		CreatedAt time.Time  `json:"created_at"`
	}

	var endedAt *time.Time
	if l.EndedAt.Valid {
		endedAt = &l.EndedAt.Time
	}

	var exitCode *int64
	if l.ExitCode.Valid {
		exitCode = &l.ExitCode.Int64
	}

	var pid *int64
	if l.PID.Valid {
		pid = &l.PID.Int64
	}

	args := l.Args
	if args == nil {
		args = []string{}
	}

	return json.Marshal(launchOutput{
		ID:        l.ID,
		Target:    l.Target,
		Args:      args,
		Mode:      l.Mode,
		Status:    string(l.Status),
		PID:       pid,
		StartedAt: l.StartedAt,
		EndedAt:   endedAt,
		ExitCode:  exitCode,
		LastError: l.LastError.String,
		CreatedAt: l.CreatedAt,
	})
}
