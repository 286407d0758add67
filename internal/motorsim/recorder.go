package motorsim

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Recorder appends telemetry samples to a SQLite database.
type Recorder struct {
	db *sql.DB
}

// OpenRecorder opens or creates the database at path.
func OpenRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	// one writer
	db.SetMaxOpenConns(1)

	r := &Recorder{db: db}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp_ms INTEGER NOT NULL,
			speed REAL NOT NULL,
			torque REAL NOT NULL,
			temperature REAL NOT NULL,
			current REAL NOT NULL,
			status TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS samples_timestamp ON samples (timestamp_ms);
	`)
	if err != nil {
		return fmt.Errorf("init recording schema: %w", err)
	}
	return nil
}

func (r *Recorder) Record(ctx context.Context, t Telemetry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO samples (timestamp_ms, speed, torque, temperature, current, status) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Timestamp, t.Speed, t.Torque, t.Temperature, t.Current, t.Status)
	return err
}

// Samples returns up to limit recorded samples, oldest first.
func (r *Recorder) Samples(ctx context.Context, limit int) ([]Telemetry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT timestamp_ms, speed, torque, temperature, current, status FROM samples ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Telemetry
	for rows.Next() {
		var t Telemetry
		if err := rows.Scan(&t.Timestamp, &t.Speed, &t.Torque, &t.Temperature, &t.Current, &t.Status); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Recorder) Close() error {
	return r.db.Close()
}
