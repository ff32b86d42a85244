// Package db archives decoded IMU samples and decoder counters in sqlite.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/imu.report/internal/imu"
)

type DB struct {
	*sql.DB
	path string
}

// NewDB opens (creating if necessary) the sample database at path and runs
// any pending schema migrations.
func NewDB(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: sqldb, path: path}
	if err := db.migrateUp(); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// StartSession records a new capture session and returns its id. Samples
// and stats snapshots are grouped by session so data from separate runs of
// the daemon can be told apart.
func (db *DB) StartSession(port string, baudRate int) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, port, baud_rate) VALUES (?, ?, ?)`,
		id, port, baudRate,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record session: %w", err)
	}
	return id, nil
}

// RecordSample stores one decoded sample under the given session.
func (db *DB) RecordSample(sessionID string, s imu.Sample) error {
	_, err := db.Exec(
		`INSERT INTO samples (session_id, record, value1, value2, value3, captured)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, int(s.Record),
		float64(s.Values[0]), float64(s.Values[1]), float64(s.Values[2]),
		s.Captured.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record sample: %w", err)
	}
	return nil
}

// RecordStats stores a decoder counter snapshot under the given session.
func (db *DB) RecordStats(sessionID string, st imu.Stats, at time.Time) error {
	_, err := db.Exec(
		`INSERT INTO decoder_stats (session_id, ok, crc_failure, short_frame, no_header, captured)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, st.OK, st.CRCFailure, st.ShortFrame, st.NoHeader,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record stats: %w", err)
	}
	return nil
}

// StoredSample is a sample row read back from the archive.
type StoredSample struct {
	Record   imu.RecordID `json:"record"`
	Values   [3]float64   `json:"values"`
	Captured time.Time    `json:"captured"`
}

// RecentSamples returns up to limit samples, newest first. A zero record id
// selects all record types.
func (db *DB) RecentSamples(record imu.RecordID, limit int) ([]StoredSample, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT record, value1, value2, value3, captured FROM samples`
	args := []any{}
	if record != 0 {
		query += ` WHERE record = ?`
		args = append(args, int(record))
	}
	query += ` ORDER BY sample_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []StoredSample
	for rows.Next() {
		var (
			s        StoredSample
			rec      int
			captured string
		)
		if err := rows.Scan(&rec, &s.Values[0], &s.Values[1], &s.Values[2], &captured); err != nil {
			return nil, err
		}
		s.Record = imu.RecordID(rec)
		var err error
		if s.Captured, err = time.Parse(time.RFC3339Nano, captured); err != nil {
			return nil, fmt.Errorf("failed to parse captured timestamp %q: %w", captured, err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// AttachAdminRoutes mounts debugging endpoints (tailsql live SQL browser,
// on-demand backup) under /debug/. These are for localhost/tailnet use, not
// public exposure.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "IMU DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")

		gz := gzip.NewWriter(w)
		defer gz.Close()
		if _, err := io.Copy(gz, backupFile); err != nil {
			log.Printf("Failed to stream backup: %v", err)
		}
	}))
}
