package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/utcc/social-mentions/internal/overrides"
)

// Journal is a SQLite-backed append-only log of override edits
type Journal struct {
	db *sql.DB
}

var _ overrides.Journal = (*Journal)(nil)

// OpenJournal opens or creates the journal database at path
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return j, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS edits (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		record_id TEXT NOT NULL,
		field TEXT NOT NULL,
		old_value TEXT NOT NULL,
		new_value TEXT NOT NULL,
		editor TEXT NOT NULL,
		edited_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edits_record ON edits(record_id);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Append records one edit
func (j *Journal) Append(edit overrides.Edit) error {
	_, err := j.db.Exec(`
	INSERT INTO edits (id, record_id, field, old_value, new_value, editor, edited_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		edit.ID, edit.RecordID, edit.Field, edit.OldValue, edit.NewValue, edit.Editor,
		edit.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append edit %s: %w", edit.ID, err)
	}
	return nil
}

// Load returns every edit in insertion order
func (j *Journal) Load() ([]overrides.Edit, error) {
	rows, err := j.db.Query(`
	SELECT id, record_id, field, old_value, new_value, editor, edited_at
	FROM edits ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load edits: %w", err)
	}
	defer rows.Close()

	var edits []overrides.Edit
	for rows.Next() {
		var e overrides.Edit
		var at string
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Field, &e.OldValue, &e.NewValue, &e.Editor, &at); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse time of edit %s: %w", e.ID, err)
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}
