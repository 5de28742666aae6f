// Package layoutdb stores slot layouts and ground-truth labels in SQLite,
// keyed by camera layout name.
package layoutdb

import (
	"database/sql"
	"fmt"

	"parking-occupancy/internal/labels"
	"parking-occupancy/internal/roi"
	"parking-occupancy/pkg/geometry"

	_ "modernc.org/sqlite"
)

var (
	ErrLayoutNotFound = fmt.Errorf("%w in database", roi.ErrMissing)
	ErrLabelsNotFound = fmt.Errorf("%w in database", labels.ErrMissing)
)

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS layouts (
			name TEXT NOT NULL,
			slot_index INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			PRIMARY KEY (name, slot_index)
		);
		CREATE TABLE IF NOT EXISTS labels (
			layout TEXT NOT NULL,
			frame TEXT NOT NULL,
			slot_index INTEGER NOT NULL,
			label INTEGER NOT NULL CHECK (label IN (0, 1)),
			PRIMARY KEY (layout, frame, slot_index)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &DB{db}, nil
}

// PutLayout replaces every slot of the named layout.
func (db *DB) PutLayout(name string, slots []geometry.RectInt) error {
	l := &roi.Layout{Name: name, Slots: slots}
	if err := l.Validate(); err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM layouts WHERE name = ?", name); err != nil {
		return err
	}
	for i, s := range slots {
		_, err := tx.Exec("INSERT INTO layouts (name, slot_index, x, y, width, height) VALUES (?, ?, ?, ?, ?, ?)",
			name, i, s.X, s.Y, s.Width, s.Height)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Layout returns the named layout with slots in index order.
func (db *DB) Layout(name string) (*roi.Layout, error) {
	rows, err := db.Query("SELECT x, y, width, height FROM layouts WHERE name = ? ORDER BY slot_index", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	l := &roi.Layout{Name: name}
	for rows.Next() {
		var s geometry.RectInt
		if err := rows.Scan(&s.X, &s.Y, &s.Width, &s.Height); err != nil {
			return nil, err
		}
		l.Slots = append(l.Slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(l.Slots) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	return l, nil
}

// Layouts returns the stored layout names in ascending order.
func (db *DB) Layouts() ([]string, error) {
	rows, err := db.Query("SELECT DISTINCT name FROM layouts ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PutLabels replaces the labels of one frame.
func (db *DB) PutLabels(layout, frame string, values []int) error {
	for i, v := range values {
		if v != labels.Free && v != labels.Occupied {
			return fmt.Errorf("frame %s slot %d: %w (got %d)", frame, i, labels.ErrInvalidLabel, v)
		}
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := putLabels(tx, layout, frame, values); err != nil {
		return err
	}
	return tx.Commit()
}

// PutLabelSet replaces the labels of every frame in ls in one transaction.
func (db *DB) PutLabelSet(layout string, ls labels.LabelSet) error {
	if err := ls.Validate(); err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, frame := range ls.Frames() {
		if err := putLabels(tx, layout, frame, ls[frame]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func putLabels(tx *sql.Tx, layout, frame string, values []int) error {
	if _, err := tx.Exec("DELETE FROM labels WHERE layout = ? AND frame = ?", layout, frame); err != nil {
		return err
	}
	for i, v := range values {
		_, err := tx.Exec("INSERT INTO labels (layout, frame, slot_index, label) VALUES (?, ?, ?, ?)",
			layout, frame, i, v)
		if err != nil {
			return fmt.Errorf("frame %s slot %d: %w", frame, i, err)
		}
	}
	return nil
}

// LabelSet returns every labeled frame of the layout. Frames stored with an
// empty label list are not represented.
func (db *DB) LabelSet(layout string) (labels.LabelSet, error) {
	rows, err := db.Query("SELECT frame, slot_index, label FROM labels WHERE layout = ? ORDER BY frame, slot_index", layout)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ls := labels.LabelSet{}
	for rows.Next() {
		var frame string
		var idx, v int
		if err := rows.Scan(&frame, &idx, &v); err != nil {
			return nil, err
		}
		if idx != len(ls[frame]) {
			return nil, fmt.Errorf("frame %s: slot %d stored without slot %d", frame, idx, len(ls[frame]))
		}
		ls[frame] = append(ls[frame], v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ls) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLabelsNotFound, layout)
	}
	return ls, nil
}
