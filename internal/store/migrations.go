package store

import "fmt"

// migrations are applied in order. PRAGMA user_version records how many
// have run, so only append to this list.
var migrations = []string{
	// 1: one prototype per gesture class; rowid order is class order
	`CREATE TABLE gestures (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		states INTEGER NOT NULL DEFAULT 1 CHECK(states > 0),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// 2: the prototype trajectory
	`CREATE TABLE gesture_points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		gesture_id TEXT NOT NULL REFERENCES gestures(id) ON DELETE CASCADE,
		sequence INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL
	)`,

	// 3: points by gesture
	`CREATE INDEX idx_gesture_points_gesture_id ON gesture_points(gesture_id)`,

	// 4: trained model banks in their file format
	`CREATE TABLE banks (
		id TEXT PRIMARY KEY,
		names TEXT NOT NULL DEFAULT '[]',
		total INTEGER NOT NULL,
		document TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// 5: classification history
	`CREATE TABLE recognitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bank_id TEXT,
		class_index INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		score REAL,
		trajectory TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// 6: history by time
	`CREATE INDEX idx_recognitions_created_at ON recognitions(created_at)`,
}

// runMigrations applies every migration newer than the database's
// user_version, each in its own transaction.
func (s *Store) runMigrations() error {
	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported %d", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
