package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Gesture represents a gesture definition stored in the database. Its
// prototype trajectory is kept in the gesture_points table.
type Gesture struct {
	ID        string
	Name      string
	States    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GestureRepository provides CRUD operations for gestures.
type GestureRepository struct {
	db *sql.DB
}

// Gestures returns the gesture repository for this store.
func (s *Store) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db}
}

// Create inserts a new gesture into the database.
func (r *GestureRepository) Create(g *Gesture) error {
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.States <= 0 {
		g.States = gesture.DefaultStates
	}

	_, err := r.db.Exec(
		`INSERT INTO gestures (id, name, states, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.States, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

// GetByID retrieves a gesture by its ID.
func (r *GestureRepository) GetByID(id string) (*Gesture, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT id, name, states, created_at, updated_at
		 FROM gestures WHERE id = ?`,
		id,
	))
}

// GetByName retrieves a gesture by its name.
func (r *GestureRepository) GetByName(name string) (*Gesture, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT id, name, states, created_at, updated_at
		 FROM gestures WHERE name = ?`,
		name,
	))
}

func (r *GestureRepository) scanOne(row *sql.Row) (*Gesture, error) {
	g := &Gesture{}
	err := row.Scan(&g.ID, &g.Name, &g.States, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// List retrieves all gestures in insertion order. A bank trained from
// this list uses the position of each gesture as its class index.
func (r *GestureRepository) List() ([]*Gesture, error) {
	rows, err := r.db.Query(
		`SELECT id, name, states, created_at, updated_at
		 FROM gestures ORDER BY rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gestures []*Gesture
	for rows.Next() {
		g := &Gesture{}
		if err := rows.Scan(&g.ID, &g.Name, &g.States, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		gestures = append(gestures, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return gestures, nil
}

// Update updates an existing gesture in the database.
func (r *GestureRepository) Update(g *Gesture) error {
	g.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE gestures SET name = ?, states = ?, updated_at = ?
		 WHERE id = ?`,
		g.Name, g.States, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}
	return expectRows(result)
}

// Delete removes a gesture and its points from the database.
func (r *GestureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM gestures WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRows(result)
}

// SetPoints replaces the prototype trajectory of a gesture in a single
// transaction.
func (r *GestureRepository) SetPoints(gestureID string, points []gesture.Point) error {
	return r.setPrototype(gestureID, 0, points)
}

// SetPrototype replaces the state count and trajectory of a gesture in a
// single transaction.
func (r *GestureRepository) SetPrototype(gestureID string, states int, points []gesture.Point) error {
	if states < 1 {
		return fmt.Errorf("invalid state count %d", states)
	}
	return r.setPrototype(gestureID, states, points)
}

// setPrototype keeps the stored state count when states is zero.
func (r *GestureRepository) setPrototype(gestureID string, states int, points []gesture.Point) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE gestures SET states = COALESCE(NULLIF(?, 0), states), updated_at = ? WHERE id = ?`,
		states, time.Now(), gestureID,
	)
	if err != nil {
		return err
	}
	if err := expectRows(result); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM gesture_points WHERE gesture_id = ?`, gestureID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO gesture_points (gesture_id, sequence, x, y) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range points {
		if _, err := stmt.Exec(gestureID, i, p.X, p.Y); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPoints retrieves the prototype trajectory of a gesture.
func (r *GestureRepository) GetPoints(gestureID string) ([]gesture.Point, error) {
	rows, err := r.db.Query(
		`SELECT x, y FROM gesture_points
		 WHERE gesture_id = ?
		 ORDER BY sequence`,
		gestureID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []gesture.Point
	for rows.Next() {
		var p gesture.Point
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return points, nil
}

// Prototypes loads every gesture with its trajectory, in class order.
func (r *GestureRepository) Prototypes() ([]*gesture.Prototype, error) {
	gestures, err := r.List()
	if err != nil {
		return nil, err
	}

	protos := make([]*gesture.Prototype, 0, len(gestures))
	for _, g := range gestures {
		points, err := r.GetPoints(g.ID)
		if err != nil {
			return nil, err
		}
		protos = append(protos, &gesture.Prototype{Name: g.Name, States: g.States, Points: points})
	}
	return protos, nil
}

func expectRows(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
