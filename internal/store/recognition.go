package store

import (
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Recognition is one classified trajectory.
type Recognition struct {
	ID         int64
	BankID     string
	Class      int
	Name       string
	Score      float64
	Trajectory []gesture.Point
	CreatedAt  time.Time
}

// RecognitionRepository records classification history.
type RecognitionRepository struct {
	db *sql.DB
}

// Recognitions returns the recognition repository for this store.
func (s *Store) Recognitions() *RecognitionRepository {
	return &RecognitionRepository{db: s.db}
}

// Create records a classification. Non-finite scores are stored as NULL.
func (r *RecognitionRepository) Create(rec *Recognition) error {
	rec.CreatedAt = time.Now()

	data, err := json.Marshal(rec.Trajectory)
	if err != nil {
		return err
	}

	var score sql.NullFloat64
	if !math.IsInf(rec.Score, 0) && !math.IsNaN(rec.Score) {
		score = sql.NullFloat64{Float64: rec.Score, Valid: true}
	}

	result, err := r.db.Exec(
		`INSERT INTO recognitions (bank_id, class_index, name, score, trajectory, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.BankID, rec.Class, rec.Name, score, string(data), rec.CreatedAt,
	)
	if err != nil {
		return err
	}

	rec.ID, err = result.LastInsertId()
	return err
}

// List retrieves the most recent recognitions, newest first. A limit of
// zero or less returns all of them. Stored NULL scores read back as -Inf.
func (r *RecognitionRepository) List(limit int) ([]Recognition, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, bank_id, class_index, name, score, trajectory, created_at
		 FROM recognitions
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Recognition
	for rows.Next() {
		var rec Recognition
		var bankID sql.NullString
		var score sql.NullFloat64
		var data string
		if err := rows.Scan(&rec.ID, &bankID, &rec.Class, &rec.Name, &score, &data, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.BankID = bankID.String
		rec.Score = math.Inf(-1)
		if score.Valid {
			rec.Score = score.Float64
		}
		if err := json.Unmarshal([]byte(data), &rec.Trajectory); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// DeleteAll clears the recognition history.
func (r *RecognitionRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM recognitions`)
	return err
}
