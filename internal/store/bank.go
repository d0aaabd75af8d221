package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/hmm"
)

// Bank is a trained model bank kept in its YAML file format, with the
// gesture name of each class.
type Bank struct {
	ID        string
	Names     []string
	Total     int
	Document  []byte
	CreatedAt time.Time
}

// NewBank encodes b for storage.
func NewBank(id string, b hmm.Bank, names []string) (*Bank, error) {
	var buf bytes.Buffer
	if err := hmm.WriteBank(&buf, b); err != nil {
		return nil, err
	}
	return &Bank{ID: id, Names: names, Total: len(b), Document: buf.Bytes()}, nil
}

// Models decodes the stored document.
func (b *Bank) Models() (hmm.Bank, error) {
	bank, err := hmm.ReadBank(bytes.NewReader(b.Document))
	if err != nil {
		return nil, fmt.Errorf("failed to decode bank %s: %w", b.ID, err)
	}
	return bank, nil
}

// BankRepository provides storage for trained model banks.
type BankRepository struct {
	db *sql.DB
}

// Banks returns the bank repository for this store.
func (s *Store) Banks() *BankRepository {
	return &BankRepository{db: s.db}
}

// Create inserts a new bank into the database.
func (r *BankRepository) Create(b *Bank) error {
	b.CreatedAt = time.Now()

	names, err := json.Marshal(b.Names)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO banks (id, names, total, document, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		b.ID, string(names), b.Total, string(b.Document), b.CreatedAt,
	)
	return err
}

// GetByID retrieves a bank by its ID.
func (r *BankRepository) GetByID(id string) (*Bank, error) {
	return scanBank(r.db.QueryRow(
		`SELECT id, names, total, document, created_at
		 FROM banks WHERE id = ?`,
		id,
	))
}

// Latest retrieves the most recently stored bank.
func (r *BankRepository) Latest() (*Bank, error) {
	return scanBank(r.db.QueryRow(
		`SELECT id, names, total, document, created_at
		 FROM banks ORDER BY rowid DESC LIMIT 1`,
	))
}

// List retrieves all banks, newest first, without their documents.
func (r *BankRepository) List() ([]*Bank, error) {
	rows, err := r.db.Query(
		`SELECT id, names, total, created_at
		 FROM banks ORDER BY rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var banks []*Bank
	for rows.Next() {
		b := &Bank{}
		var names string
		if err := rows.Scan(&b.ID, &names, &b.Total, &b.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(names), &b.Names); err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return banks, nil
}

// Delete removes a bank by its ID.
func (r *BankRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM banks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRows(result)
}

func scanBank(row *sql.Row) (*Bank, error) {
	b := &Bank{}
	var names, doc string
	err := row.Scan(&b.ID, &names, &b.Total, &doc, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(names), &b.Names); err != nil {
		return nil, err
	}
	b.Document = []byte(doc)
	return b, nil
}
