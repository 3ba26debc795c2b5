// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vrsandeep/shelfie-go/internal/models"
)

// ErrRunNotFound is returned when no run matches the lookup.
var ErrRunNotFound = errors.New("run not found")

const defaultListLimit = 50

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const runColumns = `id, store_type, url, max_pages, categories, source, state,
	product_count, output_file, error, started_at, finished_at`

// CreateRun inserts the history record of a run that has just started.
func (s *Store) CreateRun(run *models.ScrapeRun) error {
	categories, err := json.Marshal(nonNil(run.Categories))
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StoreType, run.URL, run.MaxPages, string(categories), run.Source, run.State,
		run.ProductCount, run.OutputFile, run.Error, run.StartedAt.UTC(), utcOrNil(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the terminal state of a run together with all of its products.
// Products from an earlier call are replaced.
func (s *Store) FinishRun(runID, state string, outputFile *string, errMsg string, finishedAt time.Time, products []models.Product) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE runs SET state = ?, product_count = ?, output_file = ?, error = ?, finished_at = ?
		WHERE id = ?`, state, len(products), outputFile, errMsg, finishedAt.UTC(), runID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRunNotFound
	}

	if _, err := tx.Exec("DELETE FROM products WHERE run_id = ?", runID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO products (run_id, position, name, brand, price, weight, store, url, page)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range products {
		if _, err := stmt.Exec(runID, i, p.Name, p.Brand, p.Price, p.Weight, p.Store, p.URL, p.Page); err != nil {
			return fmt.Errorf("insert product %d of run %s: %w", i, runID, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a single run by its ID.
func (s *Store) GetRun(runID string) (*models.ScrapeRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

// GetRunByOutputFile finds the run that produced the named artifact.
func (s *Store) GetRunByOutputFile(name string) (*models.ScrapeRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE output_file = ?`, name)
	return scanRun(row)
}

// ListRuns returns the most recent runs first. A non-positive limit uses the default.
func (s *Store) ListRuns(limit int) ([]*models.ScrapeRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.ScrapeRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunProducts returns the products of a run in extraction order.
func (s *Store) GetRunProducts(runID string) ([]models.Product, error) {
	var exists int
	if err := s.db.QueryRow("SELECT 1 FROM runs WHERE id = ?", runID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	rows, err := s.db.Query(`SELECT name, brand, price, weight, store, url, page
		FROM products WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.Name, &p.Brand, &p.Price, &p.Weight, &p.Store, &p.URL, &p.Page); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeleteRun removes a run and, through the foreign key, its products.
func (s *Store) DeleteRun(runID string) error {
	res, err := s.db.Exec("DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.ScrapeRun, error) {
	var (
		run        models.ScrapeRun
		categories string
		outputFile sql.NullString
		finishedAt sql.NullTime
	)
	err := row.Scan(&run.ID, &run.StoreType, &run.URL, &run.MaxPages, &categories, &run.Source, &run.State,
		&run.ProductCount, &outputFile, &run.Error, &run.StartedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(categories), &run.Categories); err != nil {
		return nil, fmt.Errorf("decode categories of run %s: %w", run.ID, err)
	}
	if run.Categories == nil {
		run.Categories = []string{}
	}
	if outputFile.Valid {
		run.OutputFile = &outputFile.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
