package hive

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Request is a client's consulting request.
type Request struct {
	ID          int64     `json:"id"`
	ClientID    int64     `json:"client_id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Details     string    `json:"details"`
	BudgetCents int64     `json:"budget_cents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const requestColumns = `id, client_id, title, summary, details, budget_cents, status, created_at, updated_at`

// CreateRequest inserts a new open request for a client.
func (s *Store) CreateRequest(ctx context.Context, clientID int64, title, summary, details string, budgetCents int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (client_id, title, summary, details, budget_cents) VALUES (?, ?, ?, ?, ?)`,
		clientID, title, summary, details, budgetCents)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// GetRequest returns a request by id, nil when absent.
func (s *Store) GetRequest(ctx context.Context, id int64) (*Request, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	return scanRequest(row)
}

// ListRequestsByClient returns a client's requests, newest first.
func (s *Store) ListRequestsByClient(ctx context.Context, clientID int64) ([]Request, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE client_id = ? ORDER BY created_at DESC`, clientID)
}

// ListOpenRequests returns requests consultants can still offer on.
func (s *Store) ListOpenRequests(ctx context.Context) ([]Request, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE status = ? ORDER BY created_at DESC`, RequestOpen)
}

// UpdateRequestStatus moves a request through its lifecycle.
func (s *Store) UpdateRequestStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE requests SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

// UpdateRequestSummary replaces the request's summary, used when the
// client adopts an intake refinement.
func (s *Store) UpdateRequestSummary(ctx context.Context, id int64, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE requests SET summary = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, summary, id)
	if err != nil {
		return fmt.Errorf("update request summary: %w", err)
	}
	return nil
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Title, &r.Summary, &r.Details,
			&r.BudgetCents, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row *sql.Row) (*Request, error) {
	r := &Request{}
	err := row.Scan(&r.ID, &r.ClientID, &r.Title, &r.Summary, &r.Details,
		&r.BudgetCents, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}
