package hive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Offer is a consultant's bid on a request.
type Offer struct {
	ID           int64     `json:"id"`
	RequestID    int64     `json:"request_id"`
	ConsultantID int64     `json:"consultant_id"`
	Message      string    `json:"message"`
	AmountCents  int64     `json:"amount_cents"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ErrDuplicateOffer indicates a consultant already offered on a request.
var ErrDuplicateOffer = fmt.Errorf("consultant already has an offer on this request")

const offerColumns = `id, request_id, consultant_id, message, amount_cents, status, created_at`

// CreateOffer inserts a pending offer. One offer per consultant per
// request; violations surface as ErrDuplicateOffer.
func (s *Store) CreateOffer(ctx context.Context, requestID, consultantID int64, message string, amountCents int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO offers (request_id, consultant_id, message, amount_cents) VALUES (?, ?, ?, ?)`,
		requestID, consultantID, message, amountCents)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "unique") {
			return 0, ErrDuplicateOffer
		}
		return 0, fmt.Errorf("create offer: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// GetOffer returns an offer by id, nil when absent.
func (s *Store) GetOffer(ctx context.Context, id int64) (*Offer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = ?`, id)
	return scanOffer(row)
}

// ListOffersByRequest returns all offers on a request, newest first.
func (s *Store) ListOffersByRequest(ctx context.Context, requestID int64) ([]Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE request_id = ? ORDER BY created_at DESC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Offer
	for rows.Next() {
		var o Offer
		if err := rows.Scan(&o.ID, &o.RequestID, &o.ConsultantID, &o.Message,
			&o.AmountCents, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// AcceptOffer accepts a pending offer in one transaction: the offer is
// accepted, its siblings are declined, the request becomes matched, and
// an active engagement is created carrying the offer's amount.
func (s *Store) AcceptOffer(ctx context.Context, offer *Offer, clientID int64) (*Engagement, error) {
	eng := &Engagement{
		ID:           uuid.NewString(),
		RequestID:    offer.RequestID,
		OfferID:      offer.ID,
		ClientID:     clientID,
		ConsultantID: offer.ConsultantID,
		AmountCents:  offer.AmountCents,
		Status:       EngagementActive,
	}

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE offers SET status = ? WHERE id = ? AND status = ?`,
			OfferAccepted, offer.ID, OfferPending)
		if err != nil {
			return fmt.Errorf("accept offer: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("offer %d is no longer pending", offer.ID)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE offers SET status = ? WHERE request_id = ? AND id != ? AND status = ?`,
			OfferDeclined, offer.RequestID, offer.ID, OfferPending); err != nil {
			return fmt.Errorf("decline sibling offers: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE requests SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			RequestMatched, offer.RequestID); err != nil {
			return fmt.Errorf("mark request matched: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO engagements (id, request_id, offer_id, client_id, consultant_id, amount_cents, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			eng.ID, eng.RequestID, eng.OfferID, eng.ClientID, eng.ConsultantID, eng.AmountCents, eng.Status); err != nil {
			return fmt.Errorf("create engagement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	eng.CreatedAt = time.Now()
	return eng, nil
}

// UpdateOfferStatus moves an offer to declined or withdrawn. The pending
// precondition is enforced in SQL so concurrent accept/decline cannot
// double-transition.
func (s *Store) UpdateOfferStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE offers SET status = ? WHERE id = ? AND status = ?`, status, id, OfferPending)
	if err != nil {
		return fmt.Errorf("update offer status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("offer %d is no longer pending", id)
	}
	return nil
}

func scanOffer(row *sql.Row) (*Offer, error) {
	o := &Offer{}
	err := row.Scan(&o.ID, &o.RequestID, &o.ConsultantID, &o.Message,
		&o.AmountCents, &o.Status, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}
