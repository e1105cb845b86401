package hive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engagement is an accepted offer in progress: a client, a consultant,
// their chat, notes, checklist and contributions.
type Engagement struct {
	ID           string    `json:"id"`
	RequestID    int64     `json:"request_id"`
	OfferID      int64     `json:"offer_id"`
	ClientID     int64     `json:"client_id"`
	ConsultantID int64     `json:"consultant_id"`
	AmountCents  int64     `json:"amount_cents"`
	Status       string    `json:"status"`
	Paid         bool      `json:"paid"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsParticipant reports whether a user is one of the engagement's sides.
func (e *Engagement) IsParticipant(userID int64) bool {
	return e.ClientID == userID || e.ConsultantID == userID
}

const engagementColumns = `id, request_id, offer_id, client_id, consultant_id, amount_cents, status, paid, created_at`

// GetEngagement returns an engagement by id, nil when absent.
func (s *Store) GetEngagement(ctx context.Context, id string) (*Engagement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+engagementColumns+` FROM engagements WHERE id = ?`, id)
	e := &Engagement{}
	var paid int
	err := row.Scan(&e.ID, &e.RequestID, &e.OfferID, &e.ClientID, &e.ConsultantID,
		&e.AmountCents, &e.Status, &paid, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	e.Paid = paid != 0
	return e, nil
}

// ListEngagementsByUser returns engagements a user participates in.
func (s *Store) ListEngagementsByUser(ctx context.Context, userID int64) ([]Engagement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+engagementColumns+` FROM engagements
		 WHERE client_id = ? OR consultant_id = ? ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Engagement
	for rows.Next() {
		var e Engagement
		var paid int
		if err := rows.Scan(&e.ID, &e.RequestID, &e.OfferID, &e.ClientID, &e.ConsultantID,
			&e.AmountCents, &e.Status, &paid, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Paid = paid != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEngagementStatus moves an engagement through its lifecycle. The
// caller is responsible for checking CanEngagementTransition first.
func (s *Store) UpdateEngagementStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE engagements SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update engagement status: %w", err)
	}
	return nil
}

// MarkEngagementPaid records a completed payment.
func (s *Store) MarkEngagementPaid(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE engagements SET paid = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark engagement paid: %w", err)
	}
	return nil
}

// --- Messages ---

// Message is one chat message inside an engagement.
type Message struct {
	ID           int64     `json:"id"`
	EngagementID string    `json:"engagement_id"`
	SenderID     int64     `json:"sender_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// AddMessage appends a chat message.
func (s *Store) AddMessage(ctx context.Context, engagementID string, senderID int64, body string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (engagement_id, sender_id, body) VALUES (?, ?, ?)`,
		engagementID, senderID, body)
	if err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// ListMessages returns an engagement's chat in chronological order.
func (s *Store) ListMessages(ctx context.Context, engagementID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, engagement_id, sender_id, body, created_at FROM messages
		 WHERE engagement_id = ? ORDER BY created_at, id`, engagementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.EngagementID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Notes ---

// Note is a working note attached to an engagement.
type Note struct {
	ID           int64     `json:"id"`
	EngagementID string    `json:"engagement_id"`
	AuthorID     int64     `json:"author_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// AddNote appends a note.
func (s *Store) AddNote(ctx context.Context, engagementID string, authorID int64, body string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (engagement_id, author_id, body) VALUES (?, ?, ?)`,
		engagementID, authorID, body)
	if err != nil {
		return 0, fmt.Errorf("add note: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// ListNotes returns an engagement's notes in chronological order.
func (s *Store) ListNotes(ctx context.Context, engagementID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, engagement_id, author_id, body, created_at FROM notes
		 WHERE engagement_id = ? ORDER BY created_at, id`, engagementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.EngagementID, &n.AuthorID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- Checklist ---

// ChecklistItem is a work item on an engagement's checklist.
type ChecklistItem struct {
	ID           int64     `json:"id"`
	EngagementID string    `json:"engagement_id"`
	Title        string    `json:"title"`
	Done         bool      `json:"done"`
	CreatedAt    time.Time `json:"created_at"`
}

// AddChecklistItem appends an item.
func (s *Store) AddChecklistItem(ctx context.Context, engagementID, title string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checklist_items (engagement_id, title) VALUES (?, ?)`,
		engagementID, title)
	if err != nil {
		return 0, fmt.Errorf("add checklist item: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// ToggleChecklistItem flips an item's done flag and returns the new
// state. False with no error means the item does not exist.
func (s *Store) ToggleChecklistItem(ctx context.Context, engagementID string, itemID int64) (*ChecklistItem, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE checklist_items SET done = 1 - done WHERE id = ? AND engagement_id = ?`,
		itemID, engagementID)
	if err != nil {
		return nil, fmt.Errorf("toggle checklist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, engagement_id, title, done, created_at FROM checklist_items WHERE id = ?`, itemID)
	item := &ChecklistItem{}
	var done int
	if err := row.Scan(&item.ID, &item.EngagementID, &item.Title, &done, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Done = done != 0
	return item, nil
}

// ListChecklist returns an engagement's checklist in creation order.
func (s *Store) ListChecklist(ctx context.Context, engagementID string) ([]ChecklistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, engagement_id, title, done, created_at FROM checklist_items
		 WHERE engagement_id = ? ORDER BY id`, engagementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChecklistItem
	for rows.Next() {
		var item ChecklistItem
		var done int
		if err := rows.Scan(&item.ID, &item.EngagementID, &item.Title, &done, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Done = done != 0
		out = append(out, item)
	}
	return out, rows.Err()
}

// --- Contributions ---

// Contribution is redacted consultant output attached to an engagement.
// Only the redacted text is stored; originals live on the redaction job.
type Contribution struct {
	ID             int64     `json:"id"`
	EngagementID   string    `json:"engagement_id"`
	AuthorID       int64     `json:"author_id"`
	RedactedText   string    `json:"redacted_text"`
	RedactionJobID string    `json:"redaction_job_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// AddContribution stores a redacted contribution.
func (s *Store) AddContribution(ctx context.Context, engagementID string, authorID int64, redactedText, jobID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contributions (engagement_id, author_id, redacted_text, redaction_job_id) VALUES (?, ?, ?, ?)`,
		engagementID, authorID, redactedText, jobID)
	if err != nil {
		return 0, fmt.Errorf("add contribution: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// ListContributions returns an engagement's contributions in order.
func (s *Store) ListContributions(ctx context.Context, engagementID string) ([]Contribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, engagement_id, author_id, redacted_text, redaction_job_id, created_at
		 FROM contributions WHERE engagement_id = ? ORDER BY id`, engagementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contribution
	for rows.Next() {
		var c Contribution
		if err := rows.Scan(&c.ID, &c.EngagementID, &c.AuthorID, &c.RedactedText, &c.RedactionJobID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Transfer packs ---

// TransferPack is the synthesized handover document for an engagement.
type TransferPack struct {
	ID           string    `json:"id"`
	EngagementID string    `json:"engagement_id"`
	Summary      string    `json:"summary"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// SaveTransferPack stores a generated pack and returns its id.
func (s *Store) SaveTransferPack(ctx context.Context, engagementID, summary, content string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transfer_packs (id, engagement_id, summary, content) VALUES (?, ?, ?, ?)`,
		id, engagementID, summary, content)
	if err != nil {
		return "", fmt.Errorf("save transfer pack: %w", err)
	}
	return id, nil
}

// GetTransferPack returns the newest pack for an engagement, nil when
// none has been generated.
func (s *Store) GetTransferPack(ctx context.Context, engagementID string) (*TransferPack, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, engagement_id, summary, content, created_at FROM transfer_packs
		 WHERE engagement_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, engagementID)
	p := &TransferPack{}
	err := row.Scan(&p.ID, &p.EngagementID, &p.Summary, &p.Content, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}
