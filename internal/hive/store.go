// Package hive implements the consulting marketplace: users and
// consultant profiles, client requests, consultant offers, engagements
// with their chat/notes/checklist/contributions, transfer packs, and
// redaction jobs.
package hive

import (
	"context"
	"strings"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/storage"
)

// Request lifecycle.
const (
	RequestOpen    = "open"
	RequestMatched = "matched"
	RequestClosed  = "closed"
)

// Offer lifecycle.
const (
	OfferPending   = "pending"
	OfferAccepted  = "accepted"
	OfferDeclined  = "declined"
	OfferWithdrawn = "withdrawn"
)

// Engagement lifecycle.
const (
	EngagementActive    = "active"
	EngagementDelivered = "delivered"
	EngagementCompleted = "completed"
	EngagementCancelled = "cancelled"
)

// Redaction job lifecycle. Jobs are never re-opened.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Store provides persistence for all marketplace entities.
type Store struct {
	db *storage.DB
}

// NewStore creates a store over the common storage layer.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the marketplace schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, schema)
}

// CanEngagementTransition reports whether an engagement may move from
// one status to another. Terminal states have no outgoing transitions.
func CanEngagementTransition(from, to string) bool {
	switch from {
	case EngagementActive:
		return to == EngagementDelivered || to == EngagementCancelled
	case EngagementDelivered:
		return to == EngagementCompleted || to == EngagementCancelled
	default:
		return false
	}
}

// CanOfferTransition reports whether an offer may move between statuses.
func CanOfferTransition(from, to string) bool {
	if from != OfferPending {
		return false
	}
	return to == OfferAccepted || to == OfferDeclined || to == OfferWithdrawn
}

// joinList and splitList store string lists in a single text column.
func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'client',
    provider TEXT NOT NULL DEFAULT '',
    external_id TEXT NOT NULL DEFAULT '',
    stripe_customer_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS consultant_profiles (
    user_id INTEGER PRIMARY KEY REFERENCES users(id),
    headline TEXT NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    skills TEXT NOT NULL DEFAULT '',
    hourly_rate_cents INTEGER NOT NULL DEFAULT 0,
    available INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id INTEGER NOT NULL REFERENCES users(id),
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    details TEXT NOT NULL DEFAULT '',
    budget_cents INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'open',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS offers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id INTEGER NOT NULL REFERENCES requests(id),
    consultant_id INTEGER NOT NULL REFERENCES users(id),
    message TEXT NOT NULL DEFAULT '',
    amount_cents INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(request_id, consultant_id)
);

CREATE TABLE IF NOT EXISTS engagements (
    id TEXT PRIMARY KEY,
    request_id INTEGER NOT NULL REFERENCES requests(id),
    offer_id INTEGER NOT NULL REFERENCES offers(id),
    client_id INTEGER NOT NULL REFERENCES users(id),
    consultant_id INTEGER NOT NULL REFERENCES users(id),
    amount_cents INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'active',
    paid INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    engagement_id TEXT NOT NULL REFERENCES engagements(id),
    sender_id INTEGER NOT NULL REFERENCES users(id),
    body TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    engagement_id TEXT NOT NULL REFERENCES engagements(id),
    author_id INTEGER NOT NULL REFERENCES users(id),
    body TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS checklist_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    engagement_id TEXT NOT NULL REFERENCES engagements(id),
    title TEXT NOT NULL,
    done INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS contributions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    engagement_id TEXT NOT NULL REFERENCES engagements(id),
    author_id INTEGER NOT NULL REFERENCES users(id),
    redacted_text TEXT NOT NULL DEFAULT '',
    redaction_job_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS redaction_jobs (
    id TEXT PRIMARY KEY,
    engagement_id TEXT NOT NULL REFERENCES engagements(id),
    author_id INTEGER NOT NULL REFERENCES users(id),
    original_text TEXT NOT NULL,
    redacted_text TEXT NOT NULL DEFAULT '',
    pii_categories TEXT NOT NULL DEFAULT '',
    secret_categories TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    confidence TEXT NOT NULL DEFAULT '',
    requires_manual_review INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transfer_packs (
    id TEXT PRIMARY KEY,
    engagement_id TEXT NOT NULL REFERENCES engagements(id),
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_requests_client ON requests(client_id);
CREATE INDEX IF NOT EXISTS idx_offers_request ON offers(request_id);
CREATE INDEX IF NOT EXISTS idx_messages_engagement ON messages(engagement_id);
CREATE INDEX IF NOT EXISTS idx_notes_engagement ON notes(engagement_id);
CREATE INDEX IF NOT EXISTS idx_checklist_engagement ON checklist_items(engagement_id);
`
