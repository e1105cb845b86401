package hive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
)

// User represents an account in the marketplace.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	Provider         string    `json:"provider,omitempty"`
	ExternalID       string    `json:"external_id,omitempty"`
	StripeCustomerID string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// Identity converts a user row into an auth identity.
func (u *User) Identity() *auth.Identity {
	return &auth.Identity{
		UserID:     u.ID,
		Email:      u.Email,
		Role:       u.Role,
		ExternalID: u.ExternalID,
	}
}

const userColumns = `id, email, name, password_hash, role, provider, external_id, stripe_customer_id, created_at`

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role,
		&u.Provider, &u.ExternalID, &u.StripeCustomerID, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a new password-credentialed user.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash, role string) (int64, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if role == "" {
		role = auth.RoleClient
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, role) VALUES (?, ?, ?, ?)`,
		email, name, passwordHash, role)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// GetUserByEmail finds a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// GetUserByID finds a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// UpsertOAuthUser creates or refreshes a user from an external identity.
// First login creates a client account; later logins update the provider
// binding and display name only.
func (s *Store) UpsertOAuthUser(ctx context.Context, ext *auth.ExternalIdentity) (*User, error) {
	if ext.Email == "" {
		return nil, fmt.Errorf("external identity has no email")
	}
	email := strings.TrimSpace(strings.ToLower(ext.Email))

	existing, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (email, name, role, provider, external_id) VALUES (?, ?, ?, ?, ?)`,
			email, ext.Name, auth.RoleClient, ext.Provider, ext.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("create oauth user: %w", err)
		}
		return s.GetUserByEmail(ctx, email)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET provider = ?, external_id = ?, name = CASE WHEN name = '' THEN ? ELSE name END WHERE id = ?`,
		ext.Provider, ext.ExternalID, ext.Name, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("update oauth user: %w", err)
	}
	return s.GetUserByID(ctx, existing.ID)
}

// SetStripeCustomer records the Stripe customer bound to a user.
func (s *Store) SetStripeCustomer(ctx context.Context, userID int64, customerID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET stripe_customer_id = ? WHERE id = ?`, customerID, userID)
	if err != nil {
		return fmt.Errorf("set stripe customer: %w", err)
	}
	return nil
}

// ConsultantProfile is the public face of a consultant.
type ConsultantProfile struct {
	UserID          int64     `json:"user_id"`
	Name            string    `json:"name,omitempty"`
	Headline        string    `json:"headline"`
	Bio             string    `json:"bio"`
	Skills          []string  `json:"skills"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`
	Available       bool      `json:"available"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpsertConsultantProfile creates or replaces a consultant's profile and
// promotes the user to the consultant role.
func (s *Store) UpsertConsultantProfile(ctx context.Context, p *ConsultantProfile) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO consultant_profiles (user_id, headline, bio, skills, hourly_rate_cents, available, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(user_id) DO UPDATE SET
			   headline = excluded.headline,
			   bio = excluded.bio,
			   skills = excluded.skills,
			   hourly_rate_cents = excluded.hourly_rate_cents,
			   available = excluded.available,
			   updated_at = CURRENT_TIMESTAMP`,
			p.UserID, p.Headline, p.Bio, joinList(p.Skills), p.HourlyRateCents, boolToInt(p.Available))
		if err != nil {
			return fmt.Errorf("upsert consultant profile: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET role = ? WHERE id = ? AND role != ?`,
			auth.RoleConsultant, p.UserID, auth.RoleAdmin)
		return err
	})
}

// GetConsultantProfile returns a consultant's profile, nil when absent.
func (s *Store) GetConsultantProfile(ctx context.Context, userID int64) (*ConsultantProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT p.user_id, u.name, p.headline, p.bio, p.skills, p.hourly_rate_cents, p.available, p.updated_at
		 FROM consultant_profiles p JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = ?`, userID)
	return scanProfile(row)
}

// ListAvailableConsultants returns every consultant currently accepting
// work, used as the candidate pool for matching.
func (s *Store) ListAvailableConsultants(ctx context.Context) ([]ConsultantProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.user_id, u.name, p.headline, p.bio, p.skills, p.hourly_rate_cents, p.available, p.updated_at
		 FROM consultant_profiles p JOIN users u ON u.id = p.user_id
		 WHERE p.available = 1 ORDER BY p.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConsultantProfile
	for rows.Next() {
		var p ConsultantProfile
		var skills string
		var available int
		if err := rows.Scan(&p.UserID, &p.Name, &p.Headline, &p.Bio, &skills, &p.HourlyRateCents, &available, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Skills = splitList(skills)
		p.Available = available != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(row *sql.Row) (*ConsultantProfile, error) {
	p := &ConsultantProfile{}
	var skills string
	var available int
	err := row.Scan(&p.UserID, &p.Name, &p.Headline, &p.Bio, &skills, &p.HourlyRateCents, &available, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Skills = splitList(skills)
	p.Available = available != 0
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
