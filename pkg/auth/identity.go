// Package auth provides identity handling for the hive: signed token
// issue/verify, OAuth code exchange against external providers, and a
// small in-process rate limiter.
package auth

// Roles assigned to marketplace users.
const (
	RoleClient     = "client"
	RoleConsultant = "consultant"
	RoleAdmin      = "admin"
)

// Identity is the authenticated subject bound to a request. In stdio mode
// it is cached for the lifetime of a connection after a successful
// authenticate call; in REST mode it is re-derived from the Authorization
// header on every request.
type Identity struct {
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	ExternalID string `json:"external_id,omitempty"`
}
