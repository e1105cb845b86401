// Package tools registers the marketplace tool catalog on the shared
// registry. Every handler returns either a result payload or a
// *toolserver.ToolError carrying one of the taxonomy codes.
package tools

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/agents"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/billing"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/notify"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/toolserver"
)

// Toolset bundles the dependencies the handlers share.
type Toolset struct {
	Store    *hive.Store
	Agents   *agents.Agents
	Codec    *auth.Codec
	Billing  *billing.Billing
	Notifier *notify.Notifier
	Name     string
	Version  string
	Logger   *slog.Logger
}

// New fills in defaults for optional dependencies.
func New(ts Toolset) *Toolset {
	if ts.Logger == nil {
		ts.Logger = slog.Default().With("component", "tools")
	}
	if ts.Notifier == nil {
		ts.Notifier = notify.New(nil)
	}
	return &ts
}

// Register adds the full catalog to a registry.
func (ts *Toolset) Register(reg *toolserver.Registry) {
	ts.registerAccount(reg)
	ts.registerRequests(reg)
	ts.registerOffers(reg)
	ts.registerEngagements(reg)
	ts.registerContributions(reg)
}

// stringArg returns a string argument, empty when absent or mistyped.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// int64Arg tolerates the float64 that JSON decoding produces.
func int64Arg(args map[string]any, key string) int64 {
	switch v := args[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func stringsArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// authResult is the payload of authenticate and register. It carries
// the identity so a stdio connection can adopt it for the session.
type authResult struct {
	Token string     `json:"token"`
	User  *hive.User `json:"user"`
}

func (r *authResult) SessionIdentity() *auth.Identity {
	return r.User.Identity()
}

func (ts *Toolset) registerAccount(reg *toolserver.Registry) {
	reg.Register(toolserver.Tool{
		Name:        "authenticate",
		Description: "Sign in with email and password, returns a bearer token",
		Category:    "account",
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"email":    toolserver.Prop("string", "Account email"),
			"password": toolserver.Prop("string", "Account password"),
		}, "email", "password"),
		Handler: ts.handleAuthenticate,
	})

	reg.Register(toolserver.Tool{
		Name:        "register",
		Description: "Create an account and sign in",
		Category:    "account",
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"email":    toolserver.Prop("string", "Account email"),
			"password": toolserver.Prop("string", "Account password"),
			"name":     toolserver.Prop("string", "Display name"),
		}, "email", "password"),
		Handler: ts.handleRegister,
	})

	reg.Register(toolserver.Tool{
		Name:        "health",
		Description: "Server liveness probe",
		Category:    "account",
		InputSchema: toolserver.ObjectSchema(map[string]any{}),
		Handler: func(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
			return map[string]any{
				"status":    "ok",
				"server":    ts.Name,
				"version":   ts.Version,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:         "get_profile",
		Description:  "Fetch the caller's account and consultant profile",
		Category:     "account",
		RequiresAuth: true,
		InputSchema:  toolserver.ObjectSchema(map[string]any{}),
		Handler:      ts.handleGetProfile,
	})

	reg.Register(toolserver.Tool{
		Name:         "update_consultant_profile",
		Description:  "Publish or update the caller's consultant profile",
		Category:     "account",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"headline":          toolserver.Prop("string", "One-line pitch"),
			"bio":               toolserver.Prop("string", "Longer background"),
			"skills":            map[string]any{"type": "array", "items": toolserver.Prop("string", "Skill tag")},
			"hourly_rate_cents": toolserver.Prop("integer", "Hourly rate in cents"),
			"available":         toolserver.Prop("boolean", "Accepting new work"),
		}, "headline"),
		Handler: ts.handleUpdateConsultantProfile,
	})
}

func (ts *Toolset) handleAuthenticate(ctx context.Context, args map[string]any, _ *auth.Identity) (any, error) {
	email := strings.ToLower(strings.TrimSpace(stringArg(args, "email")))
	password := stringArg(args, "password")

	user, err := ts.Store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, toolserver.Errf(toolserver.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, toolserver.Errf(toolserver.CodeUnauthorized, "invalid credentials")
	}

	token, err := ts.Codec.Issue(user.Identity())
	if err != nil {
		return nil, err
	}
	return &authResult{Token: token, User: user}, nil
}

func (ts *Toolset) handleRegister(ctx context.Context, args map[string]any, _ *auth.Identity) (any, error) {
	email := strings.ToLower(strings.TrimSpace(stringArg(args, "email")))
	password := stringArg(args, "password")
	name := stringArg(args, "name")

	if !strings.Contains(email, "@") {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "invalid email address")
	}
	if len(password) < 8 {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "password must be at least 8 characters")
	}

	if existing, err := ts.Store.GetUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, toolserver.Errf(toolserver.CodeAlreadyExists, "account already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	userID, err := ts.Store.CreateUser(ctx, email, name, string(hash), auth.RoleClient)
	if err != nil {
		return nil, err
	}
	user, err := ts.Store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := ts.Codec.Issue(user.Identity())
	if err != nil {
		return nil, err
	}
	ts.Logger.Info("account registered", "user", user.ID, "email", user.Email)
	return &authResult{Token: token, User: user}, nil
}

func (ts *Toolset) handleGetProfile(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	user, err := ts.Store.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "account no longer exists")
	}
	profile, err := ts.Store.GetConsultantProfile(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": user, "consultant_profile": profile}, nil
}

func (ts *Toolset) handleUpdateConsultantProfile(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	p := &hive.ConsultantProfile{
		UserID:          id.UserID,
		Headline:        stringArg(args, "headline"),
		Bio:             stringArg(args, "bio"),
		Skills:          stringsArg(args, "skills"),
		HourlyRateCents: int64Arg(args, "hourly_rate_cents"),
		Available:       true,
	}
	if _, ok := args["available"]; ok {
		p.Available = boolArg(args, "available")
	}
	if err := ts.Store.UpsertConsultantProfile(ctx, p); err != nil {
		return nil, err
	}
	profile, err := ts.Store.GetConsultantProfile(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return profile, nil
}
