package auth

import (
	"strings"
	"testing"
	"time"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", "1h")
	id := &Identity{
		UserID:     42,
		Email:      "alice@example.com",
		Role:       RoleConsultant,
		ExternalID: "google-123",
	}

	token, err := codec.Issue(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, ok := codec.Verify(token)
	if !ok {
		t.Fatal("expected valid token")
	}
	if *got != *id {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, id)
	}
}

func TestCodec_Expired(t *testing.T) {
	// A one-second lifetime with an issued-at in the past: simulate by
	// issuing with a codec whose lifetime already elapsed.
	codec := NewCodec("test-secret", "1s")
	codec.lifetime = -time.Minute

	token, err := codec.Issue(&Identity{UserID: 1, Email: "a@b.com", Role: RoleClient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, ok := codec.Verify(token); ok {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestCodec_TamperedSignature(t *testing.T) {
	codec := NewCodec("test-secret", "1h")
	token, err := codec.Issue(&Identity{UserID: 7, Email: "a@b.com", Role: RoleClient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, ok := codec.Verify(tampered); ok {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestCodec_WrongSecret(t *testing.T) {
	token, err := NewCodec("secret-a", "1h").Issue(&Identity{UserID: 1, Email: "a@b.com", Role: RoleClient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, ok := NewCodec("secret-b", "1h").Verify(token); ok {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestCodec_Garbage(t *testing.T) {
	codec := NewCodec("test-secret", "1h")
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, ok := codec.Verify(tok); ok {
			t.Fatalf("expected %q to be rejected", tok)
		}
	}
}

func TestParseLifetime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"12h", 12 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{"", DefaultLifetime},
		{"d", DefaultLifetime},
		{"7", DefaultLifetime},
		{"7w", DefaultLifetime},
		{"-3h", DefaultLifetime},
		{"abc", DefaultLifetime},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLifetime(tt.in); got != tt.want {
				t.Errorf("ParseLifetime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
