package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/videocave/backend/internal/apperr"
)

func newTestCodec(t *testing.T, now time.Time) *Codec {
	t.Helper()
	codec, err := NewCodec(Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Issuer:        "videocave-test",
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec.WithNowFunc(func() time.Time { return now })
}

func TestCodecIssueAndVerify(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	for _, purpose := range []Purpose{PurposeAccess, PurposeRefresh, PurposeEmailVerify, PurposePasswordReset} {
		t.Run(string(purpose), func(t *testing.T) {
			raw, expiresAt, err := codec.Issue("user-1", purpose, time.Hour)
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			if !expiresAt.Equal(now.Add(time.Hour)) {
				t.Fatalf("unexpected expiry %v", expiresAt)
			}

			claims, err := codec.Verify(raw, purpose)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if claims.Subject != "user-1" || claims.Purpose != purpose {
				t.Fatalf("unexpected claims %+v", claims)
			}
			if !claims.ExpiresAt.Equal(expiresAt) {
				t.Fatalf("expected expiry %v got %v", expiresAt, claims.ExpiresAt)
			}
		})
	}
}

func TestCodecTokensAreUnique(t *testing.T) {
	codec := newTestCodec(t, time.Now())

	first, _, err := codec.Issue("user-1", PurposeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, _, err := codec.Issue("user-1", PurposeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if first == second {
		t.Fatalf("expected tokens issued in the same second to differ")
	}
}

func TestCodecVerifyExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	raw, _, err := codec.Issue("user-1", PurposePasswordReset, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	codec.WithNowFunc(func() time.Time { return now.Add(11 * time.Minute) })

	_, err = codec.Verify(raw, PurposePasswordReset)
	if !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("expired token must not be reported as invalid")
	}
}

func TestCodecVerifyRejectsPurposeMismatch(t *testing.T) {
	codec := newTestCodec(t, time.Now())

	raw, _, err := codec.Issue("user-1", PurposeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := codec.Verify(raw, PurposePasswordReset); !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("expected access token to be rejected for reset, got %v", err)
	}
	if _, err := codec.Verify(raw, PurposeRefresh); !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("expected access token to be rejected for refresh, got %v", err)
	}
}

func TestCodecVerifyRejectsTampering(t *testing.T) {
	codec := newTestCodec(t, time.Now())

	raw, _, err := codec.Issue("user-1", PurposeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	for _, input := range []string{tampered, "not-a-token", ""} {
		if _, err := codec.Verify(input, PurposeAccess); !errors.Is(err, apperr.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid for %q, got %v", input, err)
		}
	}

	other, err := NewCodec(Config{
		AccessSecret:  []byte("another-access"),
		RefreshSecret: []byte("another-refresh"),
		Issuer:        "videocave-test",
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if _, err := other.Verify(raw, PurposeAccess); !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("expected token signed with a different secret to be rejected, got %v", err)
	}
}

func TestNewCodecValidatesSecrets(t *testing.T) {
	tests := []Config{
		{RefreshSecret: []byte("r")},
		{AccessSecret: []byte("a")},
		{AccessSecret: []byte("same"), RefreshSecret: []byte("same")},
		{AccessSecret: []byte("a"), RefreshSecret: []byte("r"), Leeway: time.Hour},
	}
	for i, cfg := range tests {
		if _, err := NewCodec(cfg); err == nil {
			t.Fatalf("case %d: expected configuration error", i)
		}
	}
}
