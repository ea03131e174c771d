package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VIDEOCAVE_PORT", "")
	t.Setenv("VIDEOCAVE_ACCESS_TOKEN_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080 got %d", cfg.AppPort)
	}
	if cfg.Tokens.AccessTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %v", cfg.Tokens.AccessTTL)
	}
	if cfg.Tokens.VerificationTTL != time.Hour || cfg.Tokens.ResetTTL != 10*time.Minute {
		t.Fatalf("unexpected verification/reset ttl %v/%v", cfg.Tokens.VerificationTTL, cfg.Tokens.ResetTTL)
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected secure cookies by default")
	}
}

func TestLoadOverridesAndBadValues(t *testing.T) {
	t.Setenv("VIDEOCAVE_PORT", "9090")
	t.Setenv("VIDEOCAVE_REFRESH_TOKEN_TTL", "48h")
	t.Setenv("VIDEOCAVE_MAIL_THROTTLE_MAX", "not-a-number")
	t.Setenv("VIDEOCAVE_COOKIE_SECURE", "false")
	t.Setenv("VIDEOCAVE_DB_MAX_CONNS", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 9090 {
		t.Fatalf("expected overridden port got %d", cfg.AppPort)
	}
	if cfg.Tokens.RefreshTTL != 48*time.Hour {
		t.Fatalf("expected overridden refresh ttl got %v", cfg.Tokens.RefreshTTL)
	}
	if cfg.MailThrottle.Max != 5 {
		t.Fatalf("expected invalid int to fall back to default, got %d", cfg.MailThrottle.Max)
	}
	if cfg.CookieSecure {
		t.Fatalf("expected cookie secure override")
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("expected overridden pool size got %d", cfg.DBMaxConns)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{AppPort: 8080}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected missing secrets to fail validation")
	}
	for _, want := range []string{"VIDEOCAVE_ACCESS_TOKEN_SECRET", "VIDEOCAVE_REFRESH_TOKEN_SECRET", "VIDEOCAVE_S3_BUCKET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}

	cfg.Tokens.AccessSecret = "same"
	cfg.Tokens.RefreshSecret = "same"
	cfg.ObjectStore.Bucket = "assets"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected identical secrets to be rejected, got %v", err)
	}

	cfg.Tokens.RefreshSecret = "different"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
