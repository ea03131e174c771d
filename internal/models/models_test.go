package models

import "testing"

func TestNewLikeTarget(t *testing.T) {
	target, err := NewLikeTarget(TargetComment, " c-1 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Kind() != TargetComment || target.ID() != "c-1" {
		t.Fatalf("unexpected target %v", target)
	}
	if target != CommentTarget("c-1") {
		t.Fatalf("expected constructed targets to compare equal")
	}

	if _, err := NewLikeTarget("playlist", "p-1"); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
	if _, err := NewLikeTarget(TargetVideo, "  "); err == nil {
		t.Fatalf("expected empty id to be rejected")
	}
	if !(LikeTarget{}).IsZero() {
		t.Fatalf("expected zero target to report IsZero")
	}
}

func TestUserRedacted(t *testing.T) {
	user := User{
		ID:                "u-1",
		PasswordHash:      "hash",
		VerificationToken: "verify",
		RefreshToken:      "refresh",
		WatchHistory:      []string{"v-1"},
	}

	redacted := user.Redacted()
	if redacted.PasswordHash != "" || redacted.VerificationToken != "" || redacted.RefreshToken != "" {
		t.Fatalf("expected credentials to be cleared, got %+v", redacted)
	}

	redacted.WatchHistory[0] = "changed"
	if user.WatchHistory[0] != "v-1" {
		t.Fatalf("expected redacted copy not to alias watch history")
	}
}
