package password

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	hasher := NewBcrypt(bcrypt.MinCost)

	digest, err := hasher.Hash("Str0ng!pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "Str0ng!pass" {
		t.Fatalf("expected digest to differ from plaintext")
	}

	ok, err := hasher.Verify("Str0ng!pass", digest)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("wrong", digest)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}

	if _, err := hasher.Verify("anything", "not-a-bcrypt-digest"); err == nil {
		t.Fatalf("expected malformed digest to error")
	}
}

func TestNewBcryptClampsCost(t *testing.T) {
	if got := NewBcrypt(99).Cost; got != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
	if got := NewBcrypt(bcrypt.MinCost).Cost; got != bcrypt.MinCost {
		t.Fatalf("expected min cost to be kept, got %d", got)
	}
}

func TestCheckStrength(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Str0ng!pass", true},
		{"S0!a", false},
		{"alllowercase1!", false},
		{"ALLUPPERCASE1!", false},
		{"NoDigits!!", false},
		{"NoSymbols123", false},
	}

	for _, tt := range tests {
		err := CheckStrength(tt.password)
		if tt.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", tt.password, err)
		}
		if !tt.ok && !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("%q: expected ErrWeakPassword, got %v", tt.password, err)
		}
	}
}
