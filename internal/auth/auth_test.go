package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"cantina/internal/storage/memory"
)

func TestPasswordAuthenticator(t *testing.T) {
	a := NewPasswordAuthenticator(memory.New())
	ctx := context.Background()

	if _, err := a.Register(ctx, "operator", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	user, err := a.Register(ctx, "operator", "correct horse battery")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Username != "operator" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "correct horse battery" {
		t.Fatal("password stored in plain text")
	}

	got, err := a.Authenticate(ctx, "operator", "correct horse battery")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}

	if _, err := a.Authenticate(ctx, "operator", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody", "correct horse battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestJWTManager(t *testing.T) {
	a := NewPasswordAuthenticator(memory.New())
	user, err := a.Register(context.Background(), "operator", "correct horse battery")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	m := NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "operator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := m.Validate(token + "tampered"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	other := NewJWTManager("another-secret-key-of-32-bytes!!", time.Hour)
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across keys, got %v", err)
	}
}

func TestJWTManagerExpiry(t *testing.T) {
	a := NewPasswordAuthenticator(memory.New())
	user, err := a.Register(context.Background(), "operator", "correct horse battery")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	m := NewJWTManager("0123456789abcdef0123456789abcdef", -time.Minute)
	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
