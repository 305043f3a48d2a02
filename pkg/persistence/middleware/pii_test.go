package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/petri/pkg/adapters/memory"
	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/persistence/middleware"
)

func TestPIIMiddleware_MasksOnWrite(t *testing.T) {
	underlying := memory.New()
	mw := middleware.NewPIIMiddleware([]string{"(?i)email", "ssn"})
	store := mw(underlying)

	ctx := context.Background()
	subject := domain.NewSubject("p-1")
	subject.Attributes = map[string]any{
		"email": "ada@example.org",
		"age":   30,
		"profile": map[string]any{
			"ssn":  "078-05-1120",
			"city": "lisbon",
		},
	}

	if err := store.Write(ctx, []domain.Subject{*subject}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	stored, err := underlying.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Underlying get failed: %v", err)
	}
	if stored.Attributes["email"] != "***" {
		t.Errorf("Expected email to be masked, got %v", stored.Attributes["email"])
	}
	if stored.Attributes["age"] != 30 {
		t.Errorf("Expected age to survive, got %v", stored.Attributes["age"])
	}

	profile, ok := stored.Attributes["profile"].(map[string]any)
	if !ok {
		t.Fatalf("Expected nested profile map, got %T", stored.Attributes["profile"])
	}
	if profile["ssn"] != "***" {
		t.Errorf("Expected nested ssn to be masked, got %v", profile["ssn"])
	}
	if profile["city"] != "lisbon" {
		t.Errorf("Expected nested city to survive, got %v", profile["city"])
	}
}

func TestPIIMiddleware_DoesNotMutateBatch(t *testing.T) {
	store := middleware.NewPIIMiddleware([]string{"email"})(memory.New())

	subject := domain.NewSubject("p-1")
	subject.Attributes = map[string]any{"email": "ada@example.org"}

	if err := store.Write(context.Background(), []domain.Subject{*subject}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if subject.Attributes["email"] != "ada@example.org" {
		t.Errorf("Write must not mutate the caller's batch, got %v", subject.Attributes["email"])
	}
}

func TestChain_OrdersMiddleware(t *testing.T) {
	underlying := memory.New()
	key := generateKey(t)

	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"email"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	ctx := context.Background()
	subject := domain.NewSubject("p-1")
	subject.Attributes = map[string]any{"email": "ada@example.org"}

	if err := store.Write(ctx, []domain.Subject{*subject}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// At rest: masked first, then sealed.
	stored, err := underlying.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Underlying get failed: %v", err)
	}
	if _, ok := stored.Attributes["__encrypted__"]; !ok {
		t.Fatal("Expected __encrypted__ envelope at rest")
	}

	// Through the chain: decrypted, revealing the masked value.
	loaded, err := store.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Get via chain failed: %v", err)
	}
	if loaded.Attributes["email"] != "***" {
		t.Errorf("Expected masked email through the chain, got %v", loaded.Attributes["email"])
	}
}
