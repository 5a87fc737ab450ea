package account

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/luma-pay/luma_pay/internal/ledger"
)

func TestRegisterProvisionsWallet(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), led)
	ctx := context.Background()

	acc, err := svc.Register(ctx, RegisterInput{
		Kind:           KindUser,
		Name:           "Alice",
		Email:          "alice@example.com",
		Document:       "76401429038",
		Password:       "correct-horse",
		InitialBalance: 1_000,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if acc.Kind != KindUser {
		t.Fatalf("expected kind user, got %s", acc.Kind)
	}

	b, err := led.Balance(ctx, uuid.MustParse(acc.ID))
	if err != nil {
		t.Fatalf("wallet not provisioned: %v", err)
	}
	if b.Available != 1_000 || b.Blocked != 0 {
		t.Fatalf("unexpected seeded balance: %+v", b)
	}
}

func TestRegisterRejectsUnknownKind(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	if _, err := svc.Register(context.Background(), RegisterInput{
		Kind:     "bank",
		Name:     "X",
		Email:    "x@example.com",
		Document: "123",
		Password: "long-enough",
	}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	ctx := context.Background()

	acc, err := svc.Register(ctx, RegisterInput{
		Kind:     KindMerchant,
		Name:     "Store",
		Email:    "store@store.io",
		Document: "12914027000179",
		Password: "store-secret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.Authenticate(ctx, Credentials{Email: "store@store.io", Password: "store-secret"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != acc.ID {
		t.Fatalf("expected account %s, got %s", acc.ID, got.ID)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Email: "store@store.io", Password: "wrong"}); err == nil {
		t.Fatal("expected error for wrong password")
	}
}
