package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func sampleSession() domain.CheckoutSession {
	now := time.Now().UTC()
	return domain.CheckoutSession{
		MerchantUID: "mid_1700000000000_abc",
		OrderID:     "order-1",
		Draft: domain.OrderDraft{
			Items:      []domain.CartItem{{ProductID: "1", Qty: 2, PriceMinor: 1000}},
			TotalMinor: 2000,
			Shipping: domain.ShippingInfo{
				BuyerName: "Ivan", Email: "i@example.com", Phone: "+7",
				Street: "Lenina 1", Apartment: "2", PostCode: "101000",
				City: "Moscow", Country: "RU",
			},
		},
		Status:    domain.CheckoutStatusAwaitingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	repo := NewSessionRepository()
	session := sampleSession()

	if err := repo.Create(session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := repo.Get(session.MerchantUID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.OrderID != "order-1" || got.Status != domain.CheckoutStatusAwaitingPayment {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestSessionRepository_CreateDuplicateUID(t *testing.T) {
	repo := NewSessionRepository()
	session := sampleSession()

	if err := repo.Create(session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := repo.Create(session); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestSessionRepository_GetMissing(t *testing.T) {
	repo := NewSessionRepository()
	if _, err := repo.Get("mid_missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepository_SaveIncrementsVersion(t *testing.T) {
	repo := NewSessionRepository()
	session := sampleSession()
	if err := repo.Create(session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	session.Status = domain.CheckoutStatusReconciling
	if err := repo.Save(session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := repo.Get(session.MerchantUID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
	if got.Status != domain.CheckoutStatusReconciling {
		t.Fatalf("unexpected status: %s", got.Status)
	}
}

func TestSessionRepository_SaveStaleVersionConflicts(t *testing.T) {
	repo := NewSessionRepository()
	session := sampleSession()
	if err := repo.Create(session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	first := session
	first.Status = domain.CheckoutStatusReconciling
	if err := repo.Save(first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Вторая запись с устаревшей версией имитирует повторный callback.
	stale := session
	stale.Status = domain.CheckoutStatusReconciling
	if err := repo.Save(stale); !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestSessionRepository_CloneProtectsItems(t *testing.T) {
	repo := NewSessionRepository()
	session := sampleSession()
	if err := repo.Create(session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	session.Draft.Items[0].Qty = 99

	got, err := repo.Get(session.MerchantUID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Draft.Items[0].Qty != 2 {
		t.Fatalf("stored session mutated from outside: %+v", got.Draft.Items)
	}
}
