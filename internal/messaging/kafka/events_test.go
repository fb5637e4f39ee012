package kafka

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewCheckoutEvent(t *testing.T) {
	before := time.Now()
	event := NewCheckoutEvent(EventTypeCheckoutPaid, "mid_1", "order-1", map[string]interface{}{
		"amount": int64(2000),
	})

	if event.EventType != EventTypeCheckoutPaid {
		t.Fatalf("unexpected event type: %s", event.EventType)
	}
	if event.MerchantUID != "mid_1" {
		t.Fatalf("unexpected merchant uid: %s", event.MerchantUID)
	}
	if event.OrderID != "order-1" {
		t.Fatalf("unexpected order id: %s", event.OrderID)
	}
	if event.Timestamp.Before(before) {
		t.Fatal("timestamp must be set at construction")
	}
}

func TestCheckoutEvent_OmitsEmptyOrderID(t *testing.T) {
	event := NewCheckoutEvent(EventTypeCheckoutFailed, "mid_2", "", nil)

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if _, ok := decoded["order_id"]; ok {
		t.Fatal("empty order_id must be omitted")
	}
	if decoded["event_type"] != string(EventTypeCheckoutFailed) {
		t.Fatalf("unexpected event_type: %v", decoded["event_type"])
	}
}
