package kafka

import (
	"testing"
	"time"
)

func TestTopic(t *testing.T) {
	got := Topic("listing", "created")
	want := "menontrucks.listing.created"
	if got != want {
		t.Errorf("Topic() = %q, want %q", got, want)
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]string{"id": "listing-1", "slug": "volvo-fh-500"}

	event, err := NewEvent("menontrucks.listing.created", "listing-1", "listing", "listing-service", payload)
	if err != nil {
		t.Fatalf("NewEvent() returned error: %v", err)
	}

	if event.EventID == "" {
		t.Error("EventID should be generated")
	}
	if event.EventType != "menontrucks.listing.created" {
		t.Errorf("EventType = %q", event.EventType)
	}
	if event.AggregateID != "listing-1" {
		t.Errorf("AggregateID = %q", event.AggregateID)
	}
	if event.Version != 1 {
		t.Errorf("Version = %d, want 1", event.Version)
	}
	if time.Since(event.Timestamp) > time.Minute {
		t.Errorf("Timestamp too old: %v", event.Timestamp)
	}
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("menontrucks.listing.created", "l1", "listing", "test", make(chan int))
	if err == nil {
		t.Fatal("expected error for unmarshalable data")
	}
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	original, err := NewEvent("menontrucks.listing.updated", "listing-2", "listing", "test", map[string]int{"views": 42})
	if err != nil {
		t.Fatalf("NewEvent() returned error: %v", err)
	}
	original.WithCorrelationID("corr-123")

	raw, err := original.Marshal()
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}

	decoded, err := UnmarshalEvent(raw)
	if err != nil {
		t.Fatalf("UnmarshalEvent() returned error: %v", err)
	}

	if decoded.EventID != original.EventID {
		t.Errorf("EventID = %q, want %q", decoded.EventID, original.EventID)
	}
	if decoded.CorrelationID != "corr-123" {
		t.Errorf("CorrelationID = %q", decoded.CorrelationID)
	}

	var data map[string]int
	if err := decoded.UnmarshalData(&data); err != nil {
		t.Fatalf("UnmarshalData() returned error: %v", err)
	}
	if data["views"] != 42 {
		t.Errorf("data[views] = %d, want 42", data["views"])
	}
}

func TestUnmarshalEvent_InvalidJSON(t *testing.T) {
	if _, err := UnmarshalEvent([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
