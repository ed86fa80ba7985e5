package amqp

import (
	"testing"
)

func TestExportNoticeMessageRoundTrip(t *testing.T) {
	msg := NewExportNoticeMessage("reports@example.com", "Amortization_Schedule_2025-06-03.xlsx", 42)
	if msg.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("expected a generated message id")
	}
	if msg.Timestamp.IsZero() {
		t.Fatal("expected a timestamp")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := ExportNoticeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.ID != msg.ID {
		t.Errorf("expected id %s, got %s", msg.ID, decoded.ID)
	}
	if decoded.Recipient != msg.Recipient || decoded.Filename != msg.Filename {
		t.Errorf("unexpected decoded message %+v", decoded)
	}
	if decoded.EntryCount != 42 {
		t.Errorf("expected entry count 42, got %d", decoded.EntryCount)
	}
}

func TestExportNoticeMessageFromJSONInvalid(t *testing.T) {
	if _, err := ExportNoticeMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
