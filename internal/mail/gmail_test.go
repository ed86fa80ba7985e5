package mail

import (
	"strings"
	"testing"
)

func TestBuildMIMEPlain(t *testing.T) {
	raw, err := buildMIME("reports@example.com", Message{
		To:      "payee@example.com",
		Subject: "Schedule exported",
		Body:    "Your schedule export is ready.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := string(raw)
	for _, want := range []string{
		"From: reports@example.com",
		"To: payee@example.com",
		"Subject: Schedule exported",
		"Content-Type: text/plain",
		"Your schedule export is ready.",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q", want)
		}
	}
}

func TestBuildMIMEWithAttachment(t *testing.T) {
	raw, err := buildMIME("reports@example.com", Message{
		To:             "payee@example.com",
		Subject:        "Schedule exported",
		Body:           "Attached.",
		AttachmentName: "Amortization_Schedule_2025-06-03.xlsx",
		Attachment:     []byte{0x50, 0x4b, 0x03, 0x04},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := string(raw)
	if !strings.Contains(msg, "multipart/mixed") {
		t.Error("expected multipart message")
	}
	if !strings.Contains(msg, `filename="Amortization_Schedule_2025-06-03.xlsx"`) {
		t.Error("expected attachment filename header")
	}
	if !strings.Contains(msg, "Content-Transfer-Encoding: base64") {
		t.Error("expected base64 encoded attachment")
	}
}
