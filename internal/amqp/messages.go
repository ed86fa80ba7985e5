package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExportNoticeMessage asks the notify worker to mail a schedule export.
// It carries only the recipient and filename; the worker recomputes the
// schedule from the store, so the workbook is always fresh at send time.
type ExportNoticeMessage struct {
	ID         uuid.UUID `json:"id"`
	Recipient  string    `json:"recipient"`
	Filename   string    `json:"filename"`
	EntryCount int       `json:"entryCount"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewExportNoticeMessage creates a new export notice
func NewExportNoticeMessage(recipient, filename string, entryCount int) *ExportNoticeMessage {
	return &ExportNoticeMessage{
		ID:         uuid.New(),
		Recipient:  recipient,
		Filename:   filename,
		EntryCount: entryCount,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportNoticeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportNoticeMessageFromJSON creates a message from JSON bytes
func ExportNoticeMessageFromJSON(data []byte) (*ExportNoticeMessage, error) {
	var msg ExportNoticeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
