package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// LedgerChangedMessage announces that one record of a ledger collection was
// created, updated or deleted. Months lists the calendar months whose
// combined view may have changed ("YYYY-MM"); an empty list means the change
// can affect any month.
type LedgerChangedMessage struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	ID         string    `json:"id"`
	Months     []string  `json:"months,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message stamped with the current time.
func NewLedgerChangedMessage(collection, op, id string, months ...core.YearMonth) *LedgerChangedMessage {
	msg := &LedgerChangedMessage{
		Collection: collection,
		Op:         op,
		ID:         id,
		Timestamp:  time.Now().UTC(),
	}
	for _, m := range core.UniqueMonths(months) {
		msg.Months = append(msg.Months, m.String())
	}
	return msg
}

// AffectedMonths parses Months.
func (m *LedgerChangedMessage) AffectedMonths() ([]core.YearMonth, error) {
	out := make([]core.YearMonth, 0, len(m.Months))
	for _, s := range m.Months {
		ym, err := core.ParseYearMonth(s)
		if err != nil {
			return nil, fmt.Errorf("message %s/%s: %w", m.Collection, m.ID, err)
		}
		out = append(out, ym)
	}
	return out, nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Collection == "" {
		return nil, fmt.Errorf("missing collection")
	}
	return &msg, nil
}
