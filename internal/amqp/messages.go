package amqp

import (
	"encoding/json"
	"time"

	"bilancio/internal/core"
)

// OverrideChangedMessage announces that the override of one occurrence was
// set or removed. Consumers recompute from the store; the message carries
// no amounts.
type OverrideChangedMessage struct {
	TransactionID   string    `json:"transaction_id"`
	OccurrenceIndex int       `json:"occurrence_index"`
	Month           string    `json:"month,omitempty"` // MM/yyyy, empty when unknown
	Timestamp       time.Time `json:"timestamp"`
}

func NewOverrideChangedMessage(key core.OverrideKey, month core.MonthKey) *OverrideChangedMessage {
	msg := &OverrideChangedMessage{
		TransactionID:   key.TransactionID,
		OccurrenceIndex: key.OccurrenceIndex,
		Timestamp:       time.Now(),
	}
	if !month.IsZero() {
		msg.Month = month.String()
	}
	return msg
}

func (m *OverrideChangedMessage) Key() core.OverrideKey {
	return core.OverrideKey{TransactionID: m.TransactionID, OccurrenceIndex: m.OccurrenceIndex}
}

// ReferenceMonth parses Month. It reports false when the publisher did not
// know the month.
func (m *OverrideChangedMessage) ReferenceMonth() (core.MonthKey, bool, error) {
	if m.Month == "" {
		return core.MonthKey{}, false, nil
	}
	mk, err := core.ParseMonthKey(m.Month)
	if err != nil {
		return core.MonthKey{}, false, err
	}
	return mk, true, nil
}

func (m *OverrideChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OverrideChangedMessageFromJSON(data []byte) (*OverrideChangedMessage, error) {
	var msg OverrideChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Key().Validate(); err != nil {
		return nil, err
	}
	if _, _, err := msg.ReferenceMonth(); err != nil {
		return nil, err
	}
	return &msg, nil
}
