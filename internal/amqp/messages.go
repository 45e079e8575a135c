package amqp

import (
	"encoding/json"
	"time"

	"mealtrack/internal/core"
)

// RecordCreatedMessage announces a stored record. It carries the summary
// fields only; consumers never write records back.
type RecordCreatedMessage struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Meal      string    `json:"meal"`
	Calories  int       `json:"calories"`
	Invalid   bool      `json:"invalid"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordCreatedMessage builds the message for rec.
func NewRecordCreatedMessage(rec core.Record) *RecordCreatedMessage {
	return &RecordCreatedMessage{
		ID:        rec.ID,
		Date:      core.Encode(rec.Date),
		Meal:      rec.Meal.String(),
		Calories:  rec.Calories,
		Invalid:   rec.IsInvalid(),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordCreatedMessageFromJSON creates a message from JSON bytes
func RecordCreatedMessageFromJSON(data []byte) (*RecordCreatedMessage, error) {
	var msg RecordCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
