package amqp

import (
	"encoding/json"
	"time"
)

// RefreshMessage asks the worker to rebuild the cached summaries of one
// route-year. It carries only the addressing key; the worker recomputes from
// the ledger.
type RefreshMessage struct {
	RouteID   string    `json:"routeId"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRefreshMessage(routeID string, year int) *RefreshMessage {
	return &RefreshMessage{
		RouteID:   routeID,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
