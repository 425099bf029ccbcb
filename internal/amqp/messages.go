package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event actions carried on the queue.
const (
	ActionCreated = "created"
	ActionVoided  = "voided"
)

// LedgerEventMessage is a lightweight pointer to a transaction row. The export
// worker fetches the full transaction from the database, so a stale message
// never overwrites newer state.
type LedgerEventMessage struct {
	TransactionID int64     `json:"transaction_id"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(transactionID int64, action string) *LedgerEventMessage {
	return &LedgerEventMessage{
		TransactionID: transactionID,
		Action:        action,
		Timestamp:     time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AlertDigestMessage summarizes one alert sweep for downstream notifiers.
type AlertDigestMessage struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Total       int               `json:"total"`
	Urgent      int               `json:"urgent"`
	High        int               `json:"high"`
	Normal      int               `json:"normal"`
	Alerts      []AlertDigestItem `json:"alerts"`
}

type AlertDigestItem struct {
	Kind       string `json:"kind"`
	Priority   string `json:"priority"`
	BookingRef string `json:"booking_ref"`
	Message    string `json:"message"`
	DaysLeft   int    `json:"days_left"`
}

func (m *AlertDigestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
