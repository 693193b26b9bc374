package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ledgerbook/internal/ledger"
)

// LedgerChangedMessage announces that an account's ledger was rewritten.
// It carries no rows: consumers reload the ledger from storage.
type LedgerChangedMessage struct {
	Account   string    `json:"account"`
	Op        string    `json:"op"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(c ledger.Change) *LedgerChangedMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerChangedMessage{
		Account:   c.Account,
		Op:        string(c.Op),
		Rows:      c.Rows,
		Timestamp: ts.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message; one without an account is rejected.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Account) == "" {
		return nil, errors.New("message has no account")
	}
	return &msg, nil
}
