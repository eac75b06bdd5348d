package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"financehub/internal/core"
	"financehub/internal/ledger"
)

// WireChange is one committed write as carried on the change feed. Data
// holds the record's JSON row and is empty when the record was removed.
type WireChange struct {
	Kind   core.Kind        `json:"kind"`
	ID     string           `json:"id"`
	Action core.AuditAction `json:"action"`
	Data   json.RawMessage  `json:"data,omitempty"`
}

// ChangeMessage carries the ops of one committed mutation to the other
// devices of the same user.
type ChangeMessage struct {
	DeviceID  string       `json:"device_id"`
	UserID    string       `json:"user_id"`
	Changes   []WireChange `json:"changes"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewChangeMessage(deviceID, userID string, ops []ledger.Op) (*ChangeMessage, error) {
	msg := &ChangeMessage{
		DeviceID:  deviceID,
		UserID:    userID,
		Changes:   make([]WireChange, 0, len(ops)),
		Timestamp: time.Now(),
	}
	for _, op := range ops {
		wc := WireChange{Kind: op.Kind, ID: op.ID, Action: op.Action}
		if op.Record != nil {
			data, err := core.EncodeRecord(op.Record)
			if err != nil {
				return nil, fmt.Errorf("encode %s %s: %w", op.Kind, op.ID, err)
			}
			wc.Data = data
		}
		msg.Changes = append(msg.Changes, wc)
	}
	return msg, nil
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("change message without user id")
	}
	return &msg, nil
}

// LedgerChanges decodes the message into store changes.
func (m *ChangeMessage) LedgerChanges() ([]ledger.Change, error) {
	out := make([]ledger.Change, 0, len(m.Changes))
	for _, wc := range m.Changes {
		if len(wc.Data) == 0 {
			out = append(out, ledger.Remove(wc.Kind, wc.ID))
			continue
		}
		rec, err := core.DecodeRecord(wc.Kind, wc.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", wc.Kind, wc.ID, err)
		}
		if rec.RecordID() != wc.ID {
			return nil, fmt.Errorf("change %s %s carries record %s", wc.Kind, wc.ID, rec.RecordID())
		}
		out = append(out, ledger.Put(rec))
	}
	return out, nil
}
