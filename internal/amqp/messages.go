package amqp

import (
	"encoding/json"
	"time"
)

// PurchaseSyncMessage asks the worker to export one bought item to the
// purchase ledger. It carries only the id and version; the worker fetches the
// current row from the database, so a stale message never exports stale data.
type PurchaseSyncMessage struct {
	ItemID    int64     `json:"item_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPurchaseSyncMessage(itemID, version int64) *PurchaseSyncMessage {
	return &PurchaseSyncMessage{
		ItemID:    itemID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *PurchaseSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PurchaseSyncMessageFromJSON(data []byte) (*PurchaseSyncMessage, error) {
	var msg PurchaseSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
