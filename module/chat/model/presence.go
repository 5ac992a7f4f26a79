package model

import (
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
)

// PresenceRecord is the durable per-user presence row, one per user,
// upserted on every change. The acting user owns its own row; viewers only
// read it.
type PresenceRecord struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
	LastSeen string `json:"last_seen,omitempty"`
}

func (p PresenceRecord) Row() store.Row {
	return store.Row{
		"user_id":   p.UserID,
		"is_online": p.IsOnline,
		"last_seen": p.LastSeen,
	}
}

func (p PresenceRecord) LastSeenTime() *time.Time {
	if p.LastSeen == "" {
		return nil
	}
	t, err := time.Parse(TimeLayout, p.LastSeen)
	if err != nil {
		return nil
	}
	return &t
}

func PresenceFromRow(row store.Row) (PresenceRecord, error) {
	var p PresenceRecord
	err := store.DecodeRow(row, &p)
	return p, err
}
