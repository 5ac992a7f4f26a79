package model

import (
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
)

// TimeLayout is the wire format for timestamps (ISO-8601 / RFC3339).
const TimeLayout = time.RFC3339Nano

// Message is one chat message between two users. A message whose id carries
// the temporary prefix is provisional: it lives only in the in-memory log
// until its durable counterpart arrives or the send fails.
type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
	FileURL    string `json:"file_url,omitempty"`
	VoiceURL   string `json:"voice_url,omitempty"`
	ReplyToID  string `json:"reply_to_id,omitempty"`
	Read       bool   `json:"read,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func (m Message) CreatedTime() time.Time {
	t, err := time.Parse(TimeLayout, m.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Row converts to the storage shape. The read flag is written only when
// true: a fresh message has the field unset, and the read-state reconciler
// treats unset as unread (the field was added after the first rows existed).
func (m Message) Row() store.Row {
	row := store.Row{
		"id":          m.ID,
		"sender_id":   m.SenderID,
		"receiver_id": m.ReceiverID,
		"text":        m.Text,
		"created_at":  m.CreatedAt,
	}
	if m.FileURL != "" {
		row["file_url"] = m.FileURL
	}
	if m.VoiceURL != "" {
		row["voice_url"] = m.VoiceURL
	}
	if m.ReplyToID != "" {
		row["reply_to_id"] = m.ReplyToID
	}
	if m.Read {
		row["read"] = true
	}
	return row
}

func MessageFromRow(row store.Row) (Message, error) {
	var m Message
	err := store.DecodeRow(row, &m)
	return m, err
}

func MessagesFromRows(rows []store.Row) ([]Message, error) {
	out := make([]Message, 0, len(rows))
	for _, row := range rows {
		m, err := MessageFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
