package model

import "time"

// Conversation is a derived view, never stored: the pair (self, peer)
// annotated with preview, unread and presence info. Recomputed from the
// message set on each directory load.
type Conversation struct {
	PeerID    string    `json:"peer_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	LastText  string    `json:"last_text"`
	LastAt    time.Time `json:"last_at"`
	Unread    int       `json:"unread"`
	Online    bool      `json:"online"`
}
