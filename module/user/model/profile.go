package model

import "github.com/RWACH777/yasa-tasker-sub000/data/store"

// Profile is the display snapshot other users see: username and avatar.
type Profile struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

func (p Profile) Row() store.Row {
	row := store.Row{
		"user_id":  p.UserID,
		"username": p.Username,
	}
	if p.AvatarURL != "" {
		row["avatar_url"] = p.AvatarURL
	}
	if p.Bio != "" {
		row["bio"] = p.Bio
	}
	return row
}

func ProfileFromRow(row store.Row) (Profile, error) {
	var p Profile
	err := store.DecodeRow(row, &p)
	return p, err
}
