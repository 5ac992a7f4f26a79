// Package presence tracks online/offline state. The tracker follows one
// peer through push plus a reconciling poll; the announcer asserts the
// acting user's own record on conversation enter/leave. Presence is an
// enhancement, not a correctness path: every failure here degrades to
// Offline and logs instead of erroring.
package presence

import (
	"context"
	"errors"
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

// Status is the viewer-facing answer. LastSeen is nil when the user has
// never announced presence.
type Status struct {
	Online   bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

// Lookup reads a user's current presence. A missing record is an expected
// condition, not a fault: it means the user never announced presence, and
// resolves to offline with no last-seen.
func Lookup(ctx context.Context, gw store.Gateway, userID string) (Status, error) {
	row, err := gw.FindOne(ctx, store.CollPresence, store.Where(store.Eq("user_id", userID)))
	if errors.Is(err, errs.ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, errs.ErrStoreUnavailable.WrapMsg("presence lookup", "user", userID)
	}
	rec, err := chatmodel.PresenceFromRow(row)
	if err != nil {
		return Status{}, err
	}
	return Status{Online: rec.IsOnline, LastSeen: rec.LastSeenTime()}, nil
}

// Upsert writes the one-row-per-user presence record, insert-or-update.
func Upsert(ctx context.Context, gw store.Gateway, rec chatmodel.PresenceRecord) error {
	n, err := gw.Update(ctx, store.CollPresence,
		store.Where(store.Eq("user_id", rec.UserID)),
		store.Row{"is_online": rec.IsOnline, "last_seen": rec.LastSeen})
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = gw.Insert(ctx, store.CollPresence, rec.Row())
	}
	return err
}
