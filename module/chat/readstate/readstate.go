// Package readstate transitions peer messages to read when a conversation
// is opened and computes unread counts. The bulk mark-read predicate treats
// a missing read field as unread: the field was added to the schema after
// the first rows existed.
package readstate

import (
	"context"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

type Reconciler struct {
	gw store.Gateway
}

func New(gw store.Gateway) *Reconciler {
	return &Reconciler{gw: gw}
}

// unreadFilter matches messages from peer to self whose read flag is false
// or unset.
func unreadFilter(self, peer string) store.Filter {
	return store.Or(
		store.And(store.Eq("sender_id", peer), store.Eq("receiver_id", self), store.Eq("read", false)),
		store.And(store.Eq("sender_id", peer), store.Eq("receiver_id", self), store.Missing("read")),
	)
}

// MarkConversationRead bulk-marks every unread peer message as read and
// reports how many rows changed. Idempotent: a second call right after the
// first updates zero rows.
func (r *Reconciler) MarkConversationRead(ctx context.Context, self, peer string) (int64, error) {
	n, err := r.gw.Update(ctx, store.CollMessages, unreadFilter(self, peer), store.Row{"read": true})
	if err != nil {
		return 0, errs.ErrStoreUnavailable.WrapMsg("mark read", "peer", peer)
	}
	return n, nil
}

// UnreadCount counts peer-sent messages not yet read by self.
func (r *Reconciler) UnreadCount(ctx context.Context, self, peer string) (int, error) {
	rows, err := r.gw.Find(ctx, store.CollMessages, unreadFilter(self, peer))
	if err != nil {
		return 0, errs.ErrStoreUnavailable.WrapMsg("unread count", "peer", peer)
	}
	return len(rows), nil
}

// UnreadTotals returns the unread count per peer across all conversations
// of self, from a single received-messages query.
func (r *Reconciler) UnreadTotals(ctx context.Context, self string) (map[string]int, error) {
	rows, err := r.gw.Find(ctx, store.CollMessages, store.Where(store.Eq("receiver_id", self)))
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("unread totals", "self", self)
	}
	msgs, err := chatmodel.MessagesFromRows(rows)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int)
	for _, m := range msgs {
		if !m.Read {
			totals[m.SenderID]++
		}
	}
	return totals, nil
}
