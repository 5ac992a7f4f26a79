// Package directory materializes the conversation list for one user: every
// peer a message has been exchanged with, annotated with last-message
// preview, unread count, profile snapshot and online flag. The view is
// derived, never stored; each List recomputes it from the message set.
package directory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/msglog"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/presence"
	"github.com/RWACH777/yasa-tasker-sub000/module/user"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

// OnlineFunc answers whether a user is currently online. The default reads
// the durable presence record; main wires the redis fast path in front.
type OnlineFunc func(ctx context.Context, userID string) bool

type Directory struct {
	gw     store.Gateway
	users  *user.Service
	online OnlineFunc
	self   string

	mu    sync.Mutex
	items []chatmodel.Conversation
}

type Option func(*Directory)

func WithOnlineFunc(fn OnlineFunc) Option {
	return func(d *Directory) { d.online = fn }
}

func New(gw store.Gateway, users *user.Service, self string, opts ...Option) *Directory {
	d := &Directory{gw: gw, users: users, self: self}
	d.online = func(ctx context.Context, userID string) bool {
		st, err := presence.Lookup(ctx, gw, userID)
		if err != nil {
			return false
		}
		return st.Online
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// List rebuilds the conversation list, ordered by last-message time
// descending. Sent and received messages are fetched with two separate
// queries on purpose: the gateway filter cannot OR across sender and
// receiver with usable index selectivity, so each side gets its own
// single-column equality.
func (d *Directory) List(ctx context.Context) ([]chatmodel.Conversation, error) {
	sent, err := d.gw.Find(ctx, store.CollMessages,
		store.Where(store.Eq("sender_id", d.self)), store.Desc("created_at"))
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("list sent", "self", d.self)
	}
	received, err := d.gw.Find(ctx, store.CollMessages,
		store.Where(store.Eq("receiver_id", d.self)), store.Desc("created_at"))
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("list received", "self", d.self)
	}

	msgs, err := chatmodel.MessagesFromRows(append(sent, received...))
	if err != nil {
		return nil, err
	}

	latest := make(map[string]chatmodel.Message)
	unread := make(map[string]int)
	for _, m := range msgs {
		peer := m.SenderID
		if peer == d.self {
			peer = m.ReceiverID
		}
		if peer == d.self {
			continue
		}
		if cur, ok := latest[peer]; !ok || m.CreatedTime().After(cur.CreatedTime()) {
			latest[peer] = m
		}
		if m.SenderID == peer && !m.Read {
			unread[peer]++
		}
	}

	items := make([]chatmodel.Conversation, 0, len(latest))
	for peer, last := range latest {
		conv := chatmodel.Conversation{
			PeerID:   peer,
			LastText: last.Text,
			LastAt:   last.CreatedTime(),
			Unread:   unread[peer],
			Online:   d.online(ctx, peer),
		}
		prof, err := d.users.Get(ctx, peer)
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			logger.Warnf("directory: profile fetch for %s failed: %v", peer, err)
		}
		conv.Username = prof.Username
		conv.AvatarURL = prof.AvatarURL
		items = append(items, conv)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LastAt.After(items[j].LastAt) })

	d.mu.Lock()
	d.items = items
	d.mu.Unlock()
	return d.Items(), nil
}

// Items returns the last computed list without hitting the store.
func (d *Directory) Items() []chatmodel.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]chatmodel.Conversation, len(d.items))
	copy(out, d.items)
	return out
}

// Delete durably removes every message of the (self, peer) pair and drops
// the conversation entry from the in-memory list on success.
func (d *Directory) Delete(ctx context.Context, peer string) error {
	if _, err := d.gw.Delete(ctx, store.CollMessages, msglog.PairFilter(d.self, peer)); err != nil {
		return errs.ErrStoreUnavailable.WrapMsg("delete conversation", "peer", peer)
	}
	d.mu.Lock()
	for i := range d.items {
		if d.items[i].PeerID == peer {
			d.items = append(d.items[:i], d.items[i+1:]...)
			break
		}
	}
	d.mu.Unlock()
	return nil
}

// BumpUnread increments a peer's unread counter in the in-memory view, for
// when a message arrives while the directory is visible but that
// conversation is not open. No store round trip.
func (d *Directory) BumpUnread(peer string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.items {
		if d.items[i].PeerID == peer {
			d.items[i].Unread++
			return
		}
	}
}
