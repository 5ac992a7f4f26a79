package presence

import (
	"context"
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
)

// Cache is the optional fast path for presence writes. Implemented by the
// redis-backed cache in service/storage; nil disables it.
type Cache interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// CacheReader is the read side of the fast path. A cache hit answers
// "online" without touching the durable record.
type CacheReader interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// Announcer asserts the acting user's own presence record: online when a
// conversation view is entered, offline when it is left. Both writes are
// best effort; a failed write logs and degrades, it never blocks the caller.
type Announcer struct {
	gw    store.Gateway
	cache Cache
	self  string
}

func NewAnnouncer(gw store.Gateway, cache Cache, self string) *Announcer {
	return &Announcer{gw: gw, cache: cache, self: self}
}

func (a *Announcer) Online(ctx context.Context)  { a.announce(ctx, true) }
func (a *Announcer) Offline(ctx context.Context) { a.announce(ctx, false) }

func (a *Announcer) announce(ctx context.Context, online bool) {
	rec := chatmodel.PresenceRecord{
		UserID:   a.self,
		IsOnline: online,
		LastSeen: time.Now().UTC().Format(chatmodel.TimeLayout),
	}
	if err := Upsert(ctx, a.gw, rec); err != nil {
		logger.Warnf("presence: announce %s=%v failed: %v", a.self, online, err)
	}
	if a.cache == nil {
		return
	}
	var err error
	if online {
		err = a.cache.SetOnline(ctx, a.self)
	} else {
		err = a.cache.SetOffline(ctx, a.self)
	}
	if err != nil {
		logger.Warnf("presence: cache write for %s failed: %v", a.self, err)
	}
}
