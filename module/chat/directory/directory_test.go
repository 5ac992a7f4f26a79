package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/data/store/memstore"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/module/user"
	usermodel "github.com/RWACH777/yasa-tasker-sub000/module/user/model"
)

func seedMsg(t *testing.T, gw *memstore.Store, id, from, to, text string, offset time.Duration, read bool) {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row := store.Row{
		"id":          id,
		"sender_id":   from,
		"receiver_id": to,
		"text":        text,
		"created_at":  base.Add(offset).Format(chatmodel.TimeLayout),
	}
	if read {
		row["read"] = true
	}
	_, err := gw.Insert(context.Background(), store.CollMessages, row)
	require.NoError(t, err)
}

func TestListGroupsByPeer(t *testing.T) {
	gw := memstore.New()
	seedMsg(t, gw, "m1", "alice", "bob", "to bob", 1*time.Minute, true)
	seedMsg(t, gw, "m2", "bob", "alice", "from bob", 2*time.Minute, false)
	seedMsg(t, gw, "m3", "alice", "carol", "to carol", 3*time.Minute, true)

	d := New(gw, user.NewService(gw), "alice")
	items, err := d.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	// newest conversation first
	assert.Equal(t, "carol", items[0].PeerID)
	assert.Equal(t, "to carol", items[0].LastText)
	assert.Equal(t, 0, items[0].Unread)

	assert.Equal(t, "bob", items[1].PeerID)
	assert.Equal(t, "from bob", items[1].LastText)
	assert.Equal(t, 1, items[1].Unread)
}

func TestListCountsOnlyUnreadFromPeer(t *testing.T) {
	gw := memstore.New()
	seedMsg(t, gw, "m1", "bob", "alice", "one", 1*time.Minute, false)
	seedMsg(t, gw, "m2", "bob", "alice", "two", 2*time.Minute, false)
	seedMsg(t, gw, "m3", "bob", "alice", "three", 3*time.Minute, true)
	// own unread messages to the peer never count
	seedMsg(t, gw, "m4", "alice", "bob", "mine", 4*time.Minute, false)

	d := New(gw, user.NewService(gw), "alice")
	items, err := d.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Unread)
	assert.Equal(t, "mine", items[0].LastText)
}

func TestListAnnotatesProfileAndOnline(t *testing.T) {
	gw := memstore.New()
	users := user.NewService(gw)
	require.NoError(t, users.Upsert(context.Background(), usermodel.Profile{
		UserID:    "bob",
		Username:  "Bob",
		AvatarURL: "https://cdn.example/bob.png",
	}))
	seedMsg(t, gw, "m1", "bob", "alice", "hey", 1*time.Minute, false)
	seedMsg(t, gw, "m2", "carol", "alice", "hi", 2*time.Minute, false)

	online := func(_ context.Context, userID string) bool { return userID == "bob" }
	d := New(gw, users, "alice", WithOnlineFunc(online))
	items, err := d.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	byPeer := map[string]chatmodel.Conversation{}
	for _, it := range items {
		byPeer[it.PeerID] = it
	}
	assert.Equal(t, "Bob", byPeer["bob"].Username)
	assert.Equal(t, "https://cdn.example/bob.png", byPeer["bob"].AvatarURL)
	assert.True(t, byPeer["bob"].Online)

	// a peer without a profile still gets an entry
	assert.Empty(t, byPeer["carol"].Username)
	assert.False(t, byPeer["carol"].Online)
}

func TestDeleteRemovesPairAndEntry(t *testing.T) {
	gw := memstore.New()
	seedMsg(t, gw, "m1", "alice", "bob", "to bob", 1*time.Minute, true)
	seedMsg(t, gw, "m2", "bob", "alice", "from bob", 2*time.Minute, false)
	seedMsg(t, gw, "m3", "carol", "alice", "from carol", 3*time.Minute, false)

	d := New(gw, user.NewService(gw), "alice")
	_, err := d.List(context.Background())
	require.NoError(t, err)

	require.NoError(t, d.Delete(context.Background(), "bob"))

	items := d.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "carol", items[0].PeerID)

	rows, err := gw.Find(context.Background(), store.CollMessages, store.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "m3", rows[0]["id"])
}

func TestBumpUnread(t *testing.T) {
	gw := memstore.New()
	seedMsg(t, gw, "m1", "bob", "alice", "hey", 1*time.Minute, true)

	d := New(gw, user.NewService(gw), "alice")
	_, err := d.List(context.Background())
	require.NoError(t, err)

	d.BumpUnread("bob")
	d.BumpUnread("nobody")

	items := d.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Unread)
}
