package chatsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/data/store/memstore"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/msglog"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/presence"
	"github.com/RWACH777/yasa-tasker-sub000/module/user"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

func newService(gw store.Gateway) *Service {
	return New(gw, user.NewService(gw), Config{
		MessagePoll:  time.Minute,
		PresencePoll: time.Minute,
	})
}

func TestOpenConversationMarksBacklogReadAndAnnounces(t *testing.T) {
	gw := memstore.New()
	ctx := context.Background()
	svc := newService(gw)

	_, err := gw.Insert(ctx, store.CollMessages, store.Row{
		"id": "m1", "sender_id": "bob", "receiver_id": "alice",
		"text": "unread", "created_at": "2026-03-01T12:00:00Z",
	})
	require.NoError(t, err)

	sess, err := svc.OpenConversation(ctx, "alice", "bob", SessionCallbacks{})
	require.NoError(t, err)
	defer sess.Close(ctx)

	n, err := svc.ReadState().UnreadCount(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	st, err := presence.Lookup(ctx, gw, "alice")
	require.NoError(t, err)
	assert.True(t, st.Online)
}

func TestSessionCloseTearsEverythingDown(t *testing.T) {
	gw := memstore.New()
	ctx := context.Background()
	svc := newService(gw)

	sess, err := svc.OpenConversation(ctx, "alice", "bob", SessionCallbacks{})
	require.NoError(t, err)
	assert.Equal(t, 2, gw.SubscriberCount())

	sess.Close(ctx)
	assert.Equal(t, 0, gw.SubscriberCount())

	st, err := presence.Lookup(ctx, gw, "alice")
	require.NoError(t, err)
	assert.False(t, st.Online)

	// closing again must not panic or resubscribe
	sess.Close(ctx)
	assert.Equal(t, 0, gw.SubscriberCount())
}

func TestSessionCallbacksFire(t *testing.T) {
	gw := memstore.New()
	ctx := context.Background()
	svc := newService(gw)

	var gotMsgs []chatmodel.Message
	var gotPresence []presence.Status
	sess, err := svc.OpenConversation(ctx, "alice", "bob", SessionCallbacks{
		OnMessages: func(msgs []chatmodel.Message) { gotMsgs = msgs },
		OnPresence: func(st presence.Status) { gotPresence = append(gotPresence, st) },
	})
	require.NoError(t, err)
	defer sess.Close(ctx)

	_, err = sess.Log.SendText(ctx, "hi bob", "")
	require.NoError(t, err)
	require.NotEmpty(t, gotMsgs)
	assert.Equal(t, "hi bob", gotMsgs[len(gotMsgs)-1].Text)

	// the peer entering any conversation flips their presence record
	peerSess, err := svc.OpenConversation(ctx, "bob", "alice", SessionCallbacks{})
	require.NoError(t, err)
	require.NotEmpty(t, gotPresence)
	assert.True(t, gotPresence[len(gotPresence)-1].Online)

	peerSess.Close(ctx)
	assert.False(t, gotPresence[len(gotPresence)-1].Online)
}

func TestSendMessageWithoutSession(t *testing.T) {
	gw := memstore.New()
	ctx := context.Background()
	svc := newService(gw)

	msg, err := svc.SendMessage(ctx, "alice", "bob", msglog.Draft{Text: "one-shot"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	rows, err := gw.Find(ctx, store.CollMessages, msglog.PairFilter("alice", "bob"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDeleteMessageRequiresSender(t *testing.T) {
	gw := memstore.New()
	ctx := context.Background()
	svc := newService(gw)

	_, err := gw.Insert(ctx, store.CollMessages, store.Row{
		"id": "m1", "sender_id": "bob", "receiver_id": "carol",
		"text": "private", "created_at": "2026-03-01T12:00:00Z",
	})
	require.NoError(t, err)

	err = svc.DeleteMessage(ctx, "alice", "m1")
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))
	rows, err := gw.Find(ctx, store.CollMessages, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// the receiver is not the sender either
	err = svc.DeleteMessage(ctx, "carol", "m1")
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))

	require.NoError(t, svc.DeleteMessage(ctx, "bob", "m1"))
	rows, err = gw.Find(ctx, store.CollMessages, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = svc.DeleteMessage(ctx, "bob", "m1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestDirectoryIsPerUserAndLongLived(t *testing.T) {
	svc := newService(memstore.New())

	assert.Same(t, svc.Directory("alice"), svc.Directory("alice"))
	assert.NotSame(t, svc.Directory("alice"), svc.Directory("bob"))
}

func TestWatchBumpsUnreadWhileConversationClosed(t *testing.T) {
	gw := memstore.New()
	ctx := context.Background()
	svc := newService(gw)
	require.NoError(t, svc.Watch())
	defer svc.Stop()

	_, err := gw.Insert(ctx, store.CollMessages, store.Row{
		"id": "m1", "sender_id": "bob", "receiver_id": "alice",
		"text": "old", "read": true, "created_at": "2026-03-01T12:00:00Z",
	})
	require.NoError(t, err)

	d := svc.Directory("alice")
	items, err := d.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 0, items[0].Unread)

	_, err = svc.SendMessage(ctx, "bob", "alice", msglog.Draft{Text: "ping"})
	require.NoError(t, err)

	// bumped in place, no reload
	items = d.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Unread)
}

func TestWatchSkipsBumpForOpenConversation(t *testing.T) {
	gw := memstore.New()
	ctx := context.Background()
	svc := newService(gw)
	require.NoError(t, svc.Watch())
	defer svc.Stop()

	_, err := gw.Insert(ctx, store.CollMessages, store.Row{
		"id": "m1", "sender_id": "bob", "receiver_id": "alice",
		"text": "old", "read": true, "created_at": "2026-03-01T12:00:00Z",
	})
	require.NoError(t, err)

	d := svc.Directory("alice")
	_, err = d.List(ctx)
	require.NoError(t, err)

	sess, err := svc.OpenConversation(ctx, "alice", "bob", SessionCallbacks{})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "bob", "alice", msglog.Draft{Text: "seen live"})
	require.NoError(t, err)
	assert.Equal(t, 0, d.Items()[0].Unread)

	sess.Close(ctx)
	_, err = svc.SendMessage(ctx, "bob", "alice", msglog.Draft{Text: "missed"})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Items()[0].Unread)
}

func TestPresenceQueryDefaultsOffline(t *testing.T) {
	svc := newService(memstore.New())

	st, err := svc.Presence(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, st.Online)
	assert.Nil(t, st.LastSeen)
}
