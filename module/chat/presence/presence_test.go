package presence

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
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

func writePresence(t *testing.T, gw *memstore.Store, user string, online bool, lastSeen string) {
	t.Helper()
	err := Upsert(context.Background(), gw, chatmodel.PresenceRecord{
		UserID:   user,
		IsOnline: online,
		LastSeen: lastSeen,
	})
	require.NoError(t, err)
}

func TestLookupMissingRecordIsOfflineNotError(t *testing.T) {
	gw := memstore.New()

	st, err := Lookup(context.Background(), gw, "ghost")
	require.NoError(t, err)
	assert.False(t, st.Online)
	assert.Nil(t, st.LastSeen)
}

func TestLookupReadsRecord(t *testing.T) {
	gw := memstore.New()
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writePresence(t, gw, "bob", true, seen.Format(chatmodel.TimeLayout))

	st, err := Lookup(context.Background(), gw, "bob")
	require.NoError(t, err)
	assert.True(t, st.Online)
	require.NotNil(t, st.LastSeen)
	assert.True(t, st.LastSeen.Equal(seen))
}

func TestLookupStoreFailureSurfacesAsUnavailable(t *testing.T) {
	gw := memstore.New()
	gw.FailNext = true

	_, err := Lookup(context.Background(), gw, "bob")
	assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))
}

func TestUpsertKeepsOneRowPerUser(t *testing.T) {
	gw := memstore.New()
	writePresence(t, gw, "bob", true, "")
	writePresence(t, gw, "bob", false, "")

	rows, err := gw.Find(context.Background(), store.CollPresence, store.Where(store.Eq("user_id", "bob")))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	st, err := Lookup(context.Background(), gw, "bob")
	require.NoError(t, err)
	assert.False(t, st.Online)
}

func TestTrackerStartDefaultsOfflineForMissingRecord(t *testing.T) {
	gw := memstore.New()
	tr := NewTracker(gw, "ghost")
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop()

	assert.Equal(t, Offline, tr.State())
	assert.False(t, tr.Status().Online)
}

func TestTrackerFollowsPushedChanges(t *testing.T) {
	gw := memstore.New()

	var transitions []bool
	tr := NewTracker(gw, "bob", WithOnChange(func(st Status) {
		transitions = append(transitions, st.Online)
	}))
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop()
	require.Equal(t, Offline, tr.State())

	writePresence(t, gw, "bob", true, "")
	assert.Equal(t, Online, tr.State())

	// re-announcing online is not a transition
	writePresence(t, gw, "bob", true, "")
	assert.Equal(t, Online, tr.State())

	writePresence(t, gw, "bob", false, "")
	assert.Equal(t, Offline, tr.State())

	assert.Equal(t, []bool{true, false}, transitions)
}

func TestTrackerTreatsRecordDeleteAsOffline(t *testing.T) {
	gw := memstore.New()
	writePresence(t, gw, "bob", true, "")

	tr := NewTracker(gw, "bob")
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop()
	require.Equal(t, Online, tr.State())

	_, err := gw.Delete(context.Background(), store.CollPresence, store.Where(store.Eq("user_id", "bob")))
	require.NoError(t, err)
	assert.Equal(t, Offline, tr.State())
}

func TestTrackerIgnoresOtherUsers(t *testing.T) {
	gw := memstore.New()
	tr := NewTracker(gw, "bob")
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop()

	writePresence(t, gw, "carol", true, "")
	assert.Equal(t, Offline, tr.State())
}

func TestTrackerStopTearsDownSubscription(t *testing.T) {
	gw := memstore.New()
	tr := NewTracker(gw, "bob")
	require.NoError(t, tr.Start(context.Background()))
	assert.Equal(t, 1, gw.SubscriberCount())

	tr.Stop()
	assert.Equal(t, 0, gw.SubscriberCount())
	tr.Stop()
	assert.Equal(t, 0, gw.SubscriberCount())
}

type failingCache struct{ calls int }

func (c *failingCache) SetOnline(context.Context, string) error {
	c.calls++
	return errors.New("cache down")
}

func (c *failingCache) SetOffline(context.Context, string) error {
	c.calls++
	return errors.New("cache down")
}

func TestAnnouncerWritesRecordAndSwallowsFailures(t *testing.T) {
	gw := memstore.New()
	cache := &failingCache{}
	a := NewAnnouncer(gw, cache, "alice")

	a.Online(context.Background())
	st, err := Lookup(context.Background(), gw, "alice")
	require.NoError(t, err)
	assert.True(t, st.Online)
	assert.NotNil(t, st.LastSeen)

	a.Offline(context.Background())
	st, err = Lookup(context.Background(), gw, "alice")
	require.NoError(t, err)
	assert.False(t, st.Online)

	assert.Equal(t, 2, cache.calls)

	// a failed durable write degrades silently as well
	gw.FailNext = true
	a.Online(context.Background())
}
