package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
	"github.com/RWACH777/yasa-tasker-sub000/tools/ids"
)

func TestInsertAssignsDurableID(t *testing.T) {
	s := New()

	row, err := s.Insert(context.Background(), store.CollMessages, store.Row{"text": "a"})
	require.NoError(t, err)
	id, _ := row["id"].(string)
	assert.NotEmpty(t, id)
	assert.False(t, ids.IsTemp(id))

	// temporary ids are replaced, explicit ids are kept
	row, err = s.Insert(context.Background(), store.CollMessages, store.Row{"id": ids.GenerateTemp()})
	require.NoError(t, err)
	assert.False(t, ids.IsTemp(row["id"].(string)))

	row, err = s.Insert(context.Background(), store.CollMessages, store.Row{"id": "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", row["id"])
}

func TestFindOneMissingIsNotFound(t *testing.T) {
	s := New()
	_, err := s.FindOne(context.Background(), store.CollProfiles, store.Where(store.Eq("user_id", "ghost")))
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestFindSortsAscAndDesc(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, at := range []string{"2026-03-01T12:02:00Z", "2026-03-01T12:01:00Z", "2026-03-01T12:03:00Z"} {
		_, err := s.Insert(ctx, store.CollMessages, store.Row{"created_at": at})
		require.NoError(t, err)
	}

	rows, err := s.Find(ctx, store.CollMessages, store.Filter{}, store.Asc("created_at"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-03-01T12:01:00Z", rows[0]["created_at"])
	assert.Equal(t, "2026-03-01T12:03:00Z", rows[2]["created_at"])

	rows, err = s.Find(ctx, store.CollMessages, store.Filter{}, store.Desc("created_at"))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:03:00Z", rows[0]["created_at"])
}

func TestUpdateReportsChangedRowCount(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Insert(ctx, store.CollMessages, store.Row{"id": id, "receiver_id": "alice"})
		require.NoError(t, err)
	}

	n, err := s.Update(ctx, store.CollMessages, store.Where(store.In("id", "a", "b")), store.Row{"read": true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Update(ctx, store.CollMessages, store.Where(store.Eq("id", "nope")), store.Row{"read": true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDeleteRemovesMatchesOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		_, err := s.Insert(ctx, store.CollMessages, store.Row{"id": id})
		require.NoError(t, err)
	}

	n, err := s.Delete(ctx, store.CollMessages, store.Where(store.Eq("id", "a")))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := s.Find(ctx, store.CollMessages, store.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0]["id"])
}

func TestSubscribeDeliversFilteredEvents(t *testing.T) {
	s := New()
	ctx := context.Background()

	var got []store.ChangeEvent
	sub, err := s.Subscribe(store.CollMessages, store.Where(store.Eq("receiver_id", "alice")), func(ev store.ChangeEvent) {
		got = append(got, ev)
	})
	require.NoError(t, err)

	_, err = s.Insert(ctx, store.CollMessages, store.Row{"id": "m1", "receiver_id": "alice"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, store.CollMessages, store.Row{"id": "m2", "receiver_id": "bob"})
	require.NoError(t, err)
	// other collections never reach the handler
	_, err = s.Insert(ctx, store.CollTasks, store.Row{"id": "t1", "receiver_id": "alice"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, store.ChangeInsert, got[0].Kind)
	assert.Equal(t, "m1", got[0].Row["id"])

	sub.Unsubscribe()
	_, err = s.Insert(ctx, store.CollMessages, store.Row{"id": "m3", "receiver_id": "alice"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	sub.Unsubscribe()
	assert.Equal(t, 0, s.SubscriberCount())
}

func TestUpdateAndDeleteEmitPerRowEvents(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		_, err := s.Insert(ctx, store.CollMessages, store.Row{"id": id, "receiver_id": "alice"})
		require.NoError(t, err)
	}

	var kinds []store.ChangeKind
	sub, err := s.Subscribe(store.CollMessages, store.Filter{}, func(ev store.ChangeEvent) {
		kinds = append(kinds, ev.Kind)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = s.Update(ctx, store.CollMessages, store.Filter{}, store.Row{"read": true})
	require.NoError(t, err)
	_, err = s.Delete(ctx, store.CollMessages, store.Where(store.Eq("id", "a")))
	require.NoError(t, err)

	assert.Equal(t, []store.ChangeKind{
		store.ChangeUpdate, store.ChangeUpdate, store.ChangeDelete,
	}, kinds)
}

func TestFailNextFailsExactlyOnce(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.FailNext = true
	_, err := s.Insert(ctx, store.CollMessages, store.Row{"id": "m1"})
	assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))

	_, err = s.Insert(ctx, store.CollMessages, store.Row{"id": "m1"})
	assert.NoError(t, err)
}
