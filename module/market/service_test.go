package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWACH777/yasa-tasker-sub000/data/store/memstore"
	marketmodel "github.com/RWACH777/yasa-tasker-sub000/module/market/model"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

func TestPostAndListOpenTasks(t *testing.T) {
	s := NewService(memstore.New())
	ctx := context.Background()

	posted, err := s.PostTask(ctx, "alice", "Assemble shelf", "two hours tops", 40)
	require.NoError(t, err)
	assert.NotEmpty(t, posted.ID)
	assert.Equal(t, marketmodel.TaskOpen, posted.Status)

	_, err = s.PostTask(ctx, "alice", "", "", 0)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgs))

	require.NoError(t, s.CloseTask(ctx, "alice", posted.ID))
	open, err := s.ListOpenTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCloseTaskRequiresOwner(t *testing.T) {
	s := NewService(memstore.New())
	ctx := context.Background()

	posted, err := s.PostTask(ctx, "alice", "Walk the dog", "", 15)
	require.NoError(t, err)

	err = s.CloseTask(ctx, "mallory", posted.ID)
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))

	err = s.CloseTask(ctx, "alice", "no-such-task")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestApplyRules(t *testing.T) {
	s := NewService(memstore.New())
	ctx := context.Background()

	posted, err := s.PostTask(ctx, "alice", "Paint fence", "", 80)
	require.NoError(t, err)

	_, err = s.Apply(ctx, "alice", posted.ID, "me")
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))

	app, err := s.Apply(ctx, "bob", posted.ID, "done plenty of fences")
	require.NoError(t, err)
	assert.Equal(t, marketmodel.ApplicationPending, app.Status)

	require.NoError(t, s.CloseTask(ctx, "alice", posted.ID))
	_, err = s.Apply(ctx, "carol", posted.ID, "")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgs))
}

func TestDecideAcceptAssignsTask(t *testing.T) {
	s := NewService(memstore.New())
	ctx := context.Background()

	posted, err := s.PostTask(ctx, "alice", "Move boxes", "", 60)
	require.NoError(t, err)
	app, err := s.Apply(ctx, "bob", posted.ID, "")
	require.NoError(t, err)

	err = s.Decide(ctx, "mallory", app.ID, true)
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))

	require.NoError(t, s.Decide(ctx, "alice", app.ID, true))
	task, err := s.GetTask(ctx, posted.ID)
	require.NoError(t, err)
	assert.Equal(t, marketmodel.TaskAssigned, task.Status)
}

func TestRateValidatesStars(t *testing.T) {
	s := NewService(memstore.New())
	ctx := context.Background()

	_, err := s.Rate(ctx, "alice", "t1", "bob", 0, "")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgs))
	_, err = s.Rate(ctx, "alice", "t1", "bob", 6, "")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgs))

	r, err := s.Rate(ctx, "alice", "t1", "bob", 5, "great")
	require.NoError(t, err)
	assert.Equal(t, "bob", r.RateeID)

	got, err := s.RatingsFor(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Stars)
}
