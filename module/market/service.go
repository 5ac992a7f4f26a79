// Package market is the task-marketplace CRUD: posting tasks, applying,
// rating. Thin wrappers over the gateway; the only business rules are
// ownership checks and status transitions.
package market

import (
	"context"
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	marketmodel "github.com/RWACH777/yasa-tasker-sub000/module/market/model"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

type Service struct {
	gw store.Gateway
}

func NewService(gw store.Gateway) *Service {
	return &Service{gw: gw}
}

func now() string { return time.Now().UTC().Format(chatmodel.TimeLayout) }

func (s *Service) PostTask(ctx context.Context, owner, title, description string, budget float64) (marketmodel.Task, error) {
	if title == "" {
		return marketmodel.Task{}, errs.ErrInvalidArgs.WrapMsg("missing title")
	}
	t := marketmodel.Task{
		OwnerID:     owner,
		Title:       title,
		Description: description,
		Budget:      budget,
		Status:      marketmodel.TaskOpen,
		CreatedAt:   now(),
	}
	row, err := s.gw.Insert(ctx, store.CollTasks, t.Row())
	if err != nil {
		return marketmodel.Task{}, err
	}
	return marketmodel.TaskFromRow(row)
}

func (s *Service) ListOpenTasks(ctx context.Context) ([]marketmodel.Task, error) {
	rows, err := s.gw.Find(ctx, store.CollTasks,
		store.Where(store.Eq("status", marketmodel.TaskOpen)), store.Desc("created_at"))
	if err != nil {
		return nil, err
	}
	out := make([]marketmodel.Task, 0, len(rows))
	for _, row := range rows {
		t, err := marketmodel.TaskFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (marketmodel.Task, error) {
	row, err := s.gw.FindOne(ctx, store.CollTasks, store.Where(store.Eq("id", id)))
	if err != nil {
		return marketmodel.Task{}, err
	}
	return marketmodel.TaskFromRow(row)
}

// CloseTask marks a task done. Only the owner may do this.
func (s *Service) CloseTask(ctx context.Context, actor, id string) error {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.OwnerID != actor {
		return errs.ErrPermissionDenied.WrapMsg("not task owner", "task", id)
	}
	_, err = s.gw.Update(ctx, store.CollTasks,
		store.Where(store.Eq("id", id)), store.Row{"status": marketmodel.TaskDone})
	return err
}

// Apply files an application against an open task. Owners cannot apply to
// their own tasks.
func (s *Service) Apply(ctx context.Context, applicant, taskID, note string) (marketmodel.Application, error) {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return marketmodel.Application{}, err
	}
	if t.OwnerID == applicant {
		return marketmodel.Application{}, errs.ErrPermissionDenied.WrapMsg("cannot apply to own task", "task", taskID)
	}
	if t.Status != marketmodel.TaskOpen {
		return marketmodel.Application{}, errs.ErrInvalidArgs.WrapMsg("task not open", "task", taskID)
	}
	a := marketmodel.Application{
		TaskID:      taskID,
		ApplicantID: applicant,
		Note:        note,
		Status:      marketmodel.ApplicationPending,
		CreatedAt:   now(),
	}
	row, err := s.gw.Insert(ctx, store.CollApplications, a.Row())
	if err != nil {
		return marketmodel.Application{}, err
	}
	return marketmodel.ApplicationFromRow(row)
}

// Decide accepts or rejects an application; only the task owner may decide.
// Accepting moves the task to assigned.
func (s *Service) Decide(ctx context.Context, actor, applicationID string, accept bool) error {
	row, err := s.gw.FindOne(ctx, store.CollApplications, store.Where(store.Eq("id", applicationID)))
	if err != nil {
		return err
	}
	a, err := marketmodel.ApplicationFromRow(row)
	if err != nil {
		return err
	}
	t, err := s.GetTask(ctx, a.TaskID)
	if err != nil {
		return err
	}
	if t.OwnerID != actor {
		return errs.ErrPermissionDenied.WrapMsg("not task owner", "application", applicationID)
	}
	status := marketmodel.ApplicationRejected
	if accept {
		status = marketmodel.ApplicationAccepted
	}
	if _, err := s.gw.Update(ctx, store.CollApplications,
		store.Where(store.Eq("id", applicationID)), store.Row{"status": status}); err != nil {
		return err
	}
	if accept {
		_, err = s.gw.Update(ctx, store.CollTasks,
			store.Where(store.Eq("id", a.TaskID)), store.Row{"status": marketmodel.TaskAssigned})
	}
	return err
}

// Rate records a rating after a task is done.
func (s *Service) Rate(ctx context.Context, rater, taskID, ratee string, stars int, comment string) (marketmodel.Rating, error) {
	if stars < 1 || stars > 5 {
		return marketmodel.Rating{}, errs.ErrInvalidArgs.WrapMsg("stars out of range", "stars", stars)
	}
	r := marketmodel.Rating{
		TaskID:    taskID,
		RaterID:   rater,
		RateeID:   ratee,
		Stars:     stars,
		Comment:   comment,
		CreatedAt: now(),
	}
	row, err := s.gw.Insert(ctx, store.CollRatings, r.Row())
	if err != nil {
		return marketmodel.Rating{}, err
	}
	return marketmodel.RatingFromRow(row)
}

func (s *Service) RatingsFor(ctx context.Context, userID string) ([]marketmodel.Rating, error) {
	rows, err := s.gw.Find(ctx, store.CollRatings,
		store.Where(store.Eq("ratee_id", userID)), store.Desc("created_at"))
	if err != nil {
		return nil, err
	}
	out := make([]marketmodel.Rating, 0, len(rows))
	for _, row := range rows {
		r, err := marketmodel.RatingFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
