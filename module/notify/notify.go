// Package notify writes and lists per-user notification records. A watcher
// rides the store change feed and records a notification for every new
// message and application, so the bell badge works without any client
// being connected at delivery time.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	marketmodel "github.com/RWACH777/yasa-tasker-sub000/module/market/model"
)

const (
	KindMessage     = "message"
	KindApplication = "application"
)

type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Body      string `json:"body"`
	RefID     string `json:"ref_id,omitempty"`
	Seen      bool   `json:"seen,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (n Notification) Row() store.Row {
	row := store.Row{
		"id":         n.ID,
		"user_id":    n.UserID,
		"kind":       n.Kind,
		"body":       n.Body,
		"created_at": n.CreatedAt,
	}
	if n.RefID != "" {
		row["ref_id"] = n.RefID
	}
	if n.Seen {
		row["seen"] = true
	}
	return row
}

type Service struct {
	gw   store.Gateway
	subs []store.Subscription
}

func NewService(gw store.Gateway) *Service {
	return &Service{gw: gw}
}

// Watch subscribes to message and application inserts and records a
// notification for the affected user. Call Stop on shutdown.
func (s *Service) Watch() error {
	msgSub, err := s.gw.Subscribe(store.CollMessages, store.Filter{}, s.onMessageEvent)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, msgSub)

	appSub, err := s.gw.Subscribe(store.CollApplications, store.Filter{}, s.onApplicationEvent)
	if err != nil {
		msgSub.Unsubscribe()
		s.subs = nil
		return err
	}
	s.subs = append(s.subs, appSub)
	return nil
}

func (s *Service) Stop() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

func (s *Service) onMessageEvent(ev store.ChangeEvent) {
	if ev.Kind != store.ChangeInsert {
		return
	}
	m, err := chatmodel.MessageFromRow(ev.Row)
	if err != nil {
		return
	}
	s.record(Notification{
		UserID:    m.ReceiverID,
		Kind:      KindMessage,
		Body:      fmt.Sprintf("new message from %s", m.SenderID),
		RefID:     m.ID,
		CreatedAt: time.Now().UTC().Format(chatmodel.TimeLayout),
	})
}

func (s *Service) onApplicationEvent(ev store.ChangeEvent) {
	if ev.Kind != store.ChangeInsert {
		return
	}
	a, err := marketmodel.ApplicationFromRow(ev.Row)
	if err != nil {
		return
	}
	// notify the task owner
	taskRow, err := s.gw.FindOne(context.Background(), store.CollTasks, store.Where(store.Eq("id", a.TaskID)))
	if err != nil {
		return
	}
	t, err := marketmodel.TaskFromRow(taskRow)
	if err != nil {
		return
	}
	s.record(Notification{
		UserID:    t.OwnerID,
		Kind:      KindApplication,
		Body:      fmt.Sprintf("%s applied to %q", a.ApplicantID, t.Title),
		RefID:     a.ID,
		CreatedAt: time.Now().UTC().Format(chatmodel.TimeLayout),
	})
}

func (s *Service) record(n Notification) {
	if _, err := s.gw.Insert(context.Background(), store.CollNotifications, n.Row()); err != nil {
		logger.Warnf("notify: record failed: %v", err)
	}
}

func (s *Service) List(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.gw.Find(ctx, store.CollNotifications,
		store.Where(store.Eq("user_id", userID)), store.Desc("created_at"))
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(rows))
	for _, row := range rows {
		var n Notification
		if err := store.DecodeRow(row, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkSeen flags all of a user's notifications as seen.
func (s *Service) MarkSeen(ctx context.Context, userID string) error {
	_, err := s.gw.Update(ctx, store.CollNotifications,
		store.Where(store.Eq("user_id", userID)), store.Row{"seen": true})
	return err
}
