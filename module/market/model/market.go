package model

import "github.com/RWACH777/yasa-tasker-sub000/data/store"

// Task statuses.
const (
	TaskOpen     = "open"
	TaskAssigned = "assigned"
	TaskDone     = "done"
)

// Application statuses.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

type Task struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"owner_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Budget      float64 `json:"budget,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

func (t Task) Row() store.Row {
	row := store.Row{
		"id":         t.ID,
		"owner_id":   t.OwnerID,
		"title":      t.Title,
		"status":     t.Status,
		"created_at": t.CreatedAt,
	}
	if t.Description != "" {
		row["description"] = t.Description
	}
	if t.Budget > 0 {
		row["budget"] = t.Budget
	}
	return row
}

func TaskFromRow(row store.Row) (Task, error) {
	var t Task
	err := store.DecodeRow(row, &t)
	return t, err
}

type Application struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	ApplicantID string `json:"applicant_id"`
	Note        string `json:"note,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func (a Application) Row() store.Row {
	row := store.Row{
		"id":           a.ID,
		"task_id":      a.TaskID,
		"applicant_id": a.ApplicantID,
		"status":       a.Status,
		"created_at":   a.CreatedAt,
	}
	if a.Note != "" {
		row["note"] = a.Note
	}
	return row
}

func ApplicationFromRow(row store.Row) (Application, error) {
	var a Application
	err := store.DecodeRow(row, &a)
	return a, err
}

type Rating struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	RaterID   string `json:"rater_id"`
	RateeID   string `json:"ratee_id"`
	Stars     int    `json:"stars"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (r Rating) Row() store.Row {
	row := store.Row{
		"id":         r.ID,
		"task_id":    r.TaskID,
		"rater_id":   r.RaterID,
		"ratee_id":   r.RateeID,
		"stars":      r.Stars,
		"created_at": r.CreatedAt,
	}
	if r.Comment != "" {
		row["comment"] = r.Comment
	}
	return row
}

func RatingFromRow(row store.Row) (Rating, error) {
	var r Rating
	err := store.DecodeRow(row, &r)
	return r, err
}
