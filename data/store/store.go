// Package store defines the data-store gateway contract the chat engine is
// written against: row CRUD over named collections, a small filter AST, and a
// per-collection change-feed subscription. Two implementations exist,
// mongostore (durable, change events over the NATS feed) and memstore
// (in-process, used by tests and dev mode).
package store

import (
	"context"

	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

// Collection names understood by the gateway.
const (
	CollMessages      = "messages"
	CollPresence      = "presence"
	CollProfiles      = "profiles"
	CollTasks         = "tasks"
	CollNotifications = "notifications"
	CollApplications  = "applications"
	CollRatings       = "ratings"
)

// Row is a stored record. Field names follow the wire contract
// (snake_case, ISO-8601 strings for timestamps).
type Row = map[string]any

// Sort orders a Find result by one field.
type Sort struct {
	Field string
	Desc  bool
}

func Asc(field string) Sort  { return Sort{Field: field} }
func Desc(field string) Sort { return Sort{Field: field, Desc: true} }

type ChangeKind int

const (
	ChangeInsert ChangeKind = iota + 1
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	}
	return "unknown"
}

// ChangeEvent is the tagged union delivered by Subscribe. Payloads are
// validated at the boundary before they reach any consumer.
type ChangeEvent struct {
	Kind ChangeKind `json:"kind"`
	Coll string     `json:"coll"`
	Row  Row        `json:"row"`
}

func (e ChangeEvent) Validate() error {
	switch e.Kind {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
	default:
		return errs.ErrInvalidEvent.WrapMsg("bad kind", "kind", int(e.Kind))
	}
	if e.Coll == "" {
		return errs.ErrInvalidEvent.WrapMsg("missing collection")
	}
	if e.Row == nil {
		return errs.ErrInvalidEvent.WrapMsg("missing row", "coll", e.Coll)
	}
	return nil
}

// Handler receives validated change events. Handlers must not block; slow
// consumers hand off to their own goroutine.
type Handler func(ChangeEvent)

// Subscription pairs every Subscribe with an Unsubscribe. Unsubscribe is
// idempotent.
type Subscription interface {
	Unsubscribe()
}

// Gateway is the abstract remote store. Query failures surface as
// errs.ErrStoreUnavailable; a FindOne with zero rows is errs.ErrNotFound.
type Gateway interface {
	Find(ctx context.Context, coll string, f Filter, sort ...Sort) ([]Row, error)
	FindOne(ctx context.Context, coll string, f Filter) (Row, error)
	// Insert stores the row, assigning an "id" when absent, and returns the
	// stored row.
	Insert(ctx context.Context, coll string, row Row) (Row, error)
	// Update sets fields on every row matching f and reports how many
	// rows changed.
	Update(ctx context.Context, coll string, f Filter, fields Row) (int64, error)
	Delete(ctx context.Context, coll string, f Filter) (int64, error)
	Subscribe(coll string, f Filter, h Handler) (Subscription, error)
}
