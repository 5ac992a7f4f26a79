// Package memstore is an in-process store.Gateway. It backs the test suite
// as the injected fake gateway and doubles as a zero-dependency dev backend.
// Change events fan out synchronously to subscribers, which keeps tests
// deterministic.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
	"github.com/RWACH777/yasa-tasker-sub000/tools/ids"
)

type Store struct {
	mu     sync.RWMutex
	colls  map[string][]store.Row
	subs   map[int]*subscriber
	nextID int

	// FailNext makes the next mutating call fail with ErrStoreUnavailable.
	// Test hook for the rollback / accepted-inconsistency paths.
	FailNext bool
}

type subscriber struct {
	coll   string
	filter store.Filter
	h      store.Handler
}

func New() *Store {
	return &Store{
		colls: make(map[string][]store.Row),
		subs:  make(map[int]*subscriber),
	}
}

func (s *Store) takeFailure() bool {
	if s.FailNext {
		s.FailNext = false
		return true
	}
	return false
}

func (s *Store) Find(_ context.Context, coll string, f store.Filter, srt ...store.Sort) ([]store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.takeFailure() {
		return nil, errs.ErrStoreUnavailable.WrapMsg("find", "coll", coll)
	}
	var out []store.Row
	for _, row := range s.colls[coll] {
		if f.Match(row) {
			out = append(out, cloneRow(row))
		}
	}
	if len(srt) > 0 {
		sortRows(out, srt[0])
	}
	return out, nil
}

func (s *Store) FindOne(ctx context.Context, coll string, f store.Filter) (store.Row, error) {
	rows, err := s.Find(ctx, coll, f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.ErrNotFound.WrapMsg("no row", "coll", coll)
	}
	return rows[0], nil
}

func (s *Store) Insert(_ context.Context, coll string, row store.Row) (store.Row, error) {
	s.mu.Lock()
	if s.takeFailure() {
		s.mu.Unlock()
		return nil, errs.ErrStoreUnavailable.WrapMsg("insert", "coll", coll)
	}
	stored := cloneRow(row)
	if id, _ := stored["id"].(string); id == "" || ids.IsTemp(id) {
		stored["id"] = ids.GenerateString()
	}
	s.colls[coll] = append(s.colls[coll], stored)
	subs := s.matchingSubs(coll)
	s.mu.Unlock()

	ev := store.ChangeEvent{Kind: store.ChangeInsert, Coll: coll, Row: cloneRow(stored)}
	notify(subs, ev)
	return cloneRow(stored), nil
}

func (s *Store) Update(_ context.Context, coll string, f store.Filter, fields store.Row) (int64, error) {
	s.mu.Lock()
	if s.takeFailure() {
		s.mu.Unlock()
		return 0, errs.ErrStoreUnavailable.WrapMsg("update", "coll", coll)
	}
	var changed []store.Row
	for _, row := range s.colls[coll] {
		if !f.Match(row) {
			continue
		}
		for k, v := range fields {
			row[k] = v
		}
		changed = append(changed, cloneRow(row))
	}
	subs := s.matchingSubs(coll)
	s.mu.Unlock()

	for _, row := range changed {
		notify(subs, store.ChangeEvent{Kind: store.ChangeUpdate, Coll: coll, Row: row})
	}
	return int64(len(changed)), nil
}

func (s *Store) Delete(_ context.Context, coll string, f store.Filter) (int64, error) {
	s.mu.Lock()
	if s.takeFailure() {
		s.mu.Unlock()
		return 0, errs.ErrStoreUnavailable.WrapMsg("delete", "coll", coll)
	}
	var kept []store.Row
	var removed []store.Row
	for _, row := range s.colls[coll] {
		if f.Match(row) {
			removed = append(removed, cloneRow(row))
		} else {
			kept = append(kept, row)
		}
	}
	s.colls[coll] = kept
	subs := s.matchingSubs(coll)
	s.mu.Unlock()

	for _, row := range removed {
		notify(subs, store.ChangeEvent{Kind: store.ChangeDelete, Coll: coll, Row: row})
	}
	return int64(len(removed)), nil
}

func (s *Store) Subscribe(coll string, f store.Filter, h store.Handler) (store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscriber{coll: coll, filter: f, h: h}
	return &subscription{s: s, id: id}, nil
}

// SubscriberCount reports live subscriptions; tests use it to verify that
// teardown paths unsubscribe.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

type subscription struct {
	s    *Store
	id   int
	once sync.Once
}

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.s.mu.Lock()
		delete(sub.s.subs, sub.id)
		sub.s.mu.Unlock()
	})
}

func (s *Store) matchingSubs(coll string) []*subscriber {
	var out []*subscriber
	for _, sub := range s.subs {
		if sub.coll == coll {
			out = append(out, sub)
		}
	}
	return out
}

func notify(subs []*subscriber, ev store.ChangeEvent) {
	if err := ev.Validate(); err != nil {
		return
	}
	for _, sub := range subs {
		if sub.filter.Match(ev.Row) {
			sub.h(ev)
		}
	}
}

func cloneRow(row store.Row) store.Row {
	out := make(store.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func sortRows(rows []store.Row, by store.Sort) {
	sort.SliceStable(rows, func(i, j int) bool {
		less := lessValue(rows[i][by.Field], rows[j][by.Field])
		if by.Desc {
			return lessValue(rows[j][by.Field], rows[i][by.Field])
		}
		return less
	})
}

func lessValue(a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af < bf
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
