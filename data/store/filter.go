package store

import (
	"fmt"
)

type Op int

const (
	OpEq Op = iota + 1
	OpIn
	OpMissing
)

type Cond struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Cond  { return Cond{Field: field, Op: OpEq, Value: v} }
func In(field string, vs ...any) Cond {
	return Cond{Field: field, Op: OpIn, Value: vs}
}
func Missing(field string) Cond { return Cond{Field: field, Op: OpMissing} }

// Filter is an OR of AND-groups. The zero Filter matches every row.
type Filter struct {
	Groups [][]Cond
}

// Where builds a single AND-group filter.
func Where(conds ...Cond) Filter { return Filter{Groups: [][]Cond{conds}} }

// Or combines AND-groups built with And.
func Or(groups ...[]Cond) Filter { return Filter{Groups: groups} }

func And(conds ...Cond) []Cond { return conds }

func (f Filter) Match(row Row) bool {
	if len(f.Groups) == 0 {
		return true
	}
	for _, g := range f.Groups {
		if matchGroup(g, row) {
			return true
		}
	}
	return false
}

func matchGroup(conds []Cond, row Row) bool {
	for _, c := range conds {
		if !c.match(row) {
			return false
		}
	}
	return true
}

func (c Cond) match(row Row) bool {
	v, ok := row[c.Field]
	switch c.Op {
	case OpEq:
		return ok && equalValue(v, c.Value)
	case OpIn:
		if !ok {
			return false
		}
		vs, _ := c.Value.([]any)
		for _, want := range vs {
			if equalValue(v, want) {
				return true
			}
		}
		return false
	case OpMissing:
		return !ok
	}
	return false
}

// equalValue compares loosely across the numeric types a JSON or bson
// round-trip may produce; everything else falls back to formatted equality.
func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
