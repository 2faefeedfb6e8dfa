// Package hooks maps document lifecycle events to handler functions.
package hooks

import (
	"context"
	"fmt"
)

type Event int

const (
	BeforeInsert Event = iota
	Validate
	OnUpdate
	OnSubmit
	OnCancel
)

func (e Event) String() string {
	switch e {
	case BeforeInsert:
		return "before_insert"
	case Validate:
		return "validate"
	case OnUpdate:
		return "on_update"
	case OnSubmit:
		return "on_submit"
	case OnCancel:
		return "on_cancel"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

type Handler[T any] func(ctx context.Context, doc T) error

// Registry holds the handlers of one document type, per event, in
// registration order.
type Registry[T any] struct {
	table map[Event][]Handler[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{table: map[Event][]Handler[T]{}}
}

func (r *Registry[T]) On(ev Event, h Handler[T]) {
	r.table[ev] = append(r.table[ev], h)
}

// Fire runs the handlers of ev and stops at the first error.
func (r *Registry[T]) Fire(ctx context.Context, ev Event, doc T) error {
	for _, h := range r.table[ev] {
		if err := h(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[T]) Len(ev Event) int { return len(r.table[ev]) }
