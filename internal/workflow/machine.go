// Package workflow enforces document status lifecycles.
//
// A Machine owns the legal transitions for one document type and the date
// fields stamped when a document enters a status. Stamps are written once:
// a field that already holds a date is left alone.
package workflow

import (
	"fmt"
	"slices"
	"time"

	apperrors "gcpanel/internal/errors"
)

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == apperrors.ErrInvalidTransition }

// Stamp sets a date field when a document enters any of the On statuses.
type Stamp[T any, S ~string] struct {
	On    []S
	Field func(*T) **time.Time
}

// Config describes one lifecycle.
type Config[T any, S ~string] struct {
	Entity      string
	Status      func(*T) S
	SetStatus   func(*T, S)
	Transitions map[S][]S
	Stamps      []Stamp[T, S]
}

// Machine validates and applies status changes for documents of type T.
type Machine[T any, S ~string] struct {
	cfg   Config[T, S]
	known map[S]struct{}
}

// New builds a Machine from cfg.
func New[T any, S ~string](cfg Config[T, S]) *Machine[T, S] {
	known := make(map[S]struct{})
	for from, targets := range cfg.Transitions {
		known[from] = struct{}{}
		for _, to := range targets {
			known[to] = struct{}{}
		}
	}
	return &Machine[T, S]{cfg: cfg, known: known}
}

// Known reports whether s is a status of this lifecycle.
func (m *Machine[T, S]) Known(s S) bool {
	_, ok := m.known[s]
	return ok
}

// Allowed lists the statuses reachable from from in one step.
func (m *Machine[T, S]) Allowed(from S) []S {
	return slices.Clone(m.cfg.Transitions[from])
}

// CanTransition reports whether from -> to is legal. Staying put is always legal.
func (m *Machine[T, S]) CanTransition(from, to S) bool {
	if from == to {
		return m.Known(to)
	}
	return slices.Contains(m.cfg.Transitions[from], to)
}

// Apply moves obj to status to, stamping date fields as configured.
// Applying the current status is a no-op and reports changed=false.
func (m *Machine[T, S]) Apply(obj *T, to S, now time.Time) (changed bool, err error) {
	from := m.cfg.Status(obj)
	if !m.Known(to) || !m.CanTransition(from, to) {
		return false, &TransitionError{Entity: m.cfg.Entity, From: string(from), To: string(to)}
	}
	if from == to {
		return false, nil
	}

	m.cfg.SetStatus(obj, to)
	for _, stamp := range m.cfg.Stamps {
		if !slices.Contains(stamp.On, to) {
			continue
		}
		field := stamp.Field(obj)
		if *field == nil {
			t := now
			*field = &t
		}
	}
	return true, nil
}

// Status reads the current status of obj.
func (m *Machine[T, S]) Status(obj *T) S { return m.cfg.Status(obj) }

// Entity names the document type this lifecycle governs.
func (m *Machine[T, S]) Entity() string { return m.cfg.Entity }
