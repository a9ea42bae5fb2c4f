// Package app routes an authenticated session to the module views it may open.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"gcpanel/internal/auth"
	apperrors "gcpanel/internal/errors"
)

// DefaultModule is opened for a session with no saved module.
const DefaultModule = "dashboard"

// Module is one navigable area of the application.
type Module struct {
	Name       string
	Title      string
	Permission auth.Permission
	Build      func(ctx context.Context, s *Session) (any, error)
}

// MenuItem is an entry of a user's navigation menu.
type MenuItem struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Current bool   `json:"current"`
}

// View is the payload returned for an opened module.
type View struct {
	Module string `json:"module"`
	Title  string `json:"title"`
	Data   any    `json:"data"`
}

// Dispatcher is the registry of modules in menu order.
type Dispatcher struct {
	sessions *SessionStore
	modules  map[string]Module
	order    []string
}

func NewDispatcher(sessions *SessionStore, modules ...Module) *Dispatcher {
	d := &Dispatcher{sessions: sessions, modules: make(map[string]Module)}
	for _, m := range modules {
		d.Register(m)
	}
	return d
}

// Register adds m, replacing any module with the same name.
func (d *Dispatcher) Register(m Module) {
	if _, exists := d.modules[m.Name]; !exists {
		d.order = append(d.order, m.Name)
	}
	d.modules[m.Name] = m
}

// Menu lists the modules the session's user may open.
func (d *Dispatcher) Menu(s *Session) []MenuItem {
	items := []MenuItem{}
	if !s.Authenticated() {
		return items
	}
	for _, name := range d.order {
		m := d.modules[name]
		if !auth.UserCan(s.User, m.Permission) {
			continue
		}
		items = append(items, MenuItem{Name: m.Name, Title: m.Title, Current: name == s.CurrentModule})
	}
	return items
}

// Dispatch opens module name for the session and records it as current.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, name string) (*View, error) {
	if !s.Authenticated() {
		return nil, apperrors.ErrInvalidToken
	}
	m, ok := d.modules[name]
	if !ok {
		return nil, fmt.Errorf("module %q: %w", name, apperrors.ErrNotFound)
	}
	if !auth.UserCan(s.User, m.Permission) {
		return nil, fmt.Errorf("module %q: %w", name, apperrors.ErrForbidden)
	}

	data, err := m.Build(ctx, s)
	if err != nil {
		return nil, err
	}

	s.CurrentModule = name
	if err := d.sessions.Save(ctx, s); err != nil {
		slog.Warn("save session", slog.Uint64("user_id", uint64(s.User.ID)), slog.String("error", err.Error()))
	}
	return &View{Module: m.Name, Title: m.Title, Data: data}, nil
}

// Current opens the session's current module.
func (d *Dispatcher) Current(ctx context.Context, s *Session) (*View, error) {
	if s == nil || s.CurrentModule == "" {
		return d.Dispatch(ctx, s, DefaultModule)
	}
	return d.Dispatch(ctx, s, s.CurrentModule)
}
