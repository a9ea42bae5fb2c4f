package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gcpanel/internal/cache"
	"gcpanel/internal/model"
)

const (
	sessionTTL       = 24 * time.Hour
	maxNotifications = 50
)

// Notification is a message shown to a user until dismissed.
type Notification struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the per-user navigation state.
type Session struct {
	User          *model.User    `json:"user"`
	Token         string         `json:"-"`
	CurrentModule string         `json:"current_module"`
	Notifications []Notification `json:"notifications"`
}

// Authenticated reports whether the session belongs to a verified user.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil && s.User.ID != 0 && s.Token != ""
}

type sessionState struct {
	CurrentModule string         `json:"current_module"`
	Notifications []Notification `json:"notifications"`
}

// SessionStore keeps session state in the cache. A nil store or a cache
// outage yields default state.
type SessionStore struct {
	cache *cache.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionStore(c *cache.Client) *SessionStore {
	return &SessionStore{cache: c, ttl: sessionTTL, now: time.Now}
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("session:%d", userID)
}

// Load returns the stored session for user, or a fresh one on the dashboard.
func (s *SessionStore) Load(ctx context.Context, user *model.User, token string) *Session {
	session := &Session{User: user, Token: token, CurrentModule: DefaultModule, Notifications: []Notification{}}
	if s == nil || user == nil {
		return session
	}
	data, _ := s.cache.Get(ctx, sessionKey(user.ID))
	if data == nil {
		return session
	}
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("discarding unreadable session", slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		return session
	}
	if state.CurrentModule != "" {
		session.CurrentModule = state.CurrentModule
	}
	if state.Notifications != nil {
		session.Notifications = state.Notifications
	}
	return session
}

// Save persists the session's module and notifications.
func (s *SessionStore) Save(ctx context.Context, session *Session) error {
	if s == nil || session == nil || session.User == nil {
		return nil
	}
	payload, err := json.Marshal(sessionState{
		CurrentModule: session.CurrentModule,
		Notifications: session.Notifications,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.cache.Set(ctx, sessionKey(session.User.ID), payload, s.ttl)
}

// Notify appends a notification, dropping the oldest past the limit.
func (s *SessionStore) Notify(ctx context.Context, session *Session, level, message string) error {
	session.Notifications = append(session.Notifications, Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: s.clock().UTC(),
	})
	if n := len(session.Notifications); n > maxNotifications {
		session.Notifications = session.Notifications[n-maxNotifications:]
	}
	return s.Save(ctx, session)
}

// NotifyUser queues a notification on another user's session, for example
// when a document is assigned to them.
func (s *SessionStore) NotifyUser(ctx context.Context, userID uint, level, message string) error {
	if s == nil || userID == 0 {
		return nil
	}
	session := s.Load(ctx, &model.User{Base: model.Base{ID: userID}}, "")
	return s.Notify(ctx, session, level, message)
}

// ClearNotifications dismisses every notification.
func (s *SessionStore) ClearNotifications(ctx context.Context, session *Session) error {
	session.Notifications = []Notification{}
	return s.Save(ctx, session)
}

func (s *SessionStore) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now()
	}
	return s.now()
}
