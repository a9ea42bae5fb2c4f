package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gcpanel/internal/metrics"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
)

const (
	auditQueueSize     = 100
	auditBatchSize     = 10
	auditFlushInterval = time.Second
)

// Audit actions.
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionHardDelete   = "hard_delete"
	ActionStatus       = "status_change"
	ActionLogin        = "login"
	ActionLogout       = "logout"
	ActionRegister     = "register"
	ActionPassword     = "password_change"
	ActionAssignRole   = "assign_role"
	ActionRevokeRole   = "revoke_role"
	ActionAddMember    = "add_member"
	ActionRemoveMember = "remove_member"
	ActionAttach       = "attach"
	ActionSetting      = "setting_change"
)

// AuditService records who changed what. Recording never fails the caller.
type AuditService interface {
	Record(ctx context.Context, actor *model.User, action, entity string, entityID uint, details string)
	ListForEntity(ctx context.Context, entity string, entityID uint) ([]model.AuditLog, error)
	Recent(ctx context.Context, n int) ([]model.AuditLog, error)
	Close()
}

type auditService struct {
	repo  repository.AuditRepository
	queue chan model.AuditLog
	done  chan struct{}
	log   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewAuditService starts the background writer. Call Close to flush it.
func NewAuditService(repo repository.AuditRepository) AuditService {
	s := &auditService{
		repo:  repo,
		queue: make(chan model.AuditLog, auditQueueSize),
		done:  make(chan struct{}),
		log:   slog.Default().With(slog.String("component", "audit")),
	}
	go s.worker(context.Background())
	return s
}

// worker writes queued entries in batches.
func (s *auditService) worker(ctx context.Context) {
	defer close(s.done)
	batch := make([]model.AuditLog, 0, auditBatchSize)
	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			s.log.Error("audit batch write failed", slog.Int("entries", len(batch)), slog.String("error", err.Error()))
		}
		batch = batch[:0]
		metrics.SetAuditQueueDepth(len(s.queue))
	}

	for {
		select {
		case entry, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= auditBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *auditService) Record(ctx context.Context, actor *model.User, action, entity string, entityID uint, details string) {
	entry := model.AuditLog{
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if actor != nil && actor.ID != 0 {
		id := actor.ID
		entry.UserID = &id
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.closed {
		select {
		case s.queue <- entry:
			metrics.SetAuditQueueDepth(len(s.queue))
			return
		default:
			// queue full, write synchronously
		}
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), &entry); err != nil {
		s.log.Error("audit write failed", slog.String("action", action), slog.String("entity", entity),
			slog.Uint64("id", uint64(entityID)), slog.String("error", err.Error()))
	}
}

func (s *auditService) ListForEntity(ctx context.Context, entity string, entityID uint) ([]model.AuditLog, error) {
	return s.repo.ListForEntity(ctx, entity, entityID)
}

func (s *auditService) Recent(ctx context.Context, n int) ([]model.AuditLog, error) {
	return s.repo.Recent(ctx, n)
}

// Close stops accepting queued entries and waits for the worker to flush.
func (s *auditService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}
