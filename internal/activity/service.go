// Package activity keeps the audit trail and delivers in-app
// notifications.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Store is the persistence surface the service depends on
type Store interface {
	CreateAuditLog(entry *types.AuditLog) error
	ListAuditLogs(userID string, limit int) ([]*types.AuditLog, error)

	CreateNotification(n *types.Notification) error
	GetNotificationByID(id string) (*types.Notification, error)
	ListNotifications(userID string, unreadOnly bool) ([]*types.Notification, error)
	MarkNotificationRead(id string) error
}

// Service implements audit and notification logic
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService creates a new activity service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
	}
}

// Record appends an audit entry for the principal on the context. Entries
// are write-once; nothing in the API updates or deletes them.
func (s *Service) Record(ctx context.Context, action, target, details string) error {
	claims, ok := types.ClaimsFromContext(ctx)
	if !ok {
		// unauthenticated paths are not audited
		return nil
	}

	entry := &types.AuditLog{
		ID:        uuid.New().String(),
		UserID:    claims.UserID,
		Action:    action,
		Target:    target,
		Timestamp: time.Now(),
		IPAddress: types.ClientIPFromContext(ctx),
		Details:   details,
	}

	if err := s.store.CreateAuditLog(entry); err != nil {
		return err
	}

	s.logger.Audit(claims.UserID, action, target, true, nil)
	return nil
}

// Notify creates an in-app notification for a user
func (s *Service) Notify(ctx context.Context, recipientID string, nType types.NotificationType, title, content string) error {
	n := &types.Notification{
		ID:        uuid.New().String(),
		UserID:    recipientID,
		Type:      nType,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}

	return s.store.CreateNotification(n)
}

// ListAuditLogs returns the caller's own trail; staff may read anyone's or
// the full log.
func (s *Service) ListAuditLogs(ctx context.Context, actor *types.UserClaims, userID string, limit int) ([]*types.AuditLog, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if !actor.Role.IsStaff() {
		if userID != "" && userID != actor.UserID {
			return nil, types.NewPermissionError(types.ErrCodeForbidden, "You may only view your own activity.")
		}
		userID = actor.UserID
	}

	return s.store.ListAuditLogs(userID, limit)
}

// ListNotifications returns the caller's notifications
func (s *Service) ListNotifications(ctx context.Context, actor *types.UserClaims, unreadOnly bool) ([]*types.Notification, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	return s.store.ListNotifications(actor.UserID, unreadOnly)
}

// MarkRead flips a notification's read flag. Only the recipient may do
// this, staff included have no bypass here.
func (s *Service) MarkRead(ctx context.Context, actor *types.UserClaims, id string) (*types.Notification, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	n, err := s.store.GetNotificationByID(id)
	if err != nil {
		return nil, err
	}

	if n.UserID != actor.UserID {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You may only mark your own notifications.")
	}

	if err := s.store.MarkNotificationRead(id); err != nil {
		return nil, err
	}

	n.IsRead = true
	return n, nil
}
