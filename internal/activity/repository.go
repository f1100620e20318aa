package activity

import (
	"database/sql"
	"fmt"

	"github.com/pooriya-cloudS/mediqe/pkg/database"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Repository persists audit logs and notifications. Audit rows are insert
// only.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new activity repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// CreateAuditLog appends an audit entry
func (r *Repository) CreateAuditLog(entry *types.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, user_id, action, target, timestamp, ip_address, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var ip interface{}
	if entry.IPAddress != "" {
		ip = entry.IPAddress
	}

	_, err := r.db.Exec(query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.Target,
		entry.Timestamp,
		ip,
		entry.Details,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create audit log")
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// ListAuditLogs retrieves audit entries, optionally scoped to one user
func (r *Repository) ListAuditLogs(userID string, limit int) ([]*types.AuditLog, error) {
	query := `SELECT id, user_id, action, target, timestamp, ip_address, details FROM audit_logs`
	args := []interface{}{}
	argIndex := 1

	if userID != "" {
		query += fmt.Sprintf(" WHERE user_id = $%d", argIndex)
		args = append(args, userID)
		argIndex++
	}

	query += " ORDER BY timestamp DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list audit logs")
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*types.AuditLog
	for rows.Next() {
		entry := &types.AuditLog{}
		var ip sql.NullString
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entry.Target,
			&entry.Timestamp,
			&ip,
			&entry.Details,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entry.IPAddress = ip.String
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return entries, nil
}

// CreateNotification inserts a notification
func (r *Repository) CreateNotification(n *types.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		n.ID,
		n.UserID,
		n.Type,
		n.Title,
		n.Content,
		n.IsRead,
		n.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create notification")
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetNotificationByID retrieves a notification by ID
func (r *Repository) GetNotificationByID(id string) (*types.Notification, error) {
	query := `
		SELECT id, user_id, type, title, content, is_read, created_at
		FROM notifications
		WHERE id = $1`

	n := &types.Notification{}
	err := r.db.QueryRow(query, id).Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Content,
		&n.IsRead,
		&n.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Notification not found.")
		}
		r.logger.WithError(err).WithField("notification_id", id).Error("Failed to get notification")
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// ListNotifications retrieves a user's notifications, newest first
func (r *Repository) ListNotifications(userID string, unreadOnly bool) ([]*types.Notification, error) {
	query := `
		SELECT id, user_id, type, title, content, is_read, created_at
		FROM notifications
		WHERE user_id = $1`

	if unreadOnly {
		query += ` AND is_read = FALSE`
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list notifications")
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*types.Notification
	for rows.Next() {
		n := &types.Notification{}
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Type,
			&n.Title,
			&n.Content,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationRead flips the read flag
func (r *Repository) MarkNotificationRead(id string) error {
	result, err := r.db.Exec(`UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		r.logger.WithError(err).WithField("notification_id", id).Error("Failed to mark notification read")
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Notification not found.")
	}

	return nil
}
