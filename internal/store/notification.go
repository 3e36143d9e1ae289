package store

import (
	"time"

	"github.com/edumap/selserver/internal/model"
)

// CreateNotification inserts one notification for an account.
func (s *Store) CreateNotification(n model.Notification) (int64, error) {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO notifications (audience, owner_id, type, title, content, time_label, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Audience, n.OwnerID, n.Type, n.Title, n.Content, n.Time, n.Read, createdAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListNotifications returns an account's notifications, newest first.
func (s *Store) ListNotifications(aud model.Audience, ownerID string) ([]model.Notification, error) {
	rows, err := s.db.Query(
		`SELECT id, audience, owner_id, type, title, content, time_label, read, created_at
		 FROM notifications WHERE audience = ? AND owner_id = ?
		 ORDER BY created_at DESC, id DESC`, aud, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Audience, &n.OwnerID, &n.Type, &n.Title, &n.Content, &n.Time, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips one notification to read. The owner scoping
// keeps accounts from touching each other's notifications. Returns false
// when no matching row exists.
func (s *Store) MarkNotificationRead(aud model.Audience, ownerID string, id int64) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE id = ? AND audience = ? AND owner_id = ?`,
		id, aud, ownerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkAllNotificationsRead flips all of an account's notifications to
// read and returns how many changed.
func (s *Store) MarkAllNotificationsRead(aud model.Audience, ownerID string) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE audience = ? AND owner_id = ? AND read = 0`,
		aud, ownerID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
