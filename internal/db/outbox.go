package db

import (
	"time"

	"github.com/video-stream/subbot/internal/db/models"
)

// AddMessage queues a reply for the user and returns its ID
func (d *Database) AddMessage(m models.OutboxMessage) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	result, err := d.db.Exec(
		"INSERT INTO outbox (user_id, kind, text, file_name, job_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		m.UserID, m.Kind, m.Text, m.FileName, m.JobID, m.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListMessages returns the user's messages with ID greater than afterID, oldest first
func (d *Database) ListMessages(userID, afterID int64, limit int) ([]models.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(`
		SELECT id, user_id, kind, text, file_name, job_id, created_at
		FROM outbox WHERE user_id = ? AND id > ? ORDER BY id ASC LIMIT ?`,
		userID, afterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.OutboxMessage{}
	for rows.Next() {
		var m models.OutboxMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Kind, &m.Text, &m.FileName, &m.JobID, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
