package bot

import (
	"github.com/video-stream/subbot/internal/db/models"
)

// OutboxStore persists replies until a client collects them
type OutboxStore interface {
	AddMessage(m models.OutboxMessage) (int64, error)
}

// Outbox is a Messenger that queues replies in the database; the HTTP shell
// serves them to polling clients.
type Outbox struct {
	store OutboxStore
}

func NewOutbox(store OutboxStore) *Outbox {
	return &Outbox{store: store}
}

func (o *Outbox) SendText(userID int64, text string) error {
	_, err := o.store.AddMessage(models.OutboxMessage{
		UserID: userID,
		Kind:   models.MessageText,
		Text:   text,
	})
	return err
}

func (o *Outbox) SendDocument(userID int64, fileName, caption, jobID string) error {
	_, err := o.store.AddMessage(models.OutboxMessage{
		UserID:   userID,
		Kind:     models.MessageDocument,
		Text:     caption,
		FileName: fileName,
		JobID:    jobID,
	})
	return err
}
