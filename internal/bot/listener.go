package bot

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/video-stream/subbot/internal/db"
	"github.com/video-stream/subbot/internal/job"
	"github.com/video-stream/subbot/internal/subtitle/srt"
)

// JobMessage forwards a running job's status line to its owner
func (b *Bot) JobMessage(j *job.Job, message string) {
	b.reply(j.UserID, message)
}

// JobFinished delivers the translated file or explains what went wrong
func (b *Bot) JobFinished(j *job.Job, err error) {
	var fe *srt.FormatError
	switch {
	case err == nil:
		var res job.TranslateResult
		if uerr := json.Unmarshal(j.Result, &res); uerr != nil || res.OutputName == "" {
			log.Printf("[bot] job %s finished without a result: %v", j.ID, uerr)
			b.reply(j.UserID, msgFailed)
			return
		}
		if serr := b.out.SendDocument(j.UserID, res.OutputName, msgDone, j.ID); serr != nil {
			log.Printf("[bot] deliver job %s: %v", j.ID, serr)
		}
	case errors.Is(err, context.Canceled):
		b.reply(j.UserID, msgCancelled)
	case errors.As(err, &fe):
		log.Printf("[bot] job %s: %v", j.ID, err)
		b.reply(j.UserID, msgParseFailed)
	case errors.Is(err, db.ErrNoCredential):
		b.reply(j.UserID, msgNeedKey)
	default:
		log.Printf("[bot] job %s failed: %v", j.ID, err)
		b.reply(j.UserID, msgFailed)
	}
}
