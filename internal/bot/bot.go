package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/video-stream/subbot/internal/db"
	"github.com/video-stream/subbot/internal/job"
	"github.com/video-stream/subbot/internal/storage"
)

// Rejections returned by HandleDocument. The user has already been told.
var (
	ErrNeedCredential = errors.New("no API key saved")
	ErrNotSubtitle    = errors.New("not an .srt file")
	ErrTooLarge       = errors.New("file too large")
)

// Messenger delivers replies to a chat user
type Messenger interface {
	SendText(userID int64, text string) error
	SendDocument(userID int64, fileName, caption, jobID string) error
}

// CredentialStore keeps one API key per user
type CredentialStore interface {
	GetCredential(userID int64) (string, error)
	SetCredential(userID int64, apiKey string) error
}

// Enqueuer schedules translation jobs
type Enqueuer interface {
	EnqueueWith(jobType job.JobType, userID int64, fileName string, params interface{}, prepare func(*job.Job) error) (*job.Job, error)
}

// UploadStore keeps the raw file a user sent until its job runs
type UploadStore interface {
	SaveUpload(jobID, name string, data []byte) error
}

// Config controls the conversation
type Config struct {
	KeyPrefix      string // texts starting with this are taken as API keys
	MaxUploadBytes int64
	Params         job.TranslateParams // parameters for new translation jobs
}

// Bot turns chat events into replies and translation jobs. It also receives
// job outcomes and reports them back to the user.
type Bot struct {
	cfg      Config
	out      Messenger
	keys     CredentialStore
	jobs     Enqueuer
	uploads  UploadStore
	mu       sync.Mutex
	awaiting map[int64]bool // users who sent /setapi
}

func New(cfg Config, out Messenger, keys CredentialStore, jobs Enqueuer, uploads UploadStore) *Bot {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "AIza"
	}
	return &Bot{
		cfg:      cfg,
		out:      out,
		keys:     keys,
		jobs:     jobs,
		uploads:  uploads,
		awaiting: make(map[int64]bool),
	}
}

func (b *Bot) reply(userID int64, text string) {
	if err := b.out.SendText(userID, text); err != nil {
		log.Printf("[bot] reply to %d: %v", userID, err)
	}
}

// hasCredential reports whether the user saved a key. Store failures other
// than a missing key are returned.
func (b *Bot) hasCredential(userID int64) (bool, error) {
	_, err := b.keys.GetCredential(userID)
	if errors.Is(err, db.ErrNoCredential) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HandleCommand answers /start, /setapi and /help. A leading slash is optional.
func (b *Bot) HandleCommand(userID int64, name string) error {
	switch strings.TrimPrefix(strings.ToLower(name), "/") {
	case "start":
		ok, err := b.hasCredential(userID)
		if err != nil {
			return err
		}
		if ok {
			b.reply(userID, msgWelcomeBack)
		} else {
			b.reply(userID, msgWelcome)
		}
	case "setapi":
		b.mu.Lock()
		b.awaiting[userID] = true
		b.mu.Unlock()
		b.reply(userID, msgSetAPI)
	case "help":
		b.reply(userID, msgHelp)
	default:
		b.reply(userID, msgUnknownCommand)
	}
	return nil
}

// HandleText handles a plain text message. A key is accepted from users who
// have none yet or who asked to replace theirs with /setapi.
func (b *Bot) HandleText(userID int64, text string) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		return b.HandleCommand(userID, strings.Fields(text)[0])
	}

	b.mu.Lock()
	replacing := b.awaiting[userID]
	b.mu.Unlock()

	ok, err := b.hasCredential(userID)
	if err != nil {
		return err
	}
	isKey := strings.HasPrefix(text, b.cfg.KeyPrefix)

	switch {
	case isKey && (!ok || replacing):
		if err := b.keys.SetCredential(userID, text); err != nil {
			return fmt.Errorf("save credential: %w", err)
		}
		b.mu.Lock()
		delete(b.awaiting, userID)
		b.mu.Unlock()
		log.Printf("[bot] saved API key for user %d", userID)
		b.reply(userID, msgKeySaved)
	case replacing:
		b.reply(userID, fmt.Sprintf(msgNotAKey, b.cfg.KeyPrefix))
	case !ok:
		b.reply(userID, msgNeedKey)
	default:
		b.reply(userID, msgSendFile)
	}
	return nil
}

// HandleDocument accepts an uploaded subtitle and queues its translation
func (b *Bot) HandleDocument(userID int64, fileName string, data []byte) (*job.Job, error) {
	ok, err := b.hasCredential(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		b.reply(userID, msgNeedKey)
		return nil, ErrNeedCredential
	}

	name := storage.SanitizeName(fileName)
	if name == "" || !storage.IsSubtitleFile(name) {
		b.reply(userID, msgNotSubtitle)
		return nil, ErrNotSubtitle
	}
	if b.cfg.MaxUploadBytes > 0 && int64(len(data)) > b.cfg.MaxUploadBytes {
		b.reply(userID, fmt.Sprintf(msgTooLarge, humanize.IBytes(uint64(b.cfg.MaxUploadBytes))))
		return nil, ErrTooLarge
	}

	b.reply(userID, msgDownloading)
	j, err := b.jobs.EnqueueWith(job.JobTranslate, userID, name, b.cfg.Params, func(j *job.Job) error {
		return b.uploads.SaveUpload(j.ID, name, data)
	})
	if err != nil {
		b.reply(userID, msgFailed)
		return nil, fmt.Errorf("queue translation: %w", err)
	}
	log.Printf("[bot] user %d queued %s (%s) as job %s", userID, name, humanize.Bytes(uint64(len(data))), j.ID)
	return j, nil
}
