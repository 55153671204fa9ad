package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/video-stream/subbot/internal/db/models"
)

// ErrNoCredential means the user has not registered an API key yet
var ErrNoCredential = errors.New("no API key saved for user")

// Sealer encrypts credentials before they reach disk
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type Database struct {
	db     *sql.DB
	sealer Sealer
}

// Option configures the database
type Option func(*Database)

// WithSealer stores API keys encrypted with s
func WithSealer(s Sealer) Option {
	return func(d *Database) {
		d.sealer = s
	}
}

func NewSQLite(path string, opts ...Option) (*Database, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &Database{db: sqlDB}
	for _, opt := range opts {
		opt(d)
	}
	if d.sealer == nil {
		log.Println("[db] WARNING: no credential secret configured, API keys are stored unencrypted")
	}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		api_key TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		user_id INTEGER NOT NULL,
		file_name TEXT NOT NULL,
		params TEXT NOT NULL,
		progress REAL DEFAULT 0,
		result TEXT,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		started_at DATETIME,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_user ON jobs(user_id, created_at);

	CREATE TABLE IF NOT EXISTS outbox (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT '',
		job_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_outbox_user ON outbox(user_id, id);
	`
	_, err := d.db.Exec(schema)
	return err
}

// SetCredential saves or replaces the user's API key
func (d *Database) SetCredential(userID int64, apiKey string) error {
	stored := apiKey
	if d.sealer != nil {
		sealed, err := d.sealer.Seal(apiKey)
		if err != nil {
			return fmt.Errorf("seal credential: %w", err)
		}
		stored = sealed
	}
	_, err := d.db.Exec(`
		INSERT INTO users (user_id, api_key, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET api_key = excluded.api_key, updated_at = excluded.updated_at`,
		userID, stored, time.Now().UTC(),
	)
	return err
}

// GetCredential returns the user's API key or ErrNoCredential
func (d *Database) GetCredential(userID int64) (string, error) {
	u, err := d.GetUser(userID)
	if err != nil {
		return "", err
	}
	return u.APIKey, nil
}

// GetUser returns the user with the decrypted API key
func (d *Database) GetUser(userID int64) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT user_id, api_key, updated_at FROM users WHERE user_id = ?", userID,
	).Scan(&u.ID, &u.APIKey, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, err
	}
	if d.sealer != nil {
		key, err := d.sealer.Open(u.APIKey)
		if err != nil {
			return nil, fmt.Errorf("open credential: %w", err)
		}
		u.APIKey = key
	}
	return u, nil
}

// GetSetting returns a setting value by key, or defaultVal if not found
func (d *Database) GetSetting(key, defaultVal string) string {
	var val string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err != nil {
		return defaultVal
	}
	return val
}

// SetSetting upserts a setting
func (d *Database) SetSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP`,
		key, value, value,
	)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB for use by other packages (e.g., job queue)
func (d *Database) DB() *sql.DB {
	return d.db
}
