package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown job IDs
var ErrNotFound = errors.New("job not found")

// ErrCancelled is the cancellation cause of a job stopped through CancelJob
var ErrCancelled = errors.New("job cancelled")

// Interrupted reports whether ctx ended for a reason other than CancelJob,
// such as queue shutdown. Interrupted jobs run again on the next Start.
func Interrupted(ctx context.Context) bool {
	return ctx.Err() != nil && !errors.Is(context.Cause(ctx), ErrCancelled)
}

const jobColumns = `id, type, status, user_id, file_name, params, progress, result, error, created_at, started_at, completed_at`

// JobQueue manages job persistence and dispatching. A single worker runs
// jobs one at a time in submission order.
type JobQueue struct {
	db       *sql.DB
	mu       sync.RWMutex
	wake     chan struct{} // pending rows may exist
	cancels  map[string]context.CancelCauseFunc
	handlers map[JobType]JobHandler
	listener Listener
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewJobQueue creates a queue; call Start once handlers are registered
func NewJobQueue(db *sql.DB) *JobQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobQueue{
		db:       db,
		wake:     make(chan struct{}, 1),
		cancels:  make(map[string]context.CancelCauseFunc),
		handlers: make(map[JobType]JobHandler),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type
func (q *JobQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// SetListener installs the receiver of job messages and outcomes
func (q *JobQueue) SetListener(l Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listener = l
}

// Start resumes unfinished jobs from the DB and launches the worker
func (q *JobQueue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	q.resumeJobs()
	go q.worker()
}

// Enqueue creates a new job and adds it to the queue
func (q *JobQueue) Enqueue(jobType JobType, userID int64, fileName string, params interface{}) (*Job, error) {
	return q.EnqueueWith(jobType, userID, fileName, params, nil)
}

// EnqueueWith is Enqueue with a prepare step that runs once the job has its
// ID and before it is stored or dispatched. A prepare error drops the job.
func (q *JobQueue) EnqueueWith(jobType JobType, userID int64, fileName string, params interface{}, prepare func(*Job) error) (*Job, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		UserID:    userID,
		FileName:  fileName,
		Params:    paramsJSON,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
	}
	if prepare != nil {
		if err := prepare(job); err != nil {
			return nil, err
		}
	}

	_, err = q.db.Exec(`
		INSERT INTO jobs (id, type, status, user_id, file_name, params, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.Status, job.UserID, job.FileName, string(job.Params), job.Progress, job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	q.signal()
	return job, nil
}

// signal wakes the worker; one buffered wake covers any number of new rows
func (q *JobQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	job := &Job{}
	var params, result, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(&job.ID, &job.Type, &job.Status, &job.UserID, &job.FileName, &params, &job.Progress,
		&result, &errMsg, &job.CreatedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	if params.Valid {
		job.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		job.Result = json.RawMessage(result.String)
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	job, err := scanJob(q.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListJobs returns jobs ordered by creation time (newest first).
// userID 0 lists every user's jobs.
func (q *JobQueue) ListJobs(userID int64) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CancelJob cancels a pending or running job. A pending job never reaches
// the worker, so its listener is told here.
func (q *JobQueue) CancelJob(id string) error {
	now := time.Now().UTC()
	res, err := q.db.Exec(`UPDATE jobs SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		StatusCancelled, now, id, StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[job] job %s cancelled before start", id)
		q.mu.RLock()
		listener := q.listener
		q.mu.RUnlock()
		q.finished(listener, &Job{ID: id, Status: StatusCancelled}, context.Canceled)
		return nil
	}

	q.mu.Lock()
	cancelFn, running := q.cancels[id]
	delete(q.cancels, id)
	q.mu.Unlock()
	if !running {
		// Unknown or already finished
		_, err := q.GetJob(id)
		return err
	}

	// Row first, so the worker reads the cancelled status when the handler returns
	_, err = q.db.Exec(`UPDATE jobs SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		StatusCancelled, now, id, StatusRunning)
	cancelFn(ErrCancelled)
	return err
}

// UpdateProgress updates the progress of a running job
func (q *JobQueue) UpdateProgress(id string, progress float64) {
	if _, err := q.db.Exec("UPDATE jobs SET progress = ? WHERE id = ?", progress, id); err != nil {
		log.Printf("[job] update progress %s: %v", id, err)
	}
}

// Stop shuts down the queue and waits for the running job to return
func (q *JobQueue) Stop() {
	q.cancel()
	q.mu.RLock()
	started := q.started
	q.mu.RUnlock()
	if started {
		<-q.done
	}
}

// worker runs pending jobs oldest first, then sleeps until signalled
func (q *JobQueue) worker() {
	defer close(q.done)
	for {
		for q.ctx.Err() == nil {
			id, ok := q.nextPending()
			if !ok || !q.processJob(id) {
				break
			}
		}
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}
	}
}

func (q *JobQueue) nextPending() (string, bool) {
	var id string
	err := q.db.QueryRow(`SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC, rowid ASC LIMIT 1`,
		StatusPending).Scan(&id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("[job] load next job: %v", err)
		}
		return "", false
	}
	return id, true
}

// processJob runs a single job. It returns false when the job could not be
// moved out of pending, so the worker does not spin on it.
func (q *JobQueue) processJob(jobID string) bool {
	job, err := q.GetJob(jobID)
	if err != nil {
		log.Printf("[job] failed to load job %s: %v", jobID, err)
		return false
	}

	// Cancelled after it was selected
	if job.Status != StatusPending {
		return true
	}

	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	listener := q.listener
	q.mu.RUnlock()

	if !ok {
		log.Printf("[job] no handler for job type %s", job.Type)
		q.failJob(job, fmt.Sprintf("no handler for job type: %s", job.Type))
		q.finished(listener, job, fmt.Errorf("no handler for job type: %s", job.Type))
		return true
	}

	// Registered before the row turns running so CancelJob always finds it
	ctx, cancelFn := context.WithCancelCause(q.ctx)
	q.mu.Lock()
	q.cancels[job.ID] = cancelFn
	q.mu.Unlock()
	release := func() {
		q.mu.Lock()
		delete(q.cancels, job.ID)
		q.mu.Unlock()
		cancelFn(nil)
	}

	now := time.Now().UTC()
	job.StartedAt = &now
	job.Status = StatusRunning
	res, err := q.db.Exec("UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?",
		StatusRunning, now, job.ID, StatusPending)
	if err != nil {
		release()
		log.Printf("[job] mark running %s: %v", job.ID, err)
		return false
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Cancelled between load and start
		release()
		return true
	}

	err = handler(ctx, job, &reporter{queue: q, job: job, listener: listener})
	cancelled := errors.Is(context.Cause(ctx), ErrCancelled)
	release()

	switch {
	case q.ctx.Err() != nil:
		// Shutting down: leave the job running so resumeJobs picks it up again
		log.Printf("[job] job %s interrupted by shutdown", job.ID)
	case cancelled:
		log.Printf("[job] job %s cancelled", job.ID)
		job.Status = StatusCancelled
		q.finished(listener, job, context.Canceled)
	case err != nil:
		q.failJob(job, err.Error())
		q.finished(listener, job, err)
	case !q.completeJob(job):
		// Cancelled just as the handler finished
		q.finished(listener, job, context.Canceled)
	default:
		q.finished(listener, job, nil)
	}
	return true
}

func (q *JobQueue) finished(l Listener, job *Job, err error) {
	if l == nil {
		return
	}
	if fresh, gerr := q.GetJob(job.ID); gerr == nil {
		job = fresh
	}
	l.JobFinished(job, err)
}

// completeJob reports false when the row was no longer running
func (q *JobQueue) completeJob(job *Job) bool {
	now := time.Now().UTC()
	var result sql.NullString
	if len(job.Result) > 0 {
		result = sql.NullString{String: string(job.Result), Valid: true}
	}
	res, err := q.db.Exec("UPDATE jobs SET status = ?, progress = 1.0, result = ?, completed_at = ? WHERE id = ? AND status = ?",
		StatusCompleted, result, now, job.ID, StatusRunning)
	if err != nil {
		log.Printf("[job] complete %s: %v", job.ID, err)
		return true
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false
	}
	log.Printf("[job] job %s completed", job.ID)
	return true
}

func (q *JobQueue) failJob(job *Job, errMsg string) {
	now := time.Now().UTC()
	q.db.Exec("UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status IN (?, ?)",
		StatusFailed, errMsg, now, job.ID, StatusPending, StatusRunning)
	log.Printf("[job] job %s failed: %s", job.ID, errMsg)
}

// resumeJobs returns jobs interrupted by a restart to pending; the worker
// drains every pending row when it starts
func (q *JobQueue) resumeJobs() {
	if _, err := q.db.Exec("UPDATE jobs SET status = ? WHERE status = ?", StatusPending, StatusRunning); err != nil {
		log.Printf("[job] failed to resume jobs: %v", err)
		return
	}

	var count int
	if err := q.db.QueryRow("SELECT COUNT(*) FROM jobs WHERE status = ?", StatusPending).Scan(&count); err != nil {
		log.Printf("[job] count pending jobs: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[job] resumed %d pending jobs", count)
	}
}

// reporter forwards handler progress to the DB and messages to the listener
type reporter struct {
	queue    *JobQueue
	job      *Job
	listener Listener
}

func (r *reporter) Progress(fraction float64) {
	r.job.Progress = fraction
	r.queue.UpdateProgress(r.job.ID, fraction)
}

func (r *reporter) Notify(message string) {
	if r.listener != nil {
		r.listener.JobMessage(r.job, message)
	}
}
