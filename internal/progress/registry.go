// Package progress tracks in-flight ad-creation jobs and fans their
// progress out to any number of observers (typically SSE streams).
//
// Jobs live in memory only. A job becomes eligible for eviction once it
// reaches a terminal status and is removed after the registry TTL, so a
// late-connecting observer still sees the final state for a while.
// Subscriptions are keyed by job ID and may be created before the job is
// started; browsers open the progress stream before posting the request.
package progress

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether no further updates will follow.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// DefaultTTL is how long a terminal job stays queryable.
const DefaultTTL = 5 * time.Minute

// Default messages for the start and completion events.
const (
	DefaultStartMessage    = "Starting ad creation..."
	DefaultCompleteMessage = "Ad creation completed successfully!"
	NotFoundMessage        = "Job not found"
)

// ErrJobActive is returned by StartJob when a job with the same ID is still processing.
var ErrJobActive = errors.New("job already in progress")

// Update is a point-in-time view of a job, as delivered to subscribers.
type Update struct {
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	Status    Status `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// Job is the registry's record of one ad-creation request.
type Job struct {
	ID         string
	TotalSteps int
	Progress   int
	Message    string
	Status     Status
	StartTime  time.Time
}

type jobEntry struct {
	job   Job
	evict *time.Timer
}

type subscriber struct {
	id uint64
	fn func(Update)
}

// Registry is safe for concurrent use. Subscriber callbacks run on the
// goroutine that caused the update, outside the registry lock, and must not block.
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]*jobEntry
	subs    map[string][]subscriber
	nextSub uint64
	ttl     time.Duration
	now     func() time.Time
}

// NewRegistry creates an empty registry. A non-positive ttl uses DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		jobs: make(map[string]*jobEntry),
		subs: make(map[string][]subscriber),
		ttl:  ttl,
		now:  time.Now,
	}
}

// StartJob registers a new processing job at 0%. A terminal job with the
// same ID is replaced; an active one is not.
func (r *Registry) StartJob(id string, totalSteps int, message string) (Job, error) {
	if message == "" {
		message = DefaultStartMessage
	}

	r.mu.Lock()
	if existing, ok := r.jobs[id]; ok {
		if !existing.job.Status.Terminal() {
			r.mu.Unlock()
			return Job{}, ErrJobActive
		}
		if existing.evict != nil {
			existing.evict.Stop()
		}
	}
	job := Job{
		ID:         id,
		TotalSteps: totalSteps,
		Message:    message,
		Status:     StatusProcessing,
		StartTime:  r.now(),
	}
	r.jobs[id] = &jobEntry{job: job}
	update, subs := r.updateLocked(&job), r.subscribersLocked(id)
	r.mu.Unlock()

	log.Debug().Str("jobId", id).Int("totalSteps", totalSteps).Msg("Job started")
	deliver(subs, update)
	return job, nil
}

// SetProgress records a new percentage and message. Percent is clamped to
// [0,100] and never moves backwards. Unknown or terminal jobs are ignored.
func (r *Registry) SetProgress(id string, percent int, message string) {
	r.mu.Lock()
	entry, ok := r.jobs[id]
	if !ok || entry.job.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	percent = clamp(percent)
	if percent > entry.job.Progress {
		entry.job.Progress = percent
	}
	if message != "" {
		entry.job.Message = message
	}
	update, subs := r.updateLocked(&entry.job), r.subscribersLocked(id)
	r.mu.Unlock()

	deliver(subs, update)
}

// CompleteJob marks the job complete at 100% and schedules its eviction.
func (r *Registry) CompleteJob(id, message string) {
	if message == "" {
		message = DefaultCompleteMessage
	}
	r.finish(id, StatusComplete, message)
}

// ErrorJob marks the job failed with message and schedules its eviction.
func (r *Registry) ErrorJob(id, message string) {
	r.finish(id, StatusError, message)
}

func (r *Registry) finish(id string, status Status, message string) {
	r.mu.Lock()
	entry, ok := r.jobs[id]
	if !ok || entry.job.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	entry.job.Status = status
	entry.job.Message = message
	if status == StatusComplete {
		entry.job.Progress = 100
	}
	entry.evict = time.AfterFunc(r.ttl, func() { r.evict(id, entry) })
	update, subs := r.updateLocked(&entry.job), r.subscribersLocked(id)
	r.mu.Unlock()

	log.Debug().Str("jobId", id).Str("status", string(status)).Dur("ttl", r.ttl).Msg("Job finished")
	deliver(subs, update)
}

// evict removes the job only if it is still the entry that scheduled the
// eviction; a replacement job under the same ID is left alone.
func (r *Registry) evict(id string, entry *jobEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.jobs[id]; ok && current == entry {
		delete(r.jobs, id)
		log.Trace().Str("jobId", id).Msg("Job evicted")
	}
}

// Subscribe registers fn for updates to the job with the given ID and
// returns a function that removes the subscription. The returned function
// is safe to call more than once.
func (r *Registry) Subscribe(id string, fn func(Update)) (unsubscribe func()) {
	r.mu.Lock()
	r.nextSub++
	subID := r.nextSub
	r.subs[id] = append(r.subs[id], subscriber{id: subID, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			list := r.subs[id]
			for i, s := range list {
				if s.id == subID {
					list = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(list) == 0 {
				delete(r.subs, id)
			} else {
				r.subs[id] = list
			}
		})
	}
}

// Snapshot returns the current state of the job, or a "Job not found"
// error placeholder when the ID is unknown or already evicted.
func (r *Registry) Snapshot(id string) Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok {
		return Update{
			Progress:  0,
			Message:   NotFoundMessage,
			Status:    StatusError,
			Timestamp: r.now().UnixMilli(),
		}
	}
	return r.updateLocked(&entry.job)
}

// Get returns a copy of the job record.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return entry.job, true
}

// Len reports the number of jobs currently held (active or awaiting eviction).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *Registry) updateLocked(job *Job) Update {
	return Update{
		Progress:  job.Progress,
		Message:   job.Message,
		Status:    job.Status,
		Timestamp: r.now().UnixMilli(),
	}
}

func (r *Registry) subscribersLocked(id string) []func(Update) {
	list := r.subs[id]
	if len(list) == 0 {
		return nil
	}
	fns := make([]func(Update), len(list))
	for i, s := range list {
		fns[i] = s.fn
	}
	return fns
}

func deliver(fns []func(Update), u Update) {
	for _, fn := range fns {
		fn(u)
	}
}

func clamp(p int) int {
	return max(0, min(100, p))
}
