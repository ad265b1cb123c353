package restore

import (
	"sync"
	"time"

	"github.com/bytedacia/guardian/internal/logging"
)

// ApplyFunc reapplies a permission snapshot to a guild. It runs outside
// the scheduler lock and may block on platform I/O.
type ApplyFunc func(guildID string, snapshot map[string]int64)

// Job is one pending permission rollback. At most one job exists per
// guild; scheduling a new one cancels the previous timer first.
type Job struct {
	GuildID   string
	Snapshot  map[string]int64
	FireAt    time.Time
	cancelled bool
	fired     bool
	timer     *time.Timer
	apply     ApplyFunc
}

type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	onFired func(guildID string)
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		jobs: make(map[string]*Job),
	}
}

// OnFire registers the listener invoked after a job has applied its
// snapshot. The combat controller uses this for COOLDOWN -> IDLE.
func (s *Scheduler) OnFire(listener func(guildID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFired = listener
}

func (s *Scheduler) Schedule(guildID string, snapshot map[string]int64, delay time.Duration, apply ApplyFunc) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[guildID]; ok {
		existing.cancelled = true
		existing.timer.Stop()
		logging.Info("Replaced pending restore job for guild %s", guildID)
	}

	snapCopy := make(map[string]int64, len(snapshot))
	for roleID, perms := range snapshot {
		snapCopy[roleID] = perms
	}

	job := &Job{
		GuildID:  guildID,
		Snapshot: snapCopy,
		FireAt:   time.Now().Add(delay),
		apply:    apply,
	}
	job.timer = time.AfterFunc(delay, func() { s.fire(job) })
	s.jobs[guildID] = job

	logging.Info("Scheduled permission restore for guild %s in %v", guildID, delay)
	return job
}

// fire runs when the timer elapses. Cancellation is checked under the
// lock so a cancelled or replaced job never mutates permissions.
func (s *Scheduler) fire(job *Job) {
	s.mu.Lock()
	if job.cancelled || job.fired || s.jobs[job.GuildID] != job {
		s.mu.Unlock()
		logging.Warn("Discarded stale restore job for guild %s", job.GuildID)
		return
	}
	job.fired = true
	delete(s.jobs, job.GuildID)
	listener := s.onFired
	s.mu.Unlock()

	if job.apply != nil {
		job.apply(job.GuildID, job.Snapshot)
	}
	if listener != nil {
		listener(job.GuildID)
	}
}

// Cancel stops a pending job. Idempotent; returns whether a live job was
// cancelled.
func (s *Scheduler) Cancel(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[guildID]
	if !ok {
		return false
	}
	job.cancelled = true
	job.timer.Stop()
	delete(s.jobs, guildID)
	logging.Info("Cancelled restore job for guild %s", guildID)
	return true
}

// FireNow applies a pending job immediately instead of waiting for its
// timer. Returns whether a job was fired.
func (s *Scheduler) FireNow(guildID string) bool {
	s.mu.Lock()
	job, ok := s.jobs[guildID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	job.timer.Stop()
	s.fire(job)
	return true
}

func (s *Scheduler) Pending(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[guildID]
	return ok
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for guildID, job := range s.jobs {
		job.cancelled = true
		job.timer.Stop()
		delete(s.jobs, guildID)
	}
}
