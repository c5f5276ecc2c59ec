package jobs

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/providers/did"
)

// ErrBusy is returned while an earlier job is still in flight.
var ErrBusy = errors.New("jobs: a job is already in flight")

const janitorInterval = time.Minute

// Synthesizer is the provider surface the manager drives.
type Synthesizer interface {
	CreateTalk(ctx context.Context, req did.TalkRequest) (*did.Talk, error)
	Await(ctx context.Context, talkID string, opts did.AwaitOptions) (*did.TalkResult, error)
}

// Job tracks one script submission through the provider lifecycle.
type Job struct {
	ID        string
	TalkID    string
	Script    string
	VoiceID   string
	Status    did.Status
	VideoURL  string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the job reached a final status.
func (j Job) Terminal() bool { return j.Status.IsTerminal() }

// Options configures the manager.
type Options struct {
	Client       Synthesizer
	PollInterval time.Duration
	PollTimeout  time.Duration
	Retention    time.Duration
	Logger       *infra.Logger
}

// Statuses only move forward; done and error share the top rank so neither
// can replace the other.
var statusRank = map[did.Status]int{
	did.StatusCreated: 0,
	did.StatusStarted: 1,
	did.StatusDone:    2,
	did.StatusError:   2,
}

// Manager keeps the in-memory registry of synthesis jobs and runs one
// background watcher per accepted submission. A single job may be in flight
// at a time; nothing is persisted.
type Manager struct {
	client       Synthesizer
	logger       *infra.Logger
	pollInterval time.Duration
	pollTimeout  time.Duration
	retention    time.Duration

	// startMu serializes submissions so the busy check and the provider
	// call cannot interleave.
	startMu sync.Mutex

	mu     sync.Mutex
	jobs   map[string]*Job
	active string
	ctx    context.Context
}

// NewManager constructs a manager with sane defaults.
func NewManager(opts Options) *Manager {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = time.Hour
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Manager{
		client:       opts.Client,
		logger:       logger,
		pollInterval: pollInterval,
		pollTimeout:  opts.PollTimeout,
		retention:    retention,
		jobs:         make(map[string]*Job),
	}
}

// Run blocks until ctx is cancelled, pruning expired terminal jobs on a
// fixed cadence. Watchers started after Run inherit ctx, so cancelling it
// also stops in-flight polling.
func (m *Manager) Run(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.prune(time.Now())
		}
	}
}

// Start submits the script and registers a job for it. Precondition checks
// (credentials, empty script) live in the provider client so its typed
// errors map directly to transport responses.
func (m *Manager) Start(ctx context.Context, script, voiceID string) (Job, error) {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if active, busy := m.activeJob(); busy {
		m.logger.Debug().Str("job_id", active).Msg("jobs: rejected submission while busy")
		metrics.TalksSubmittedTotal.WithLabelValues("busy").Inc()
		return Job{}, ErrBusy
	}

	talk, err := m.client.CreateTalk(ctx, did.TalkRequest{Script: script, VoiceID: voiceID})
	if err != nil {
		metrics.TalksSubmittedTotal.WithLabelValues(submitOutcome(err)).Inc()
		return Job{}, err
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		TalkID:    talk.ID,
		Script:    script,
		VoiceID:   voiceID,
		Status:    did.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The snapshot is copied before the watcher spawns; once it runs, the
	// registry entry may only be read under mu.
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.active = job.ID
	snapshot := *job
	m.mu.Unlock()

	metrics.TalksSubmittedTotal.WithLabelValues("accepted").Inc()
	metrics.JobsInFlight.Inc()
	m.logger.Info().Str("job_id", job.ID).Str("talk_id", talk.ID).Msg("jobs: talk submitted")

	go m.watch(job.ID, talk.ID)
	return snapshot, nil
}

// Get returns a snapshot of the job. Reads after a terminal status keep
// returning the cached terminal state until the janitor prunes it.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (m *Manager) watch(jobID, talkID string) {
	defer metrics.JobsInFlight.Dec()
	result, err := m.client.Await(m.watchCtx(), talkID, did.AwaitOptions{
		Interval: m.pollInterval,
		Timeout:  m.pollTimeout,
		Observer: func(st did.TalkStatus) { m.apply(jobID, st) },
	})
	if err != nil {
		m.fail(jobID, err)
		return
	}
	m.complete(jobID, result.URL)
}

func (m *Manager) watchCtx() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		return m.ctx
	}
	return context.Background()
}

func (m *Manager) activeJob() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == "" {
		return "", false
	}
	if j, ok := m.jobs[m.active]; ok && !j.Status.IsTerminal() {
		return m.active, true
	}
	m.active = ""
	return "", false
}

// apply records one observed poll. Terminal states are sticky and unknown or
// backward statuses never replace the current one.
func (m *Manager) apply(jobID string, st did.TalkStatus) {
	metrics.StatusPollsTotal.Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.Status.IsTerminal() {
		return
	}
	rank, known := statusRank[st.Status]
	if !known || rank < statusRank[j.Status] {
		return
	}
	j.Status = st.Status
	if st.ResultURL != "" {
		j.VideoURL = st.ResultURL
	}
	if st.Status == did.StatusError && st.Message != "" {
		j.Error = st.Message
	}
	j.UpdatedAt = time.Now()
}

func (m *Manager) complete(jobID, url string) {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	if ok {
		j.Status = did.StatusDone
		j.VideoURL = url
		j.Error = ""
		j.UpdatedAt = time.Now()
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	metrics.JobDurationSeconds.WithLabelValues("done").Observe(time.Since(j.CreatedAt).Seconds())
	m.logger.Info().Str("job_id", jobID).Msg("jobs: video ready")
}

func (m *Manager) fail(jobID string, err error) {
	msg := failureMessage(err)
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	if ok {
		j.Status = did.StatusError
		j.Error = msg
		j.UpdatedAt = time.Now()
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	metrics.JobDurationSeconds.WithLabelValues("error").Observe(time.Since(j.CreatedAt).Seconds())
	m.logger.Error().Err(err).Str("job_id", jobID).Msg("jobs: talk failed")
}

func (m *Manager) prune(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, j := range m.jobs {
		if j.Status.IsTerminal() && now.Sub(j.UpdatedAt) > m.retention {
			delete(m.jobs, id)
			if m.active == id {
				m.active = ""
			}
			m.logger.Debug().Str("job_id", id).Msg("jobs: pruned expired job")
		}
	}
}

func submitOutcome(err error) string {
	switch {
	case errors.Is(err, did.ErrEmptyScript):
		return "invalid"
	case errors.Is(err, did.ErrMissingAPIKey):
		return "unconfigured"
	default:
		return "rejected"
	}
}

func failureMessage(err error) string {
	var pollErr *did.PollError
	switch {
	case errors.Is(err, did.ErrAwaitTimeout):
		return "video generation timed out"
	case errors.Is(err, context.Canceled):
		return "video generation cancelled"
	case errors.As(err, &pollErr) && pollErr.Message != "":
		return pollErr.Message
	default:
		return "failed to retrieve the generated video"
	}
}
