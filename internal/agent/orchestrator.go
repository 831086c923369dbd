// Package agent runs registered background agents on a single-process,
// in-memory priority queue. Jobs are fed by cron schedules, application
// events and manual triggers, drained by a polling loop bounded by a fixed
// concurrency ceiling. Job state is intentionally not persisted: a restart
// clears the queue and the next cron tick or event repopulates it.
package agent

import (
	"context"
	"fmt"
	"log"
	"path"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// Scheduling defaults. All overridable through Config.
const (
	DefaultTick        = 100 * time.Millisecond
	DefaultConcurrency = 4
	DefaultDebounce    = 30 * time.Second
	DefaultHealthEvery = 30 * time.Second

	// UrgentPriority marks jobs that bypass the debounce window
	UrgentPriority = 20
	// ShedPriority and ShedQueueDepth: triggers at or below this urgency are
	// dropped while the queue holds this many jobs
	ShedPriority   = 70
	ShedQueueDepth = 25

	// MaxRetries re-enqueues a failed job this many times, each PriorityBump
	// more urgent than the last attempt
	MaxRetries   = 2
	PriorityBump = 10
)

// Spec describes a registered agent
type Spec struct {
	Name        string
	Description string
	Enabled     bool

	// Priority is the default urgency of this agent's jobs, lower = more
	// urgent
	Priority int

	// TimeLimit is a soft per-run limit. The health check logs overruns but
	// never cancels the job.
	TimeLimit time.Duration

	// Schedule is an optional cron expression
	Schedule string

	// EventPatterns are path.Match globs over event types, e.g.
	// "record.*" or "approval.decided"
	EventPatterns []string

	Run func(ctx context.Context, job *Job) error
}

// Job is one pending or running agent invocation
type Job struct {
	ID            string
	Agent         string
	Priority      int
	Reason        string
	UserInitiated bool
	Payload       map[string]interface{}
	Attempts      int
	EnqueuedAt    time.Time
}

// TriggerRequest asks the orchestrator to enqueue a job
type TriggerRequest struct {
	Agent  string
	Reason string

	// Priority overrides the agent default when > 0
	Priority int

	// UserInitiated triggers bypass the debounce window
	UserInitiated bool

	Payload map[string]interface{}
}

// Config tunes the orchestrator. Zero values fall back to the defaults.
type Config struct {
	Tick           time.Duration
	Concurrency    int
	DebounceWindow time.Duration
	HealthEvery    time.Duration
}

type runningJob struct {
	job       *Job
	startedAt time.Time
}

// Orchestrator owns the queue, the registry and the drain loop
type Orchestrator struct {
	cfg     Config
	metrics *Metrics
	cron    *cron.Cron

	mu           sync.Mutex
	agents       map[string]*Spec
	pending      []*Job
	running      map[string]*runningJob
	lastEnqueued map[string]time.Time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates an orchestrator with registered metrics
func New(cfg Config) *Orchestrator {
	return newOrchestrator(cfg, NewMetrics())
}

func newOrchestrator(cfg Config, metrics *Metrics) *Orchestrator {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounce
	}
	if cfg.HealthEvery <= 0 {
		cfg.HealthEvery = DefaultHealthEvery
	}

	return &Orchestrator{
		cfg:          cfg,
		metrics:      metrics,
		cron:         cron.New(),
		agents:       make(map[string]*Spec),
		running:      make(map[string]*runningJob),
		lastEnqueued: make(map[string]time.Time),
	}
}

// Register adds an agent to the registry. Must be called before Start.
func (o *Orchestrator) Register(spec *Spec) error {
	if spec.Name == "" {
		return apperrors.NewValidationError("name", "agent name is required")
	}
	if spec.Run == nil {
		return apperrors.NewValidationError("run", "agent run function is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return fmt.Errorf("cannot register agent %s after start", spec.Name)
	}
	if _, exists := o.agents[spec.Name]; exists {
		return apperrors.NewConflictError("Agent", "name", spec.Name)
	}

	o.agents[spec.Name] = spec
	return nil
}

// Agents lists the registered specs
func (o *Orchestrator) Agents() []*Spec {
	o.mu.Lock()
	defer o.mu.Unlock()

	specs := make([]*Spec, 0, len(o.agents))
	for _, s := range o.agents {
		specs = append(specs, s)
	}
	return specs
}

// Start launches the drain loop, the health check and the cron schedules
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for name, spec := range o.agents {
		if spec.Schedule == "" || !spec.Enabled {
			continue
		}
		agentName := name
		_, err := o.cron.AddFunc(spec.Schedule, func() {
			if _, err := o.Trigger(TriggerRequest{Agent: agentName, Reason: "cron"}); err != nil {
				log.Printf("⚠️ Cron trigger for agent %s failed: %v", agentName, err)
			}
		})
		if err != nil {
			o.mu.Unlock()
			cancel()
			return fmt.Errorf("invalid schedule for agent %s: %w", name, err)
		}
	}
	o.mu.Unlock()

	o.cron.Start()

	o.wg.Add(2)
	go o.drainLoop(runCtx)
	go o.healthLoop(runCtx)

	log.Printf("🤖 Agent orchestrator started (%d agents, ceiling %d)", len(o.agents), o.cfg.Concurrency)
	return nil
}

// Stop halts the cron schedules and the loops. Running jobs finish on their
// own; they are not cancelled.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	o.cron.Stop()
	o.cancel()
	o.wg.Wait()
}

// Trigger enqueues a job. Returns false when the trigger was dropped by
// debouncing or load shedding; that is normal operation, not an error.
func (o *Orchestrator) Trigger(req TriggerRequest) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	spec, ok := o.agents[req.Agent]
	if !ok {
		return false, apperrors.NewNotFoundError("Agent", req.Agent)
	}
	if !spec.Enabled {
		return false, nil
	}

	priority := req.Priority
	if priority <= 0 {
		priority = spec.Priority
	}

	// Load shedding: drop unimportant work while the queue is deep
	if priority >= ShedPriority && len(o.pending) >= ShedQueueDepth {
		o.metrics.shed.WithLabelValues(req.Agent).Inc()
		log.Printf("🤖 Shed trigger for agent %s (queue depth %d)", req.Agent, len(o.pending))
		return false, nil
	}

	// Debounce: repeat triggers for the same agent inside the window are
	// dropped unless urgent or user-initiated
	if !req.UserInitiated && priority >= UrgentPriority {
		if last, seen := o.lastEnqueued[req.Agent]; seen && time.Since(last) < o.cfg.DebounceWindow {
			o.metrics.debounced.WithLabelValues(req.Agent).Inc()
			return false, nil
		}
	}

	o.enqueueLocked(&Job{
		ID:            utils.GenerateID(),
		Agent:         req.Agent,
		Priority:      priority,
		Reason:        req.Reason,
		UserInitiated: req.UserInitiated,
		Payload:       req.Payload,
		EnqueuedAt:    time.Now(),
	})
	return true, nil
}

// HandleEvent fans an application event out to agents whose patterns match
// the event type. Wired as an event bus subscriber.
func (o *Orchestrator) HandleEvent(eventType string, payload map[string]interface{}) {
	o.mu.Lock()
	var matched []string
	for name, spec := range o.agents {
		if !spec.Enabled {
			continue
		}
		for _, pattern := range spec.EventPatterns {
			if ok, _ := path.Match(pattern, eventType); ok {
				matched = append(matched, name)
				break
			}
		}
	}
	o.mu.Unlock()

	for _, name := range matched {
		if _, err := o.Trigger(TriggerRequest{
			Agent:   name,
			Reason:  "event:" + eventType,
			Payload: payload,
		}); err != nil {
			log.Printf("⚠️ Event trigger for agent %s failed: %v", name, err)
		}
	}
}

// PendingCount returns the queue depth
func (o *Orchestrator) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// RunningCount returns the number of in-flight jobs
func (o *Orchestrator) RunningCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.running)
}

// enqueueLocked appends a job and stamps the debounce clock. Caller holds mu.
func (o *Orchestrator) enqueueLocked(job *Job) {
	o.pending = append(o.pending, job)
	o.lastEnqueued[job.Agent] = time.Now()
	o.metrics.pending.Set(float64(len(o.pending)))
}

func (o *Orchestrator) drainLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.dispatch(ctx)
		}
	}
}

// dispatch launches pending jobs while capacity remains. Jobs run
// fire-and-forget; completion is observed by the goroutine itself.
func (o *Orchestrator) dispatch(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for len(o.running) < o.cfg.Concurrency {
		job := o.popLocked()
		if job == nil {
			return
		}

		spec := o.agents[job.Agent]
		o.running[job.ID] = &runningJob{job: job, startedAt: time.Now()}
		o.metrics.running.Set(float64(len(o.running)))

		o.wg.Add(1)
		go o.execute(ctx, spec, job)
	}
}

// popLocked removes and returns the most urgent job: lowest priority number,
// earliest enqueue on ties. Caller holds mu.
func (o *Orchestrator) popLocked() *Job {
	if len(o.pending) == 0 {
		return nil
	}

	best := 0
	for i, j := range o.pending[1:] {
		idx := i + 1
		if j.Priority < o.pending[best].Priority ||
			(j.Priority == o.pending[best].Priority && j.EnqueuedAt.Before(o.pending[best].EnqueuedAt)) {
			best = idx
		}
	}

	job := o.pending[best]
	o.pending = append(o.pending[:best], o.pending[best+1:]...)
	o.metrics.pending.Set(float64(len(o.pending)))
	return job
}

func (o *Orchestrator) execute(ctx context.Context, spec *Spec, job *Job) {
	defer o.wg.Done()

	start := time.Now()
	err := o.runSafely(ctx, spec, job)
	elapsed := time.Since(start)
	o.metrics.duration.WithLabelValues(job.Agent).Observe(elapsed.Seconds())

	o.mu.Lock()
	delete(o.running, job.ID)
	o.metrics.running.Set(float64(len(o.running)))

	if err == nil {
		o.mu.Unlock()
		o.metrics.runsTotal.WithLabelValues(job.Agent, "ok").Inc()
		log.Printf("🤖 Agent %s finished in %s (reason: %s)", job.Agent, elapsed.Round(time.Millisecond), job.Reason)
		return
	}

	job.Attempts++
	if job.Attempts <= MaxRetries {
		// Re-enqueue more urgently; retries skip the debounce check
		job.Priority -= PriorityBump
		if job.Priority < 0 {
			job.Priority = 0
		}
		job.EnqueuedAt = time.Now()
		o.enqueueLocked(job)
		o.mu.Unlock()

		o.metrics.runsTotal.WithLabelValues(job.Agent, "retry").Inc()
		log.Printf("⚠️ Agent %s failed (attempt %d/%d), re-enqueued at priority %d: %v",
			job.Agent, job.Attempts, MaxRetries+1, job.Priority, err)
		return
	}
	o.mu.Unlock()

	o.metrics.runsTotal.WithLabelValues(job.Agent, "failed").Inc()
	log.Printf("❌ Agent %s failed permanently after %d attempts: %v", job.Agent, job.Attempts, err)
}

// runSafely converts a panicking agent into an error so one bad agent
// cannot take down the process
func (o *Orchestrator) runSafely(ctx context.Context, spec *Spec, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return spec.Run(ctx, job)
}

func (o *Orchestrator) healthLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.HealthEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.reportHealth()
		}
	}
}

// reportHealth logs queue state and flags overrunning jobs. Log only: a
// long-running job is never killed.
func (o *Orchestrator) reportHealth() {
	o.mu.Lock()
	pendingCount := len(o.pending)
	runningCount := len(o.running)

	type overrun struct {
		agent   string
		elapsed time.Duration
		limit   time.Duration
	}
	var overruns []overrun
	for _, rj := range o.running {
		spec := o.agents[rj.job.Agent]
		if spec.TimeLimit > 0 {
			if elapsed := time.Since(rj.startedAt); elapsed > spec.TimeLimit {
				overruns = append(overruns, overrun{rj.job.Agent, elapsed, spec.TimeLimit})
			}
		}
	}
	o.mu.Unlock()

	log.Printf("🤖 Orchestrator health: %d pending, %d running", pendingCount, runningCount)
	for _, v := range overruns {
		log.Printf("⚠️ Agent %s running %s past its %s limit", v.agent, v.elapsed.Round(time.Second), v.limit)
	}
}
