package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrchestrator(cfg Config) *Orchestrator {
	if cfg.Tick == 0 {
		cfg.Tick = 5 * time.Millisecond
	}
	if cfg.HealthEvery == 0 {
		cfg.HealthEvery = time.Hour
	}
	return newOrchestrator(cfg, noopMetrics())
}

func noopSpec(name string, priority int) *Spec {
	return &Spec{
		Name:     name,
		Enabled:  true,
		Priority: priority,
		Run:      func(ctx context.Context, job *Job) error { return nil },
	}
}

func TestRegisterValidation(t *testing.T) {
	o := testOrchestrator(Config{})

	assert.Error(t, o.Register(&Spec{Name: "", Run: func(ctx context.Context, job *Job) error { return nil }}))
	assert.Error(t, o.Register(&Spec{Name: "no-run"}))

	require.NoError(t, o.Register(noopSpec("dup", 50)))
	assert.Error(t, o.Register(noopSpec("dup", 50)), "duplicate registration must fail")
}

func TestTriggerUnknownAgent(t *testing.T) {
	o := testOrchestrator(Config{})

	_, err := o.Trigger(TriggerRequest{Agent: "ghost"})
	assert.Error(t, err)
}

func TestTriggerDisabledAgentIsDropped(t *testing.T) {
	o := testOrchestrator(Config{})
	spec := noopSpec("off", 50)
	spec.Enabled = false
	require.NoError(t, o.Register(spec))

	enqueued, err := o.Trigger(TriggerRequest{Agent: "off"})
	assert.NoError(t, err)
	assert.False(t, enqueued)
	assert.Equal(t, 0, o.PendingCount())
}

func TestDebounce(t *testing.T) {
	o := testOrchestrator(Config{DebounceWindow: time.Minute})
	require.NoError(t, o.Register(noopSpec("scoring", 50)))

	enqueued, err := o.Trigger(TriggerRequest{Agent: "scoring", Reason: "first"})
	require.NoError(t, err)
	assert.True(t, enqueued)

	// Repeat trigger inside the window is dropped
	enqueued, err = o.Trigger(TriggerRequest{Agent: "scoring", Reason: "repeat"})
	require.NoError(t, err)
	assert.False(t, enqueued)
	assert.Equal(t, 1, o.PendingCount())

	// User-initiated triggers bypass the window
	enqueued, err = o.Trigger(TriggerRequest{Agent: "scoring", Reason: "manual", UserInitiated: true})
	require.NoError(t, err)
	assert.True(t, enqueued)

	// Urgent triggers bypass the window too
	enqueued, err = o.Trigger(TriggerRequest{Agent: "scoring", Reason: "urgent", Priority: UrgentPriority - 1})
	require.NoError(t, err)
	assert.True(t, enqueued)
	assert.Equal(t, 3, o.PendingCount())
}

func TestLoadShedding(t *testing.T) {
	o := testOrchestrator(Config{})
	require.NoError(t, o.Register(noopSpec("sweep", 50)))

	for i := 0; i < ShedQueueDepth; i++ {
		enqueued, err := o.Trigger(TriggerRequest{Agent: "sweep", UserInitiated: true})
		require.NoError(t, err)
		require.True(t, enqueued)
	}

	// A low-priority trigger is shed while the queue is deep
	enqueued, err := o.Trigger(TriggerRequest{Agent: "sweep", Priority: ShedPriority, UserInitiated: true})
	assert.NoError(t, err)
	assert.False(t, enqueued)

	// An ordinary-priority trigger still gets in
	enqueued, err = o.Trigger(TriggerRequest{Agent: "sweep", Priority: 50, UserInitiated: true})
	assert.NoError(t, err)
	assert.True(t, enqueued)
}

func TestPopOrdering(t *testing.T) {
	o := testOrchestrator(Config{})
	require.NoError(t, o.Register(noopSpec("a", 50)))
	require.NoError(t, o.Register(noopSpec("b", 50)))
	require.NoError(t, o.Register(noopSpec("c", 50)))

	_, err := o.Trigger(TriggerRequest{Agent: "a", Priority: 60})
	require.NoError(t, err)
	_, err = o.Trigger(TriggerRequest{Agent: "b", Priority: 10})
	require.NoError(t, err)
	_, err = o.Trigger(TriggerRequest{Agent: "c", Priority: 60})
	require.NoError(t, err)

	o.mu.Lock()
	first := o.popLocked()
	second := o.popLocked()
	third := o.popLocked()
	empty := o.popLocked()
	o.mu.Unlock()

	assert.Equal(t, "b", first.Agent, "lowest priority number runs first")
	assert.Equal(t, "a", second.Agent, "FIFO within equal priority")
	assert.Equal(t, "c", third.Agent)
	assert.Nil(t, empty)
}

func TestConcurrencyCeiling(t *testing.T) {
	o := testOrchestrator(Config{Concurrency: 2})

	release := make(chan struct{})
	var started atomic.Int32
	spec := &Spec{
		Name:     "slow",
		Enabled:  true,
		Priority: 50,
		Run: func(ctx context.Context, job *Job) error {
			started.Add(1)
			<-release
			return nil
		},
	}
	require.NoError(t, o.Register(spec))

	for i := 0; i < 5; i++ {
		_, err := o.Trigger(TriggerRequest{Agent: "slow", UserInitiated: true})
		require.NoError(t, err)
	}

	o.dispatch(context.Background())

	assert.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, o.RunningCount())
	assert.Equal(t, 3, o.PendingCount())

	// Dispatching again while full launches nothing
	o.dispatch(context.Background())
	assert.Equal(t, 2, o.RunningCount())

	close(release)
	assert.Eventually(t, func() bool { return o.RunningCount() == 0 || started.Load() > 2 }, time.Second, 5*time.Millisecond)
}

func TestRetryWithPriorityBump(t *testing.T) {
	o := testOrchestrator(Config{})

	var attempts atomic.Int32
	spec := &Spec{
		Name:     "flaky",
		Enabled:  true,
		Priority: 50,
		Run: func(ctx context.Context, job *Job) error {
			attempts.Add(1)
			return fmt.Errorf("boom")
		},
	}
	require.NoError(t, o.Register(spec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, o.Start(ctx))
	defer o.Stop()

	_, err := o.Trigger(TriggerRequest{Agent: "flaky", UserInitiated: true})
	require.NoError(t, err)

	// Initial run plus MaxRetries re-enqueues, then the job is dropped
	assert.Eventually(t, func() bool { return attempts.Load() == int32(MaxRetries+1) }, 3*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(MaxRetries+1), attempts.Load(), "no further retries after the cap")
	assert.Equal(t, 0, o.PendingCount())
}

func TestPanickingAgentIsContained(t *testing.T) {
	o := testOrchestrator(Config{})

	var attempts atomic.Int32
	spec := &Spec{
		Name:     "panicky",
		Enabled:  true,
		Priority: 50,
		Run: func(ctx context.Context, job *Job) error {
			attempts.Add(1)
			panic("kaboom")
		},
	}
	require.NoError(t, o.Register(spec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, o.Start(ctx))
	defer o.Stop()

	_, err := o.Trigger(TriggerRequest{Agent: "panicky", UserInitiated: true})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return attempts.Load() == int32(MaxRetries+1) }, 3*time.Second, 10*time.Millisecond)
}

func TestHandleEventPatternMatch(t *testing.T) {
	o := testOrchestrator(Config{})

	recordsAgent := noopSpec("on-records", 50)
	recordsAgent.EventPatterns = []string{"record.*"}
	require.NoError(t, o.Register(recordsAgent))

	approvalAgent := noopSpec("on-approvals", 50)
	approvalAgent.EventPatterns = []string{"approval.decided"}
	require.NoError(t, o.Register(approvalAgent))

	o.HandleEvent("record.created", map[string]interface{}{"record_id": "lead-1"})
	assert.Equal(t, 1, o.PendingCount())

	o.HandleEvent("approval.decided", nil)
	assert.Equal(t, 2, o.PendingCount())

	o.HandleEvent("system.startup", nil)
	assert.Equal(t, 2, o.PendingCount(), "unmatched events enqueue nothing")
}

func TestCompletedJobRuns(t *testing.T) {
	o := testOrchestrator(Config{})

	done := make(chan *Job, 1)
	spec := &Spec{
		Name:     "echo",
		Enabled:  true,
		Priority: 50,
		Run: func(ctx context.Context, job *Job) error {
			done <- job
			return nil
		},
	}
	require.NoError(t, o.Register(spec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, o.Start(ctx))
	defer o.Stop()

	_, err := o.Trigger(TriggerRequest{
		Agent:         "echo",
		Reason:        "manual",
		UserInitiated: true,
		Payload:       map[string]interface{}{"record_id": "lead-1"},
	})
	require.NoError(t, err)

	select {
	case job := <-done:
		assert.Equal(t, "echo", job.Agent)
		assert.Equal(t, "manual", job.Reason)
		assert.Equal(t, "lead-1", job.Payload["record_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}
