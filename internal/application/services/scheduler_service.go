package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
)

// Scheduler housekeeping defaults
const (
	SchedulerInterval    = 60 * time.Second
	OutboxRetention      = 7 * 24 * time.Hour
	ExpirySweepBatchSize = 100
)

// SchedulerService drives time-based work: due scheduled workflows, the
// contract expiry sweep and outbox cleanup. The is_running lock on each
// workflow keeps multiple instances from double-firing a rule.
type SchedulerService struct {
	db        *database.Connection
	workflows *persistence.WorkflowRepository
	wfService *WorkflowService
	contracts *ContractService
	outbox    *OutboxService

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSchedulerService creates a new SchedulerService
func NewSchedulerService(db *database.Connection, wfService *WorkflowService,
	contracts *ContractService, outbox *OutboxService) *SchedulerService {
	return &SchedulerService{
		db:        db,
		workflows: persistence.NewWorkflowRepository(db.DB()),
		wfService: wfService,
		contracts: contracts,
		outbox:    outbox,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the scheduler loop
func (s *SchedulerService) Start(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("🔄 Scheduler started with %v interval", interval)

		for {
			select {
			case <-s.stopCh:
				log.Printf("🔄 Scheduler stopping...")
				return
			case <-ticker.C:
				s.Tick(context.Background())
			}
		}
	}()
}

// Stop shuts the scheduler down gracefully
func (s *SchedulerService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	log.Printf("🔄 Scheduler stopped")
}

// Tick runs one scheduler pass
func (s *SchedulerService) Tick(ctx context.Context) {
	if err := s.runDueWorkflows(ctx); err != nil {
		log.Printf("⚠️ Scheduler workflow pass failed: %v", err)
	}
	if _, err := s.contracts.ExpireOverdue(ctx, ExpirySweepBatchSize); err != nil {
		log.Printf("⚠️ Contract expiry sweep failed: %v", err)
	}
	if removed, err := s.outbox.CleanupProcessed(ctx, OutboxRetention); err != nil {
		log.Printf("⚠️ Outbox cleanup failed: %v", err)
	} else if removed > 0 {
		log.Printf("🔄 Cleaned up %d processed outbox events", removed)
	}
}

// runDueWorkflows claims and runs every due scheduled rule
func (s *SchedulerService) runDueWorkflows(ctx context.Context) error {
	due, err := s.workflows.FindDueScheduled(ctx, time.Now(), 50)
	if err != nil {
		return err
	}

	for _, w := range due {
		acquired, err := s.workflows.TryAcquireRun(ctx, w.ID)
		if err != nil {
			log.Printf("⚠️ Failed to acquire run lock for workflow %s: %v", w.Name, err)
			continue
		}
		if !acquired {
			continue
		}

		ranAt := time.Now()
		next, runErr := s.wfService.RunScheduled(ctx, w)
		if runErr != nil {
			log.Printf("❌ Scheduled workflow %s failed: %v", w.Name, runErr)
		}
		if err := s.workflows.FinishRun(ctx, w.ID, ranAt, next); err != nil {
			log.Printf("⚠️ Failed to release run lock for workflow %s: %v", w.Name, err)
		}
	}
	return nil
}
