package poller

import (
	"context"
	"sync"

	"api-poller/core/logger"
	"api-poller/core/paging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run executes a whole poller run in process: prepare, report the batch,
// fetch every job until it reaches a terminal state, then report the batch
// again. Jobs run concurrently up to the configured limit; the pages of one
// job are fetched in order.
func (s *Service) Run(ctx context.Context, req PrepareRequest) (*RunResult, error) {
	prepared, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	tasks, err := s.ReportBatch(ctx, prepared.Tasks)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		BatchID: prepared.Batch.ID,
		Jobs:    len(tasks),
		States:  make(map[string]paging.State, len(tasks)),
	}
	finals := make([]Task, len(tasks))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, task := range tasks {
		g.Go(func() error {
			final, stats, err := s.runJob(gctx, task)

			mu.Lock()
			defer mu.Unlock()
			finals[i] = final
			result.States[final.Job.ID] = final.State
			result.Pages += stats.pages
			result.Processed += stats.processed
			result.Failed += stats.failed
			return err
		})
	}
	runErr := g.Wait()

	// The batch is reported with the state of its last job, or Failed.
	closing := finals[len(finals)-1]
	if runErr != nil {
		closing.State = paging.StateFailed
	}
	if _, err := s.ReportBatch(ctx, []Task{closing}); err != nil && runErr == nil {
		runErr = err
	}

	l := logger.WithJob(s.logger, req.Source.ClientID, result.BatchID, "")
	if runErr != nil {
		l.Error("Poller run failed", zap.Error(runErr))
		return result, runErr
	}
	l.Info("Poller run completed",
		zap.Int("jobs", result.Jobs),
		zap.Int("pages", result.Pages),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

type jobStats struct {
	pages     int
	processed int
	failed    int
}

func (s *Service) runJob(ctx context.Context, t Task) (Task, jobStats, error) {
	var stats jobStats
	for {
		if err := ctx.Err(); err != nil {
			return t, stats, err
		}
		if _, err := s.ReportJob(ctx, t); err != nil {
			return t, stats, err
		}

		fetched, err := s.FetchJob(ctx, t)
		if err != nil {
			return s.failJob(ctx, t, stats, err)
		}
		stats.pages++
		stats.processed += fetched.Processed
		stats.failed += fetched.Failed

		t, err = s.NextJob(fetched.Task)
		if err != nil {
			return s.failJob(ctx, t, stats, err)
		}
		if t.State.Terminal() {
			_, err := s.ReportJob(ctx, t)
			return t, stats, err
		}
	}
}

func (s *Service) failJob(ctx context.Context, t Task, stats jobStats, cause error) (Task, jobStats, error) {
	t.State = paging.StateFailed
	if _, err := s.ReportJob(context.WithoutCancel(ctx), t); err != nil {
		logger.WithJob(s.logger, t.ClientID, t.Batch.ID, t.Job.ID).Warn("Failed state not recorded", zap.Error(err))
	}
	return t, stats, cause
}

func (s *Service) concurrency() int {
	if s.cfg.Concurrency <= 0 {
		return 1
	}
	return s.cfg.Concurrency
}
