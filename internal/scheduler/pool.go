package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ducminhle1904/market-sentinel-bot/internal/analyzer"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
)

// tickJob is one due monitor handed to the worker pool.
type tickJob struct {
	monitorID string
	config    groups.ResolvedConfig
}

// tickResult is the outcome of one orchestrator run.
type tickResult struct {
	monitorID string
	analysis  *analyzer.Analysis
	err       error
	duration  time.Duration
}

// workerPool bounds concurrent orchestrator runs so the data provider's
// rate limits are respected.
type workerPool struct {
	workerCount int
	jobQueue    chan tickJob
	resultQueue chan tickResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	run         func(ctx context.Context, cfg groups.ResolvedConfig) (*analyzer.Analysis, error)
}

// poolSize caps worker count at min(8, monitors).
func poolSize(monitors int) int {
	if monitors < 1 {
		return 1
	}
	if monitors > 8 {
		return 8
	}
	return monitors
}

func newWorkerPool(parent context.Context, workerCount int,
	run func(ctx context.Context, cfg groups.ResolvedConfig) (*analyzer.Analysis, error)) *workerPool {
	ctx, cancel := context.WithCancel(parent)
	return &workerPool{
		workerCount: workerCount,
		jobQueue:    make(chan tickJob, workerCount*2),
		resultQueue: make(chan tickResult, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
		run:         run,
	}
}

func (wp *workerPool) start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// stop drains gracefully: submitted jobs finish, then workers exit.
func (wp *workerPool) stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

func (wp *workerPool) submit(job tickJob) bool {
	select {
	case wp.jobQueue <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

func (wp *workerPool) results() <-chan tickResult {
	return wp.resultQueue
}

func (wp *workerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			start := time.Now()
			analysis, err := wp.run(wp.ctx, job.config)
			result := tickResult{
				monitorID: job.monitorID,
				analysis:  analysis,
				err:       err,
				duration:  time.Since(start),
			}
			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}
		case <-wp.ctx.Done():
			return
		}
	}
}
