package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/lessongest/internal/builder"
	"github.com/dgallion1/lessongest/internal/config"
	"github.com/dgallion1/lessongest/internal/contentstore"
	"github.com/dgallion1/lessongest/internal/merge"
	"github.com/dgallion1/lessongest/internal/parser"
)

// Orchestrator manages the conversion pipeline.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	builder *builder.Builder
	engine  *merge.Engine
	cache   *TreeCache
	store   *contentstore.Client
	stats   *ConversionStats
	log     *slog.Logger
	cfg     config.PipelineConfig

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewOrchestrator creates the pipeline. store may be nil to skip persistence.
func NewOrchestrator(cfg config.Config, store *contentstore.Client, log *slog.Logger) (*Orchestrator, error) {
	cache, err := NewTreeCache(cfg.Pipeline.TreeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("tree cache: %w", err)
	}
	return &Orchestrator{
		jobs:    NewJobStore(cfg.Pipeline.JobTTL),
		queue:   make(chan *Job, cfg.Pipeline.MaxQueueSize),
		builder: builder.New(cfg.BuilderOptions()),
		engine:  merge.New(cfg.MergeOptions()),
		cache:   cache,
		store:   store,
		stats:   NewConversionStats(time.Hour),
		log:     log,
		cfg:     cfg.Pipeline,
	}, nil
}

// NewWorker returns a worker sharing the orchestrator's builder, engine,
// cache and store.
func (o *Orchestrator) NewWorker() *Worker {
	return NewWorker(o.builder, o.engine, o.cache, o.store, o.stats, o.log,
		parser.Options{PDFFallbackPdftotext: o.cfg.PDFFallbackPdftotext})
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.NewWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.closeOnce.Do(func() { close(o.queue) })
	o.wg.Wait()
	if o.store != nil {
		o.store.Close()
	}
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns recent conversion figures along with queue and cache load.
func (o *Orchestrator) Stats() StatsSnapshot {
	snap := o.stats.Snapshot()
	snap.QueueDepth = o.QueueDepth()
	snap.CachedTrees = o.CacheLen()
	return snap
}

// CacheLen returns the number of cached trees.
func (o *Orchestrator) CacheLen() int {
	return o.cache.Len()
}

// Engine returns the shared merge engine.
func (o *Orchestrator) Engine() *merge.Engine {
	return o.engine
}
