package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/lessongest/internal/builder"
	"github.com/dgallion1/lessongest/internal/contentstore"
	"github.com/dgallion1/lessongest/internal/doctree"
	"github.com/dgallion1/lessongest/internal/merge"
	"github.com/dgallion1/lessongest/internal/parser"
)

// Worker processes a single conversion job.
type Worker struct {
	builder   *builder.Builder
	engine    *merge.Engine
	cache     *TreeCache
	store     *contentstore.Client
	stats     *ConversionStats
	log       *slog.Logger
	parseOpts parser.Options
	backoff   func(int) time.Duration
}

func NewWorker(b *builder.Builder, e *merge.Engine, cache *TreeCache, store *contentstore.Client, stats *ConversionStats, log *slog.Logger, parseOpts parser.Options) *Worker {
	return &Worker{
		builder:   b,
		engine:    e,
		cache:     cache,
		store:     store,
		stats:     stats,
		log:       log,
		parseOpts: parseOpts,
		backoff:   Backoff,
	}
}

// Process runs the full conversion pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "lesson_id", job.LessonID)
	start := time.Now()

	// Phase 1: parse and build both trees concurrently.
	job.SetStatus(StatusParsing, "parsing")
	primaryData, secondaryData := job.FileData()

	var primary, secondary *builder.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := w.BuildDocument(gctx, job, job.PrimaryFile, primaryData)
		if err != nil {
			return fmt.Errorf("primary %s: %w", job.PrimaryFile, err)
		}
		primary = r
		return nil
	})
	if job.SecondaryFile != "" {
		g.Go(func() error {
			r, err := w.BuildDocument(gctx, job, job.SecondaryFile, secondaryData)
			if err != nil {
				return fmt.Errorf("secondary %s: %w", job.SecondaryFile, err)
			}
			secondary = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("build failed", "error", err)
		job.AddError(err.Error())
		w.record(start, true, nil)
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	secondaryLen := 0
	if secondary != nil {
		secondaryLen = len(secondary.Nodes)
	}
	job.SetTreeSizes(len(primary.Nodes), secondaryLen)
	log.Info("built trees", "primary_nodes", len(primary.Nodes), "secondary_nodes", secondaryLen)

	// Phase 2: merge.
	job.SetStatus(StatusMerging, "merging")
	result := &Result{
		JobID:    job.ID,
		LessonID: job.LessonID,
		Lang:     job.Lang,
		Title:    primary.Title,
		Fields:   primary.Fields,
		Nodes:    primary.Nodes,
	}
	if secondary != nil {
		nodes, stats, err := w.engine.MergeWithStats(primary.Nodes, secondary.Nodes)
		if err != nil {
			log.Error("merge failed", "error", err)
			job.AddError(fmt.Sprintf("merge: %s", err))
			w.record(start, true, nil)
			job.SetStatus(StatusFailed, "merging")
			return
		}
		result.Nodes = nodes
		result.Stats = stats
		result.Fields = mergeFields(primary.Fields, secondary.Fields)
		if secondary.Title != "" {
			result.Title = secondary.Title
		}
		if stats.Skewed {
			log.Warn("secondary tree skewed, using it as-is", "unmatched", stats.Unmatched)
		}
	}
	if result.Fields == nil {
		result.Fields = map[string]string{}
	}
	job.RecordMerge(len(result.Nodes), result.Stats)

	// Phase 3: persist.
	if w.store != nil {
		job.SetStatus(StatusStoring, "storing")
		key := w.store.Key(job.LessonID, job.Lang)
		err := retry(ctx, log, "store", w.backoff, func() error {
			return w.store.PutDocument(ctx, key, contentstore.DocumentRequest{
				Value:       result,
				Source:      "lessongest:" + job.ID,
				ContentHash: job.ContentHash,
			})
		})
		if err != nil {
			log.Error("store failed", "key", key, "error", err)
			job.AddError(fmt.Sprintf("store %s: %s", key, err))
			w.record(start, true, result.Stats)
			job.SetResult(result)
			job.SetStatus(StatusFailed, "storing")
			return
		}
		job.MarkStored()
		log.Info("stored result", "key", key)
	}

	w.record(start, false, result.Stats)
	job.SetResult(result)
	job.SetStatus(StatusCompleted, "done")
	log.Info("conversion complete", "nodes", len(result.Nodes), "duration", time.Since(start))
}

// record must run before the terminal SetStatus so pollers that see the
// final status also see the sample.
func (w *Worker) record(start time.Time, failed bool, ms *merge.Stats) {
	if w.stats != nil {
		w.stats.Record(time.Since(start), failed, ms)
	}
}

// BuildDocument parses one document and builds its tree, consulting the
// tree cache first. job may be nil.
func (w *Worker) BuildDocument(ctx context.Context, job *Job, filename string, data []byte) (*builder.Result, error) {
	key := CacheKey(filename, data)
	if r, ok := w.cache.Get(key); ok {
		if job != nil {
			job.IncrCacheHits()
		}
		return r, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := parser.ForFileWithOptions(filename, w.parseOpts)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	r := w.builder.Build(doc)
	if err := doctree.ValidateTree(r.Nodes); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	w.cache.Add(key, r)
	return r, nil
}

// mergeFields overlays non-empty secondary fields on the primary ones.
func mergeFields(primary, secondary map[string]string) map[string]string {
	out := maps.Clone(primary)
	if out == nil {
		out = make(map[string]string, len(secondary))
	}
	for k, v := range secondary {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
