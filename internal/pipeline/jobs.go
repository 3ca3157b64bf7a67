package pipeline

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/dgallion1/lessongest/internal/doctree"
	"github.com/dgallion1/lessongest/internal/merge"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusMerging   JobStatus = "merging"
	StatusStoring   JobStatus = "storing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Document is one uploaded source file.
type Document struct {
	Filename string
	Data     []byte
}

// Job tracks the conversion of a primary document, and optionally its
// secondary-language counterpart, into one merged tree.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	LessonID string `json:"lesson_id"`
	Lang     string `json:"lang,omitempty"`

	Status        JobStatus `json:"status"`
	Phase         string    `json:"phase"`
	PrimaryFile   string    `json:"primary_file"`
	SecondaryFile string    `json:"secondary_file,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	primary   []byte
	secondary []byte
	result    *Result
	errors    []string
}

// Progress tracks processing progress.
type Progress struct {
	PrimaryNodes   int      `json:"primary_nodes"`
	SecondaryNodes int      `json:"secondary_nodes"`
	MergedNodes    int      `json:"merged_nodes"`
	Unmatched      int      `json:"unmatched"`
	Skewed         bool     `json:"skewed"`
	CacheHits      int      `json:"cache_hits"`
	Stored         bool     `json:"stored"`
	Errors         []string `json:"errors"`
}

// Result is the output of a completed job.
type Result struct {
	JobID    string            `json:"job_id"`
	LessonID string            `json:"lesson_id"`
	Lang     string            `json:"lang,omitempty"`
	Title    string            `json:"title,omitempty"`
	Fields   map[string]string `json:"fields"`
	Nodes    []doctree.Node    `json:"nodes"`
	Stats    *merge.Stats      `json:"stats,omitempty"`
}

// NewJob creates a queued job. secondary may be nil.
func NewJob(lessonID, lang string, primary Document, secondary *Document) *Job {
	now := time.Now()
	j := &Job{
		ID:          uuid.NewString(),
		LessonID:    lessonID,
		Lang:        lang,
		Status:      StatusQueued,
		Phase:       "queued",
		PrimaryFile: primary.Filename,
		CreatedAt:   now,
		UpdatedAt:   now,
		primary:     primary.Data,
	}
	h := blake3.New()
	h.Write(primary.Data)
	if secondary != nil {
		j.SecondaryFile = secondary.Filename
		j.secondary = secondary.Data
		h.Write(secondary.Data)
	}
	j.ContentHash = hex.EncodeToString(h.Sum(nil))
	if j.LessonID == "" {
		j.LessonID = j.ContentHash[:16]
	}
	return j
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTreeSizes records the node counts of the built trees.
func (j *Job) SetTreeSizes(primary, secondary int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PrimaryNodes = primary
	j.Progress.SecondaryNodes = secondary
	j.UpdatedAt = time.Now()
}

// IncrCacheHits counts a tree served from the cache.
func (j *Job) IncrCacheHits() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.CacheHits++
	j.UpdatedAt = time.Now()
}

// RecordMerge records the merged tree size and the merge outcome.
func (j *Job) RecordMerge(merged int, stats *merge.Stats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.MergedNodes = merged
	if stats != nil {
		j.Progress.Unmatched = stats.Unmatched
		j.Progress.Skewed = stats.Skewed
	}
	j.UpdatedAt = time.Now()
}

// MarkStored records a successful write to the content store.
func (j *Job) MarkStored() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Stored = true
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing. secondary may be nil.
func (j *Job) SetFileData(primary, secondary []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.primary = primary
	j.secondary = secondary
}

// FileData returns the raw file bytes.
func (j *Job) FileData() (primary, secondary []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.primary, j.secondary
}

// SetResult stores the output and drops the raw file bytes.
func (j *Job) SetResult(r *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = r
	j.primary = nil
	j.secondary = nil
	j.UpdatedAt = time.Now()
}

// Result returns the output, or nil while the job is still running.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID            string    `json:"job_id"`
	LessonID      string    `json:"lesson_id"`
	Lang          string    `json:"lang,omitempty"`
	Status        JobStatus `json:"status"`
	Phase         string    `json:"phase"`
	PrimaryFile   string    `json:"primary_file"`
	SecondaryFile string    `json:"secondary_file,omitempty"`
	ContentHash   string    `json:"content_hash,omitempty"`
	Progress      Progress  `json:"progress"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	progress := j.Progress
	progress.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:            j.ID,
		LessonID:      j.LessonID,
		Lang:          j.Lang,
		Status:        j.Status,
		Phase:         j.Phase,
		PrimaryFile:   j.PrimaryFile,
		SecondaryFile: j.SecondaryFile,
		ContentHash:   j.ContentHash,
		Progress:      progress,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

// ContentHashHex computes the BLAKE3 digest of content as a hex string.
func ContentHashHex(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
