package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/lessongest/internal/merge"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// BLAKE3 of "hello world" is well-known.
	want := "d74981efa70a0c880b8d8c1985d075dbcbf679b99a5f9914e5aaf96b831a9e24"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob(t *testing.T) {
	primary := Document{Filename: "lesson.md", Data: []byte("# Lesson")}
	secondary := &Document{Filename: "leccion.md", Data: []byte("# Lección")}

	job := NewJob("lesson-7", "es", primary, secondary)
	if job.ID == "" {
		t.Fatal("expected generated job ID")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.PrimaryFile != "lesson.md" || job.SecondaryFile != "leccion.md" {
		t.Errorf("unexpected filenames %q / %q", job.PrimaryFile, job.SecondaryFile)
	}
	p, s := job.FileData()
	if string(p) != "# Lesson" || string(s) != "# Lección" {
		t.Errorf("unexpected file data %q / %q", p, s)
	}

	other := NewJob("lesson-7", "es", primary, nil)
	if other.ID == job.ID {
		t.Error("expected distinct job IDs")
	}
	if other.ContentHash == job.ContentHash {
		t.Error("expected the secondary document to change the content hash")
	}
	if other.ContentHash != ContentHashHex(primary.Data) {
		t.Error("expected a primary-only hash to equal the document hash")
	}
}

func TestNewJob_DefaultLessonID(t *testing.T) {
	job := NewJob("", "", Document{Filename: "a.txt", Data: []byte("x")}, nil)
	if job.LessonID != job.ContentHash[:16] {
		t.Errorf("expected lesson ID from content hash, got %q", job.LessonID)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusMerging, "merging"},
		{StatusStoring, "storing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("primary lesson.docx: parse failed")
	job.AddError("store lessons/x/es: timeout")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "primary lesson.docx: parse failed" {
		t.Errorf("unexpected first error %q", snap.Progress.Errors[0])
	}

	// The snapshot must not alias the job's error slice.
	snap.Progress.Errors[0] = "changed"
	if job.Snapshot().Progress.Errors[0] == "changed" {
		t.Error("expected snapshot errors to be a copy")
	}
}

func TestJob_Progress(t *testing.T) {
	job := &Job{ID: "progress-test", UpdatedAt: time.Now()}
	job.SetTreeSizes(12, 10)
	job.IncrCacheHits()
	job.RecordMerge(13, &merge.Stats{Unmatched: 1})
	job.MarkStored()

	p := job.Snapshot().Progress
	if p.PrimaryNodes != 12 || p.SecondaryNodes != 10 || p.MergedNodes != 13 {
		t.Errorf("unexpected node counts %+v", p)
	}
	if p.CacheHits != 1 || p.Unmatched != 1 || p.Skewed || !p.Stored {
		t.Errorf("unexpected progress %+v", p)
	}
}

func TestJob_SetResultDropsFileData(t *testing.T) {
	job := &Job{ID: "data-test"}
	job.SetFileData([]byte("primary"), []byte("secondary"))
	p, s := job.FileData()
	if string(p) != "primary" || string(s) != "secondary" {
		t.Fatalf("unexpected file data %q / %q", p, s)
	}
	if job.Result() != nil {
		t.Fatal("expected no result before completion")
	}

	job.SetResult(&Result{JobID: "data-test"})
	if job.Result() == nil {
		t.Fatal("expected result")
	}
	p, s = job.FileData()
	if p != nil || s != nil {
		t.Error("expected file data to be released")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
