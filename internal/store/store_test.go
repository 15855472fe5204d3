package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dev112317/stryker-assessment/constants"
	"github.com/dev112317/stryker-assessment/internal/entity"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), dsn, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func completedJob(dt constants.DocType, conf float64, elapsed time.Duration) *entity.ProcessingJob {
	j := entity.NewJob(entity.SourceFile{Name: "doc.pdf", Size: 10}, dt)
	j.MarkCompleted(&entity.ExtractionResult{
		ID:             j.ID.String(),
		Fields:         map[string]any{"vendor_name": "Acme"},
		Confidence:     conf,
		ProcessingTime: elapsed,
		CreatedAt:      time.Now().UTC(),
	})
	return j
}

func TestSaveAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	jobs := []*entity.ProcessingJob{
		completedJob(constants.Invoice, 94, 2*time.Second),
		completedJob(constants.Invoice, 96, 4*time.Second),
		completedJob(constants.Receipt, 92, 3*time.Second),
	}
	failed := entity.NewJob(entity.SourceFile{Name: "x.pdf", Size: 1}, constants.Contract)
	failed.MarkFailed("upload failed: 502 Bad Gateway")
	jobs = append(jobs, failed)

	// Pending jobs are never persisted.
	jobs = append(jobs, entity.NewJob(entity.SourceFile{Name: "p.pdf", Size: 1}, constants.Receipt))

	if err := s.SaveJobs(ctx, jobs); err != nil {
		t.Fatalf("SaveJobs: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got := stats.PerType[constants.Invoice]; got.Completed != 2 || got.Failed != 0 {
		t.Errorf("invoice stats = %+v", got)
	}
	if got := stats.PerType[constants.Contract]; got.Completed != 0 || got.Failed != 1 {
		t.Errorf("contract stats = %+v", got)
	}
	if stats.TotalCompleted != 3 {
		t.Errorf("total completed = %d, want 3", stats.TotalCompleted)
	}
	if stats.AvgConfidence < 93.9 || stats.AvgConfidence > 94.1 {
		t.Errorf("avg confidence = %v, want 94", stats.AvgConfidence)
	}
	if stats.AvgProcessingTime != 3000 {
		t.Errorf("avg processing time = %v, want 3000", stats.AvgProcessingTime)
	}
}

func TestSaveJobUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	j := completedJob(constants.Receipt, 93, time.Second)
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	// Re-saving the same job must not duplicate the row.
	j.Result.Confidence = 95
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatalf("SaveJob upsert: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got := stats.PerType[constants.Receipt]; got.Completed != 1 {
		t.Errorf("receipt completed = %d, want 1", got.Completed)
	}
	if stats.AvgConfidence != 95 {
		t.Errorf("avg confidence = %v, want 95 after upsert", stats.AvgConfidence)
	}
}
