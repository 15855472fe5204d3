package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dev112317/stryker-assessment/constants"
	"github.com/dev112317/stryker-assessment/internal/entity"
	"github.com/dev112317/stryker-assessment/internal/pipeline"
	"github.com/dev112317/stryker-assessment/internal/remote"
)

// fallbackRunner probes a closed port, so every run takes the simulated path
// with compressed delays.
func fallbackRunner(t *testing.T) *pipeline.Runner {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := remote.NewClient(srv.URL, remote.WithHTTPClient(&http.Client{Timeout: time.Second}))
	return pipeline.NewRunner(client, pipeline.WithScript(pipeline.FastScript()))
}

// flakyRunner serves the live contract but rejects uploads whose filename
// contains "bad".
func flakyRunner(t *testing.T) *pipeline.Runner {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fh := r.MultipartForm.File["file"]
		if len(fh) == 1 && strings.Contains(fh[0].Filename, "bad") {
			http.Error(w, "rejected", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"document_id": "doc-1"})
	})
	mux.HandleFunc("/process/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":             map[string]any{"vendor_name": "Acme"},
			"confidence_score": 94.0,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return pipeline.NewRunner(remote.NewClient(srv.URL), pipeline.WithStagePauses(0, 0))
}

func makeJobs(n int, name func(i int) string) []*entity.ProcessingJob {
	jobs := make([]*entity.ProcessingJob, n)
	for i := range jobs {
		jobs[i] = entity.NewJob(entity.SourceFile{
			Name:    name(i),
			Size:    10,
			Content: []byte("content"),
		}, constants.Invoice)
	}
	return jobs
}

func TestWavePartitioning(t *testing.T) {
	jobs := makeJobs(7, func(i int) string { return fmt.Sprintf("doc_%d.pdf", i) })

	var waves []entity.BatchState
	s := NewScheduler(fallbackRunner(t),
		WithConcurrency(3),
		WithWaveHook(func(st entity.BatchState) { waves = append(waves, st) }),
	)

	state, err := s.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(waves) != 3 {
		t.Fatalf("wave count = %d, want 3", len(waves))
	}
	if got := waves[0].Settled(); got != 3 {
		t.Errorf("after wave 1 settled = %d, want 3", got)
	}
	if math.Abs(waves[0].OverallProgress-100.0*3/7) > 0.01 {
		t.Errorf("after wave 1 progress = %v, want ~42.86", waves[0].OverallProgress)
	}
	if got := waves[1].Settled(); got != 6 {
		t.Errorf("after wave 2 settled = %d, want 6", got)
	}

	if !state.Done() || state.OverallProgress != 100 {
		t.Errorf("final state not settled: %+v", state)
	}
	if state.Completed != 7 || state.Failed != 0 {
		t.Errorf("counts = %d/%d, want 7/0", state.Completed, state.Failed)
	}
	for _, j := range jobs {
		if j.Status != constants.JobCompleted || j.Result == nil {
			t.Errorf("job %s not completed: %s", j.Source.Name, j.Status)
		}
	}
}

func TestPartialFailure(t *testing.T) {
	jobs := makeJobs(5, func(i int) string {
		if i == 1 || i == 3 {
			return fmt.Sprintf("bad_doc_%d.pdf", i)
		}
		return fmt.Sprintf("doc_%d.pdf", i)
	})

	s := NewScheduler(flakyRunner(t), WithConcurrency(2))
	state, err := s.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if state.Settled() != 5 || state.OverallProgress != 100 {
		t.Errorf("batch did not settle fully: %+v", state)
	}
	if state.Completed != 3 || state.Failed != 2 {
		t.Errorf("counts = %d/%d, want 3/2", state.Completed, state.Failed)
	}
	for _, j := range jobs {
		if strings.Contains(j.Source.Name, "bad") {
			if j.Status != constants.JobError || j.Failure == "" {
				t.Errorf("bad job %s: status=%s failure=%q", j.Source.Name, j.Status, j.Failure)
			}
			continue
		}
		if j.Status != constants.JobCompleted {
			t.Errorf("good job %s affected by failures: %s", j.Source.Name, j.Status)
		}
	}
}

func TestIdempotentOnSettledSet(t *testing.T) {
	jobs := makeJobs(4, func(i int) string { return fmt.Sprintf("doc_%d.pdf", i) })
	s := NewScheduler(fallbackRunner(t), WithConcurrency(2))

	if _, err := s.Run(context.Background(), jobs); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	before := make([]*entity.ExtractionResult, len(jobs))
	for i, j := range jobs {
		before[i] = j.Result
	}

	state, err := s.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if state.Total != 0 || state.IsProcessing || state.OverallProgress != 100 {
		t.Errorf("re-run on settled set = %+v, want zero-total settled state", state)
	}
	for i, j := range jobs {
		if j.Result != before[i] {
			t.Errorf("job %d re-processed", i)
		}
	}
}

func TestEmptyBatchIsNoop(t *testing.T) {
	s := NewScheduler(fallbackRunner(t))
	state, err := s.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Total != 0 || state.IsProcessing {
		t.Errorf("empty batch state = %+v", state)
	}
}

func TestCancelBetweenWaves(t *testing.T) {
	jobs := makeJobs(6, func(i int) string { return fmt.Sprintf("doc_%d.pdf", i) })

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(fallbackRunner(t),
		WithConcurrency(3),
		WithWaveHook(func(st entity.BatchState) {
			if st.Settled() == 3 {
				cancel()
			}
		}),
	)

	state, err := s.Run(ctx, jobs)
	if err == nil {
		t.Fatalf("cancelled batch returned nil error")
	}
	if state.Settled() != 3 {
		t.Errorf("settled = %d, want 3", state.Settled())
	}
	pending := 0
	for _, j := range jobs {
		if j.Status == constants.JobPending {
			pending++
		}
	}
	if pending != 3 {
		t.Errorf("unstarted jobs pending = %d, want 3", pending)
	}
}
