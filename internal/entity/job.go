package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dev112317/stryker-assessment/constants"
)

// SourceFile is an opaque handle to a caller-owned document. The pipeline
// only ever reads it.
type SourceFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type,omitempty"`
	Content  []byte `json:"-"`
}

// ExtractionResult is the normalized output of one pipeline run. The remote
// and simulated paths produce the same shape so downstream consumers never
// branch on the execution path.
type ExtractionResult struct {
	ID             string         `json:"id"`
	Fields         map[string]any `json:"fields"`
	Confidence     float64        `json:"confidence_score"`
	ProcessingTime time.Duration  `json:"processing_time"`
	CreatedAt      time.Time      `json:"created_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ProcessingJob is one document's lifecycle unit inside a batch. The
// scheduler and pipeline are the only writers; display layers read freely.
type ProcessingJob struct {
	ID            uuid.UUID           `json:"id"`
	Source        SourceFile          `json:"source"`
	DeclaredType  constants.DocType   `json:"declared_type"`
	Status        constants.JobStatus `json:"status"`
	StageProgress int                 `json:"stage_progress"`
	Result        *ExtractionResult   `json:"result,omitempty"`
	Failure       string              `json:"failure,omitempty"`
	EnqueuedAt    time.Time           `json:"enqueued_at"`
}

// NewJob assigns an id and returns a pending job for the given source file.
func NewJob(src SourceFile, declared constants.DocType) *ProcessingJob {
	return &ProcessingJob{
		ID:           uuid.New(),
		Source:       src,
		DeclaredType: declared,
		Status:       constants.JobPending,
		EnqueuedAt:   time.Now(),
	}
}

// MarkProcessing moves the job into the running state for a fresh run.
func (j *ProcessingJob) MarkProcessing() {
	j.Status = constants.JobProcessing
	j.StageProgress = 0
	j.Result = nil
	j.Failure = ""
}

// MarkCompleted records a terminal success.
func (j *ProcessingJob) MarkCompleted(res *ExtractionResult) {
	j.Status = constants.JobCompleted
	j.StageProgress = 100
	j.Result = res
	j.Failure = ""
}

// MarkFailed records a terminal failure with a human-readable cause.
func (j *ProcessingJob) MarkFailed(cause string) {
	j.Status = constants.JobError
	j.StageProgress = 0
	j.Result = nil
	j.Failure = cause
}

// Reset returns the job to pending, e.g. when a batch is cancelled before
// the job's run produced a terminal outcome.
func (j *ProcessingJob) Reset() {
	j.Status = constants.JobPending
	j.StageProgress = 0
	j.Result = nil
	j.Failure = ""
}
