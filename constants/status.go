package constants

// JobStatus is the coarse batch-level view of a document job.
type JobStatus string

// Stable values (serialized in exports and the history store).
const (
	JobPending    JobStatus = "pending"    // enqueued, not yet picked up
	JobProcessing JobStatus = "processing" // a pipeline run owns it
	JobCompleted  JobStatus = "completed"  // terminal success
	JobError      JobStatus = "error"      // terminal failure
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError
}

// Stage is one phase of the single-document pipeline.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageUpload     Stage = "upload"
	StageExtraction Stage = "extraction"
	StageAnalysis   Stage = "analysis"
	StageValidation Stage = "validation"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Terminal reports whether the stage ends a pipeline run.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}
