package entity

import "time"

// BatchState aggregates one batch invocation. Counters move only at wave
// boundaries; once IsProcessing flips false the state is final.
type BatchState struct {
	Total              int           `json:"total_files"`
	Completed          int           `json:"completed_files"`
	Failed             int           `json:"failed_files"`
	OverallProgress    float64       `json:"overall_progress"`
	StartedAt          time.Time     `json:"start_time"`
	EstimatedRemaining time.Duration `json:"estimated_time_remaining"`
	IsProcessing       bool          `json:"is_processing"`
}

// Settled returns how many jobs have reached a terminal status.
func (b BatchState) Settled() int {
	return b.Completed + b.Failed
}

// Done reports whether every job in the batch has settled.
func (b BatchState) Done() bool {
	return !b.IsProcessing && b.Settled() == b.Total
}
