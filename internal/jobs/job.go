package jobs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sumochan15/agentworkflow/internal/scenario"
)

// Status is the job lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Job is the persisted record of one video generation request. Progress
// fields mirror the latest emitted event so polling clients see the same
// state as stream subscribers.
type Job struct {
	ID          string             `json:"id"`
	Status      Status             `json:"status"`
	Input       string             `json:"input"`
	Provider    string             `json:"provider"`
	CreatedAt   time.Time          `json:"createdAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
	Error       string             `json:"error,omitempty"`
	OutputPath  string             `json:"outputPath,omitempty"`
	Scenario    *scenario.Scenario `json:"scenario,omitempty"`

	CurrentStep     string `json:"currentStep,omitempty"`
	CurrentProgress int    `json:"currentProgress,omitempty"`
	CurrentMessage  string `json:"currentMessage,omitempty"`
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}

// NewID builds a sortable unique job id: millisecond timestamp plus a short
// random suffix.
func NewID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
