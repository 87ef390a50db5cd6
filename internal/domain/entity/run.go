package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending    RunStatus = "PENDING"
	RunStatusProcessing RunStatus = "PROCESSING"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusFailed     RunStatus = "FAILED"
)

// Run is the ledger record of a gallery build.
type Run struct {
	ID           uuid.UUID
	RequestID    string
	OutputPath   string
	Status       RunStatus
	Total        int
	Added        int
	SkippedCount int
	Parts        []string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewRun(requestID, outputPath string, total int) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:         uuid.New(),
		RequestID:  requestID,
		OutputPath: outputPath,
		Status:     RunStatusPending,
		Total:      total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *Run) MarkProcessing() {
	r.Status = RunStatusProcessing
	r.UpdatedAt = time.Now().UTC()
}

func (r *Run) MarkCompleted(res *Result) {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.Total = res.Total
	r.Added = res.Added
	r.SkippedCount = len(res.Skipped)
	r.Parts = append([]string(nil), res.Parts...)
	r.UpdatedAt = now
	r.CompletedAt = &now
}

func (r *Run) MarkFailed(errMsg string) {
	r.Status = RunStatusFailed
	r.ErrorMessage = errMsg
	r.UpdatedAt = time.Now().UTC()
}
