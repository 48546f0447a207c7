// Package jobs runs the portal's background maintenance on Asynq: pruning
// the per-day view ledger and keeping the public home cache warm.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue all portal jobs run on.
	QueueDefault = "default"
	// TaskViewsRetention prunes view-ledger rows past the retention window.
	TaskViewsRetention = "views:retention"
	// TaskHomeWarmup rebuilds the cached public home payload.
	TaskHomeWarmup = "home:warmup"
)

// ViewsRetentionPayload configures one retention run.
type ViewsRetentionPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewViewsRetentionTask constructs a retention task.
func NewViewsRetentionTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(ViewsRetentionPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskViewsRetention, data), nil
}

// NewHomeWarmupTask constructs a home warmup task. The task carries no
// payload; the job rebuilds the whole cached payload every run.
func NewHomeWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskHomeWarmup, nil)
}
