package models

import (
	"time"
)

type TaskRunStatus string

const (
	TaskRunStatusSuccess         TaskRunStatus = "success"
	TaskRunStatusFailure         TaskRunStatus = "failure"
	TaskRunStatusHandlerNotFound TaskRunStatus = "handler_not_found"
)

// TaskRun tracks one execution of a registered task
type TaskRun struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RunID    string                 `gorm:"type:varchar(32);uniqueIndex" json:"run_id"`
	TaskName string                 `gorm:"type:varchar(255);index" json:"task_name"`
	Trigger  string                 `gorm:"type:varchar(50)" json:"trigger"` // scheduler, http, cli
	RunAt    time.Time              `json:"run_at"`
	Runtime  int                    `json:"runtime"` // milliseconds
	Status   TaskRunStatus          `gorm:"type:varchar(50)" json:"status"`
	Result   map[string]interface{} `gorm:"serializer:json" json:"result"`
}
