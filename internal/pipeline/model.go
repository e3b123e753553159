package pipeline

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PipelineRun is the persisted trigger marker: one row per run, written
// before the heavy work starts so operators can see the last run per target
// even when the run itself dies.
type PipelineRun struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	Target         string       `gorm:"type:text;not null;index"`
	RunID          string       `gorm:"type:text;not null"`
	StartedAt      time.Time    `gorm:"not null"`
	FinishedAt     *time.Time
	ProcessedCount int `gorm:"not null;default:0"`
	ErrorCount     int `gorm:"not null;default:0"`
}

func (PipelineRun) TableName() string { return "pipeline_runs" }
