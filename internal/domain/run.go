package domain

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusDemo      RunStatus = "demo"
)

// Run is one recorded extraction run.
type Run struct {
	ID         string     `db:"id" json:"id"`
	Status     RunStatus  `db:"status" json:"status"`
	Tables     int        `db:"tables" json:"tables"`
	DataPoints int        `db:"data_points" json:"data_points"`
	Config     []byte     `db:"config" json:"config"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// StoredRecord is a NormalizedRecord as persisted by the store.
type StoredRecord struct {
	ID            int64     `db:"id" json:"id"`
	RunID         string    `db:"run_id" json:"run_id"`
	StatName      string    `db:"stat_name" json:"stat_name"`
	SurveyDate    string    `db:"survey_date" json:"survey_date"`
	Region        string    `db:"region" json:"region"`
	Category1     string    `db:"category1" json:"category1"`
	Category2     string    `db:"category2" json:"category2"`
	Value         float64   `db:"value" json:"value"`
	Unit          string    `db:"unit" json:"unit"`
	SourceTableID string    `db:"source_table_id" json:"source_table_id"`
	DataType      string    `db:"data_type" json:"data_type"`
	LastUpdated   string    `db:"last_updated" json:"last_updated"`
	Metadata      []byte    `db:"metadata" json:"metadata"`
	ExtractedAt   string    `db:"extracted_at" json:"extracted_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// RunEvent is a non-structured output record (raw, error, message, summary,
// demo_summary) persisted alongside the run for diagnostics.
type RunEvent struct {
	ID        int64     `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id"`
	Type      string    `db:"type" json:"type"`
	Payload   []byte    `db:"payload" json:"payload"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
