package store

import (
	"context"

	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/store/xpgx"
)

type Pool = xpgx.Pool

type ListRecordsOpts struct {
	RunID    string
	DataType *string
	Limit    int
}

type Store interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	FinishRun(ctx context.Context, runID string, status domain.RunStatus, tables, dataPoints int) error
	InsertRecord(ctx context.Context, runID string, record domain.NormalizedRecord) error
	InsertEvent(ctx context.Context, runID, eventType string, payload []byte) error
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)
	ListRecords(ctx context.Context, opts ListRecordsOpts) ([]*domain.StoredRecord, error)
}

type store struct {
	pool Pool
}

func NewStore(pool Pool) Store {
	return &store{pool}
}
