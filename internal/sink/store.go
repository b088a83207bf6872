package sink

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/store"
)

// StoreSink persists emitted records: NormalizedRecords land in the records
// table, every tagged shape in run_events. Records emitted outside a run
// (no run id on ctx) are skipped.
type StoreSink struct {
	store store.Store
}

func NewStoreSink(st store.Store) *StoreSink {
	return &StoreSink{store: st}
}

func (s *StoreSink) Emit(ctx context.Context, record interface{}) error {
	runID := domain.RunIDFrom(ctx)
	if runID == "" {
		return nil
	}

	if normalized, ok := record.(domain.NormalizedRecord); ok {
		return s.store.InsertRecord(ctx, runID, normalized)
	}

	payload, err := sonic.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	var tag struct {
		Type string `json:"type"`
	}
	if err := sonic.Unmarshal(payload, &tag); err != nil || tag.Type == "" {
		tag.Type = "unknown"
	}

	return s.store.InsertEvent(ctx, runID, tag.Type, payload)
}
