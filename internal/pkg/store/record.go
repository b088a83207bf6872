package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/bytedance/sonic"
	"github.com/joonhk-lab/kosis-agent/internal/domain"
)

var recordColumns = []string{
	"id", "run_id", "stat_name", "survey_date", "region", "category1", "category2",
	"value", "unit", "source_table_id", "data_type", "last_updated", "metadata",
	"extracted_at", "created_at",
}

func (s *store) InsertRecord(ctx context.Context, runID string, record domain.NormalizedRecord) error {
	metadata, err := sonic.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := builder().Insert(tableRecords).
		Columns("run_id", "stat_name", "survey_date", "region", "category1", "category2",
			"value", "unit", "source_table_id", "data_type", "last_updated", "metadata", "extracted_at").
		Values(runID, record.StatName, record.SurveyDate, record.Region, record.Category1, record.Category2,
			record.Value, record.Unit, record.SourceTableID, record.DataType, record.LastUpdated, metadata, record.ExtractedAt).
		Suffix(`
on conflict (run_id, source_table_id, stat_name, survey_date, category1, category2)
do update
set
	value = excluded.value,
	unit = excluded.unit,
	last_updated = excluded.last_updated,
	metadata = excluded.metadata`)

	if _, err := s.pool.Execx(ctx, query); err != nil {
		return fmt.Errorf("insert record: %w", wrapErr(err))
	}

	return nil
}

func (s *store) InsertEvent(ctx context.Context, runID, eventType string, payload []byte) error {
	query := builder().Insert(tableEvents).
		Columns("run_id", "type", "payload").
		Values(runID, eventType, payload)

	if _, err := s.pool.Execx(ctx, query); err != nil {
		return fmt.Errorf("insert event: %w", wrapErr(err))
	}

	return nil
}

func (s *store) ListRecords(ctx context.Context, opts ListRecordsOpts) ([]*domain.StoredRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}

	query := builder().Select(recordColumns...).
		From(tableRecords).
		OrderBy("created_at desc, id desc").
		Limit(uint64(limit))

	if opts.RunID != "" {
		query = query.Where(sq.Eq{"run_id": opts.RunID})
	}
	if opts.DataType != nil {
		query = query.Where(sq.Eq{"data_type": *opts.DataType})
	}

	var selected []*domain.StoredRecord
	if err := s.pool.Selectx(ctx, &selected, query); err != nil {
		return nil, wrapErr(err)
	}

	return selected, nil
}
