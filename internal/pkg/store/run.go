package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/joonhk-lab/kosis-agent/internal/domain"
)

var runColumns = []string{"id", "status", "tables", "data_points", "config", "started_at", "finished_at"}

func (s *store) CreateRun(ctx context.Context, run *domain.Run) error {
	query := builder().Insert(tableRuns).
		Columns("id", "status", "config", "started_at").
		Values(run.ID, run.Status, run.Config, run.StartedAt)

	if _, err := s.pool.Execx(ctx, query); err != nil {
		return fmt.Errorf("insert run: %w", wrapErr(err))
	}

	return nil
}

func (s *store) FinishRun(ctx context.Context, runID string, status domain.RunStatus, tables, dataPoints int) error {
	query := builder().Update(tableRuns).
		Set("status", status).
		Set("tables", tables).
		Set("data_points", dataPoints).
		Set("finished_at", sq.Expr("now()")).
		Where(sq.Eq{"id": runID})

	if _, err := s.pool.Execx(ctx, query); err != nil {
		return fmt.Errorf("update run: %w", wrapErr(err))
	}

	return nil
}

func (s *store) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := builder().Select(runColumns...).
		From(tableRuns).
		OrderBy("started_at desc").
		Limit(uint64(limit))

	var selected []*domain.Run
	if err := s.pool.Selectx(ctx, &selected, query); err != nil {
		return nil, wrapErr(err)
	}

	return selected, nil
}
