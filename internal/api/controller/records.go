package controller

import (
	"net/http"
	"strconv"

	"github.com/joonhk-lab/kosis-agent/internal/pkg/constants"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/store"
	"github.com/labstack/echo/v4"
)

func (c *Controller) ListRecords(ctx echo.Context) error {
	if c.store == nil {
		return constants.NewCodedError(http.StatusServiceUnavailable, "record storage is not configured")
	}

	runID := ctx.QueryParams().Get("run_id")
	dataType := ctx.QueryParams().Get("data_type")

	limit, err := strconv.Atoi(ctx.QueryParams().Get("limit"))
	if err != nil {
		limit = 0
	}

	opts := store.ListRecordsOpts{RunID: runID, Limit: limit}
	if dataType != "" {
		opts.DataType = &dataType
	}

	records, err := c.store.ListRecords(ctx.Request().Context(), opts)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, records)
}
