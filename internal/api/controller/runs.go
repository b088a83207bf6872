package controller

import (
	"net/http"
	"strconv"

	"github.com/joonhk-lab/kosis-agent/internal/pkg/constants"
	"github.com/labstack/echo/v4"
)

func (c *Controller) ListRuns(ctx echo.Context) error {
	if c.store == nil {
		return constants.NewCodedError(http.StatusServiceUnavailable, "run storage is not configured")
	}

	limit, err := strconv.Atoi(ctx.QueryParams().Get("limit"))
	if err != nil {
		limit = 0
	}

	runs, err := c.store.ListRuns(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, runs)
}
