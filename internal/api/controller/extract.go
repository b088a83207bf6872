package controller

import (
	"net/http"

	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/labstack/echo/v4"
)

// RunExtraction triggers a synchronous extraction run with the options from
// the request body. An empty body runs with defaults.
func (c *Controller) RunExtraction(ctx echo.Context) error {
	opts := domain.Options{}
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&opts); err != nil {
			return err
		}
	}

	result, err := c.service.Run(ctx.Request().Context(), opts)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, result)
}
