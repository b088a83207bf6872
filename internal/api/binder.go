package api

import (
	"github.com/joonhk-lab/kosis-agent/internal/pkg/constants"
	"github.com/labstack/echo/v4"
)

type Binder struct {
	base echo.DefaultBinder
}

func NewBinder() *Binder {
	return &Binder{}
}

func (b *Binder) Bind(i interface{}, c echo.Context) error {
	if err := b.base.Bind(i, c); err != nil {
		return constants.ErrBadRequest
	}

	return c.Validate(i)
}
