package api

import (
	"github.com/joonhk-lab/kosis-agent/internal/pkg/constants"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/spf13/viper"
)

// AdminMiddleware protects mutating endpoints with a signed cookie. When no
// admin secret is configured the check is skipped, which keeps local runs
// usable without issuing tokens.
func (svc *APIService) AdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		secret := viper.GetString(constants.ViperSecretKey)
		if secret == "" {
			return next(ctx)
		}

		cookie, err := ctx.Cookie(constants.CookieKeySecretToken)
		if err != nil {
			return constants.ErrUnauthorized
		}

		token, err := utils.ParseAuthToken(cookie.Value)
		if err != nil {
			return err
		}

		if token.Secret != secret {
			return constants.ErrUnauthorized
		}

		return next(ctx)
	}
}
