package middleware

import (
	"errors"
	"fmt"

	"github.com/AzielCF/az-connect/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Recovery turns panics into the standard error envelope. Typed errors keep
// their status and code.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = errors.New(fmt.Sprint(r))
			}
			res := utils.ErrorResponse(err)
			if res.Status >= 500 {
				logrus.Errorf("[REST] Panic recovered on %s %s: %v", ctx.Method(), ctx.Path(), r)
			}
			_ = ctx.Status(res.Status).JSON(res)
		}()
		return ctx.Next()
	}
}
