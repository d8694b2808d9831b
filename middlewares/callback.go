package middlewares

import (
	"bandar/helpers"
	"bandar/metrics"

	"github.com/gofiber/fiber/v2"
)

// CallbackSignature rejects settlement callbacks whose signature does not
// match secret. It passes everything through when disabled.
func CallbackSignature(enabled bool, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !enabled {
			return c.Next()
		}

		if err := helpers.VerifySignature(c.Body(), secret); err != nil {
			metrics.CallbacksReceived.WithLabelValues(helpers.CodeInvalidSignature).Inc()
			return helpers.JSONError(c, fiber.StatusUnauthorized, helpers.CodeInvalidSignature, "invalid signature")
		}

		return c.Next()
	}
}
