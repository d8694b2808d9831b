package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"bandar/helpers"

	"github.com/gofiber/fiber/v2"
)

// AgentAuth guards the operator surface with the master agent signature.
func AgentAuth(masterCode, masterSecret string) fiber.Handler {
	expected := MasterSignature(masterCode, masterSecret)

	return func(c *fiber.Ctx) error {
		var body struct {
			Signature string `json:"signature"`
		}

		if err := c.BodyParser(&body); err != nil {
			return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
		}

		if masterSecret == "" || !hmac.Equal([]byte(body.Signature), []byte(expected)) {
			return helpers.JSONError(c, fiber.StatusUnauthorized, helpers.CodeInvalidSignature, "invalid signature")
		}

		return c.Next()
	}
}

func MasterSignature(masterCode, masterSecret string) string {
	h := hmac.New(sha256.New, []byte(masterSecret))
	h.Write([]byte(masterCode + masterSecret))
	return hex.EncodeToString(h.Sum(nil))
}
