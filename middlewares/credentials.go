package middlewares

import (
	"bandar/helpers"
	"bandar/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AgentCredentials resolves the calling agent from X-Agent-Code and
// X-Secret-Key and stores it under the "agent" local.
func AgentCredentials(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agentCode := c.Get("X-Agent-Code")
		secretKey := c.Get("X-Secret-Key")

		if agentCode == "" || secretKey == "" {
			return helpers.JSONError(c, fiber.StatusUnauthorized, helpers.CodeInvalidCredentials, "agent code and secret required")
		}

		var agent models.Agent
		if err := db.WithContext(c.UserContext()).
			Where("agent_code = ? AND secret_key = ? AND is_active = ?", agentCode, secretKey, true).
			First(&agent).Error; err != nil {
			return helpers.JSONError(c, fiber.StatusUnauthorized, helpers.CodeInvalidCredentials, "invalid agent credentials")
		}

		c.Locals("agent", agent)
		return c.Next()
	}
}
