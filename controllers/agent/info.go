package agent

import (
	"bandar/callback"
	"bandar/helpers"
	"bandar/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	DB                 *gorm.DB
	DefaultCallbackURL string
}

// AgentInfo reports the mirrored agent balance and where callbacks go.
func (h *Handler) AgentInfo(c *fiber.Ctx) error {
	agent, ok := c.Locals("agent").(models.Agent)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, helpers.CodeInvalidCredentials, "invalid agent session")
	}
	db := h.DB.WithContext(c.UserContext())

	var totalUserBalance float64
	err := db.Model(&models.User{}).
		Where("agent_code = ?", agent.AgentCode).
		Select("COALESCE(SUM(balance),0)").Scan(&totalUserBalance).Error
	if err != nil {
		return helpers.JSONError(c, fiber.StatusInternalServerError, helpers.CodeInternalError, "failed to fetch user balance")
	}

	var operatorURL string
	if agent.OperatorCode != "" {
		var op models.Operator
		if err := db.Where("operator_code = ? AND is_active = ?", agent.OperatorCode, true).First(&op).Error; err == nil {
			operatorURL = op.CallbackURL
		}
	}
	callbackURL, _ := callback.ResolveURL(
		callback.Static(agent.CallbackURL),
		callback.Static(operatorURL),
		callback.Static(h.DefaultCallbackURL),
	)

	return helpers.JSONSuccess(c, helpers.CodeSuccess, "agent info", fiber.Map{
		"username":           agent.Username,
		"agent_code":         agent.AgentCode,
		"operator_code":      agent.OperatorCode,
		"agent_balance":      agent.Balance,
		"total_user_balance": helpers.RoundMoney(totalUserBalance),
		"callback_url":       callbackURL,
		"currency":           agent.Currency,
	})
}
