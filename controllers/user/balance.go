package user

import (
	"bandar/helpers"
	"bandar/ledger"
	"bandar/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	DB *gorm.DB
}

type CheckBalanceRequest struct {
	UserCode models.FlexibleString `json:"user_code"`
}

func (h *Handler) CheckUserBalance(c *fiber.Ctx) error {
	var req CheckBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
	}

	userCode := req.UserCode.String()
	if userCode == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "user_code is required")
	}

	agent, ok := c.Locals("agent").(models.Agent)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, helpers.CodeInvalidCredentials, "invalid agent session")
	}

	balances, err := ledger.Balances(h.DB.WithContext(c.UserContext()), agent.AgentCode, []string{userCode})
	if err != nil {
		return helpers.JSONError(c, fiber.StatusInternalServerError, helpers.CodeInternalError, "failed to read balance")
	}
	balance, found := balances[userCode]
	if !found {
		return helpers.JSONError(c, fiber.StatusNotFound, helpers.CodePlayerNotFound, "user not found")
	}

	return helpers.JSONSuccess(c, helpers.CodeSuccess, "balance retrieved", fiber.Map{
		"user_code": userCode,
		"balance":   balance,
		"currency":  agent.Currency,
	})
}
