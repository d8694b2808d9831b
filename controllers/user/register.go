package user

import (
	"errors"
	"strings"

	"bandar/helpers"
	"bandar/ledger"
	"bandar/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RegisterUserRequest struct {
	UserCode       models.FlexibleString `json:"user_code"`
	Currency       string                `json:"currency"`
	OpeningBalance float64               `json:"opening_balance"`
}

var errUserExists = errors.New("user already exists")

// RegisterUser provisions a ledger account under the calling agent. Bankers
// and the agent's own default player are provisioned the same way as players.
func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	var req RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
	}

	agent, ok := c.Locals("agent").(models.Agent)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, helpers.CodeInvalidCredentials, "invalid agent session")
	}

	userCode := strings.TrimSpace(req.UserCode.String())
	if userCode == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "user_code is required")
	}
	if req.OpeningBalance < 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "opening_balance must not be negative")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = agent.Currency
	}

	user := models.User{
		UserCode:  userCode,
		AgentCode: agent.AgentCode,
		Currency:  currency,
		IsActive:  true,
	}

	err := h.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).
			Where("agent_code = ? AND user_code = ?", agent.AgentCode, userCode).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errUserExists
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if req.OpeningBalance == 0 {
			return nil
		}
		return ledger.Deposit(tx, &user, req.OpeningBalance, ledger.Entry{Note: "opening balance"})
	})
	if errors.Is(err, errUserExists) {
		return helpers.JSONError(c, fiber.StatusConflict, helpers.CodeInvalidRequestData, err.Error())
	}
	if err != nil {
		return helpers.JSONError(c, fiber.StatusInternalServerError, helpers.CodeInternalError, "failed to register user")
	}

	return helpers.JSONSuccess(c, helpers.CodeSuccess, "user registered", fiber.Map{
		"user_code":  user.UserCode,
		"agent_code": user.AgentCode,
		"balance":    user.Balance,
		"currency":   user.Currency,
	})
}
