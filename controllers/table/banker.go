package table

import (
	"strings"

	"bandar/helpers"
	"bandar/services"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Tables *services.Tables
}

type BankerRequest struct {
	AgentCode  string `json:"agent_code"`
	TableID    string `json:"table_id"`
	Banker     string `json:"banker"`
	GameTypeID int    `json:"game_type_id"`
}

type StateRequest struct {
	AgentCode string `json:"agent_code"`
	TableID   string `json:"table_id"`
}

// RotateBanker hands the bank of a table to another account between rounds.
func (h *Handler) RotateBanker(c *fiber.Ctx) error {
	var req BankerRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
	}

	req.AgentCode = strings.TrimSpace(req.AgentCode)
	req.TableID = strings.TrimSpace(req.TableID)
	req.Banker = strings.TrimSpace(req.Banker)
	if req.AgentCode == "" || req.TableID == "" || req.Banker == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "agent_code, table_id and banker are required")
	}

	state, err := h.Tables.RotateBanker(c.UserContext(), req.AgentCode, req.TableID, req.Banker, req.GameTypeID)
	if err != nil {
		status, code := services.Classify(err)
		return helpers.JSONError(c, status, code, err.Error())
	}
	return helpers.JSONSuccess(c, helpers.CodeSuccess, "banker rotated", state)
}

func (h *Handler) State(c *fiber.Ctx) error {
	var req StateRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
	}
	if req.AgentCode == "" || req.TableID == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "agent_code and table_id are required")
	}

	state, err := h.Tables.State(c.UserContext(), req.AgentCode, req.TableID)
	if err != nil {
		status, code := services.Classify(err)
		return helpers.JSONError(c, status, code, err.Error())
	}
	return helpers.JSONSuccess(c, helpers.CodeSuccess, "table state", state)
}
