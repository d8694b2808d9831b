package round

import (
	"bandar/helpers"
	"bandar/models"
	"bandar/services"
	"bandar/settlement"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Settler *services.Settler
}

type callbackStatus struct {
	Status  string `json:"status"`
	URL     string `json:"url"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error,omitempty"`
}

type settleResponse struct {
	*settlement.Result
	Callback *callbackStatus `json:"callback,omitempty"`
}

// Settle runs one finished round for the calling agent.
func (h *Handler) Settle(c *fiber.Ctx) error {
	var req services.RoundRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
	}

	agent, ok := c.Locals("agent").(models.Agent)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, helpers.CodeInvalidCredentials, "invalid agent session")
	}

	out, err := h.Settler.Settle(c.UserContext(), agent, req)
	if err != nil {
		status, code := services.Classify(err)
		return helpers.JSONError(c, status, code, err.Error())
	}

	resp := settleResponse{Result: out.Result}
	if d := out.Delivery; d != nil {
		resp.Callback = &callbackStatus{Status: d.Status, URL: d.URL, Attempt: d.Attempt}
		if d.Err != nil {
			resp.Callback.Error = d.Err.Error()
		}
	}

	message := "round settled"
	if out.Code == helpers.CodeAlreadyProcessed {
		message = "round already settled"
	}
	return helpers.JSONSuccess(c, out.Code, message, resp)
}
