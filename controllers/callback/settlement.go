package callback

import (
	cb "bandar/callback"
	"bandar/helpers"
	"bandar/services"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Receiver *services.Receiver
}

// Settlement applies a settlement callback to the local ledger.
func (h *Handler) Settlement(c *fiber.Ctx) error {
	var payload cb.ReceivedPayload
	if err := c.BodyParser(&payload); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
	}

	code, err := h.Receiver.Receive(c.UserContext(), payload)
	if err != nil {
		status, code := services.Classify(err)
		message := err.Error()
		if status == fiber.StatusInternalServerError {
			message = "internal error"
		}
		return helpers.JSONError(c, status, code, message)
	}

	if code == helpers.CodeAlreadyProcessed {
		return helpers.JSONSuccess(c, code, "wager already processed", nil)
	}
	return helpers.JSONSuccess(c, code, "settlement applied", nil)
}
