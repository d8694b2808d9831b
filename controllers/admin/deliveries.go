package admin

import (
	"errors"

	"bandar/callback"
	"bandar/helpers"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Dispatcher *callback.Dispatcher
}

type FailedRequest struct {
	Limit int `json:"limit"`
}

type RedeliverRequest struct {
	WagerCode string `json:"wager_code"`
}

// FailedDeliveries lists wagers whose latest callback attempt failed.
func (h *Handler) FailedDeliveries(c *fiber.Ctx) error {
	var req FailedRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
	}

	rows, err := h.Dispatcher.Failed(c.UserContext(), req.Limit)
	if err != nil {
		return helpers.JSONError(c, fiber.StatusInternalServerError, helpers.CodeInternalError, "failed to list deliveries")
	}

	items := make([]fiber.Map, 0, len(rows))
	for _, row := range rows {
		items = append(items, fiber.Map{
			"wager_code":  row.WagerCode,
			"agent_code":  row.AgentCode,
			"url":         row.URL,
			"attempt":     row.Attempt,
			"http_status": row.HTTPStatus,
			"error":       row.Error,
			"created_at":  row.CreatedAt,
		})
	}
	return helpers.JSONSuccess(c, helpers.CodeSuccess, "failed deliveries", items)
}

// Redeliver replays the recorded callback of one wager.
func (h *Handler) Redeliver(c *fiber.Ctx) error {
	var req RedeliverRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "invalid json")
	}
	if req.WagerCode == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, helpers.CodeInvalidRequestData, "wager_code is required")
	}

	d, err := h.Dispatcher.Redeliver(c.UserContext(), req.WagerCode)
	switch {
	case errors.Is(err, callback.ErrDeliveryNotFound):
		return helpers.JSONError(c, fiber.StatusNotFound, helpers.CodeNotFound, err.Error())
	case errors.Is(err, callback.ErrAlreadyDelivered):
		return helpers.JSONSuccess(c, helpers.CodeAlreadyProcessed, err.Error(), nil)
	case err != nil:
		return helpers.JSONError(c, fiber.StatusInternalServerError, helpers.CodeInternalError, err.Error())
	}

	data := fiber.Map{
		"wager_code":  d.WagerCode,
		"url":         d.URL,
		"status":      d.Status,
		"attempt":     d.Attempt,
		"http_status": d.HTTPStatus,
	}
	if d.Err != nil {
		data["error"] = d.Err.Error()
	}
	return helpers.JSONSuccess(c, helpers.CodeSuccess, "redelivery attempted", data)
}
