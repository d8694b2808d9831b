package helpers

import (
	"github.com/gofiber/fiber/v2"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result codes shared by the settlement trigger, the callback receiver and
// the callback response parser.
const (
	CodeSuccess            = "SUCCESS"
	CodeAlreadyProcessed   = "ALREADY_PROCESSED"
	CodeInvalidRequestData = "INVALID_REQUEST_DATA"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeZeroSumViolation   = "ZERO_SUM_VIOLATION"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeBankerPinned       = "BANKER_PINNED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidCredentials = "INVALID_AGENT_CREDENTIALS"
)

func JSONSuccess(c *fiber.Ctx, code string, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  StatusSuccess,
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, httpStatus int, code string, message string) error {
	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  StatusError,
		"code":    code,
		"message": message,
		"data":    nil,
	})
}
