package services

import (
	"errors"

	"bandar/helpers"
	"bandar/ledger"
	"bandar/settlement"

	"github.com/gofiber/fiber/v2"
)

// ErrBankerPinned rejects banker rotation while the sentinel banks every round.
var ErrBankerPinned = errors.New("banker is pinned to the default player")

// ErrTableNotFound is returned for table operations on an unknown table.
var ErrTableNotFound = errors.New("table not found")

// Classify maps a service error to its HTTP status and response code.
func Classify(err error) (int, string) {
	var (
		validation *settlement.ValidationError
		zeroSum    *settlement.ZeroSumViolation
		notFound   *ledger.AccountNotFoundError
	)
	switch {
	case err == nil:
		return fiber.StatusOK, helpers.CodeSuccess
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, helpers.CodeInvalidRequestData
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, helpers.CodePlayerNotFound
	case errors.As(err, &zeroSum):
		return fiber.StatusUnprocessableEntity, helpers.CodeZeroSumViolation
	case errors.Is(err, helpers.ErrSignatureMismatch):
		return fiber.StatusUnauthorized, helpers.CodeInvalidSignature
	case errors.Is(err, ErrBankerPinned):
		return fiber.StatusConflict, helpers.CodeBankerPinned
	case errors.Is(err, ErrTableNotFound):
		return fiber.StatusNotFound, helpers.CodeNotFound
	}
	return fiber.StatusInternalServerError, helpers.CodeInternalError
}

func codeFor(err error) string {
	_, code := Classify(err)
	return code
}
