package helpers

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateWagerCode returns a random 32 character lowercase hex token.
func GenerateWagerCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
