package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError rejects malformed input before anything is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ZeroSumViolation means the player nets and the banker change do not
// cancel within one minor currency unit. The round must not be recorded.
type ZeroSumViolation struct {
	PlayerNet    decimal.Decimal
	BankerChange decimal.Decimal
	Residual     decimal.Decimal
}

func (e *ZeroSumViolation) Error() string {
	return fmt.Sprintf("zero-sum violation: player net %s, banker change %s, residual %s",
		e.PlayerNet.StringFixed(2), e.BankerChange.StringFixed(2), e.Residual.String())
}
