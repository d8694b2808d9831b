// Package ledger moves balances of ledger accounts. Every mutation happens
// inside a caller supplied transaction, on a row locked with Lock, and leaves
// a UserTransaction audit entry. Balances are never overwritten directly.
package ledger

import (
	"errors"
	"fmt"

	"bandar/helpers"
	"bandar/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	TrxDeposit  = "deposit"
	TrxWithdraw = "withdraw"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAmbiguousAccount is returned by an unscoped Lock when one user_code
	// exists under several agents.
	ErrAmbiguousAccount = errors.New("user_code belongs to several agents")
)

// AccountNotFoundError reports a player id that does not resolve to an
// active account.
type AccountNotFoundError struct {
	PlayerID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account not found: %s", e.PlayerID)
}

// Entry tags a balance movement for the audit trail.
type Entry struct {
	RefID string
	Note  string
}

// Lock selects the given accounts FOR UPDATE. agentCode scopes the lookup
// when non-empty; without it a user_code must belong to a single agent. The first id without an active account, in input order,
// is reported as AccountNotFoundError.
func Lock(tx *gorm.DB, agentCode string, userCodes []string) (map[string]*models.User, error) {
	if len(userCodes) == 0 {
		return map[string]*models.User{}, nil
	}

	q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_code IN ? AND is_active = ?", userCodes, true)
	if agentCode != "" {
		q = q.Where("agent_code = ?", agentCode)
	}

	var users []models.User
	if err := q.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}

	accounts := make(map[string]*models.User, len(users))
	for i := range users {
		if _, dup := accounts[users[i].UserCode]; dup {
			return nil, fmt.Errorf("lock %s: %w", users[i].UserCode, ErrAmbiguousAccount)
		}
		accounts[users[i].UserCode] = &users[i]
	}
	for _, code := range userCodes {
		if _, ok := accounts[code]; !ok {
			return nil, &AccountNotFoundError{PlayerID: code}
		}
	}
	return accounts, nil
}

// Balances reads current balances without locking. Missing accounts are
// simply absent from the result.
func Balances(db *gorm.DB, agentCode string, userCodes []string) (map[string]float64, error) {
	out := make(map[string]float64, len(userCodes))
	if len(userCodes) == 0 {
		return out, nil
	}

	q := db.Model(&models.User{}).Where("user_code IN ? AND is_active = ?", userCodes, true)
	if agentCode != "" {
		q = q.Where("agent_code = ?", agentCode)
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.UserCode] = u.Balance
	}
	return out, nil
}

func Deposit(tx *gorm.DB, user *models.User, amount float64, e Entry) error {
	if amount < 0 {
		return fmt.Errorf("deposit %s: negative amount %.2f", user.UserCode, amount)
	}
	return move(tx, user, TrxDeposit, amount, e)
}

// Withdraw debits amount and refuses to take the balance below zero.
func Withdraw(tx *gorm.DB, user *models.User, amount float64, e Entry) error {
	if amount < 0 {
		return fmt.Errorf("withdraw %s: negative amount %.2f", user.UserCode, amount)
	}
	if helpers.Money(user.Balance).LessThan(helpers.Money(amount)) {
		return ErrInsufficientFunds
	}
	return move(tx, user, TrxWithdraw, amount, e)
}

// ForceWithdraw debits amount even when the balance goes negative. Round
// losses decided by the provider are always enforced.
func ForceWithdraw(tx *gorm.DB, user *models.User, amount float64, e Entry) error {
	if amount < 0 {
		return fmt.Errorf("withdraw %s: negative amount %.2f", user.UserCode, amount)
	}
	return move(tx, user, TrxWithdraw, amount, e)
}

// Apply moves a signed delta: positive deposits, negative force-withdraws,
// zero does nothing.
func Apply(tx *gorm.DB, user *models.User, delta float64, e Entry) error {
	d := helpers.Money(delta)
	switch d.Sign() {
	case 1:
		return Deposit(tx, user, d.InexactFloat64(), e)
	case -1:
		return ForceWithdraw(tx, user, d.Abs().InexactFloat64(), e)
	}
	return nil
}

func move(tx *gorm.DB, user *models.User, trxType string, amount float64, e Entry) error {
	before := helpers.Money(user.Balance)
	amt := helpers.Money(amount)
	after := before.Add(amt)
	if trxType == TrxWithdraw {
		after = before.Sub(amt)
	}

	if err := tx.Model(user).Update("balance", after.InexactFloat64()).Error; err != nil {
		return fmt.Errorf("update balance %s: %w", user.UserCode, err)
	}
	user.Balance = after.InexactFloat64()

	audit := models.UserTransaction{
		UserID:        user.ID,
		AgentCode:     user.AgentCode,
		UserCode:      user.UserCode,
		TrxType:       trxType,
		Amount:        amt.InexactFloat64(),
		BalanceBefore: before.InexactFloat64(),
		BalanceAfter:  user.Balance,
		Currency:      user.Currency,
		Note:          e.Note,
		RefID:         e.RefID,
	}
	if err := tx.Create(&audit).Error; err != nil {
		return fmt.Errorf("audit %s: %w", user.UserCode, err)
	}
	return nil
}
