// Package databasetest opens throwaway migrated databases for tests.
package databasetest

import (
	"fmt"
	"testing"

	"bandar/database"
	"bandar/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns an in-memory SQLite database with every model migrated. A
// single connection serializes transactions the way row locks do on
// Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedAgent creates an active agent.
func SeedAgent(t testing.TB, db *gorm.DB, code, secret, callbackURL string) models.Agent {
	t.Helper()

	agent := models.Agent{
		Username:    code,
		AgentCode:   code,
		SecretKey:   secret,
		CallbackURL: callbackURL,
		Currency:    "IDR",
		IsActive:    true,
	}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return agent
}

// SeedUser creates an active ledger account with the given balance.
func SeedUser(t testing.TB, db *gorm.DB, agentCode, userCode string, balance float64) models.User {
	t.Helper()

	user := models.User{
		UserCode:  userCode,
		AgentCode: agentCode,
		Balance:   balance,
		Currency:  "IDR",
		IsActive:  true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// Balance reads a user's balance.
func Balance(t testing.TB, db *gorm.DB, userCode string) float64 {
	t.Helper()

	var user models.User
	if err := db.Where("user_code = ?", userCode).First(&user).Error; err != nil {
		t.Fatalf("load user %s: %v", userCode, err)
	}
	return user.Balance
}

// AgentBalance reads the balance of userCode under agentCode.
func AgentBalance(t testing.TB, db *gorm.DB, agentCode, userCode string) float64 {
	t.Helper()

	var user models.User
	if err := db.Where("agent_code = ? AND user_code = ?", agentCode, userCode).First(&user).Error; err != nil {
		t.Fatalf("load user %s/%s: %v", agentCode, userCode, err)
	}
	return user.Balance
}
