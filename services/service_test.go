package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devloops/devloops/models"
)

// openTestDB opens a fresh in-memory store per test, migrated for every
// model the services touch.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Answer{},
		&models.Tag{},
		&models.Vote{},
		&models.Loop{},
		&models.LoopMember{},
		&models.Interaction{},
		&models.PageView{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createQuestion(t *testing.T, db *gorm.DB, authorID uint, title string) models.Question {
	t.Helper()
	question := models.Question{Title: title, Content: "body of " + title, AuthorID: authorID}
	require.NoError(t, db.Create(&question).Error)
	return question
}

func reputationOf(t *testing.T, db *gorm.DB, userID uint) int {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, userID).Error)
	return user.Reputation
}
