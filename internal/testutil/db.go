// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aigyoo-backend/internal/config"
	"aigyoo-backend/internal/models"
)

// NewDB opens an in-memory SQLite database private to the test and migrates
// the schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// CreateUser inserts a user with its profile.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.Profile {
	t.Helper()

	user := models.User{
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)

	profile := models.Profile{
		ID:       user.ID,
		Username: username,
		FullName: strings.ToUpper(username[:1]) + username[1:],
		Role:     role,
	}
	require.NoError(t, db.Create(&profile).Error)
	return &profile
}

// At returns a fixed base time shifted by d, for ordering assertions.
func At(d time.Duration) time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(d)
}
