// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/pkg/config"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database with the schema migrated
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        config.UTCNow,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

// CreateUser stores a user with a valid password
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "Secret123"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateGreenhouse stores a greenhouse owned by userID
func CreateGreenhouse(t *testing.T, db *gorm.DB, userID uint, name string) *models.Greenhouse {
	t.Helper()
	gh := &models.Greenhouse{Name: name, Location: "Sinaloa", UserID: userID}
	require.NoError(t, db.Create(gh).Error)
	return gh
}

// CreatePlant stores a plant in the greenhouse
func CreatePlant(t *testing.T, db *gorm.DB, greenhouseID uint, name string) *models.Plant {
	t.Helper()
	plant := &models.Plant{Name: name, Type: "tomato", GreenhouseID: greenhouseID}
	require.NoError(t, db.Create(plant).Error)
	return plant
}

// CreateSensor stores an active sensor in the greenhouse
func CreateSensor(t *testing.T, db *gorm.DB, greenhouseID uint, name, sensorType string) *models.Sensor {
	t.Helper()
	sensor := &models.Sensor{GreenhouseID: greenhouseID, Name: name, Type: sensorType, Active: true}
	require.NoError(t, db.Create(sensor).Error)
	return sensor
}

// CreateChat stores a chat owned by ownerID
func CreateChat(t *testing.T, db *gorm.DB, ownerID uint, name string) *models.Chat {
	t.Helper()
	chat := &models.Chat{OwnerID: ownerID, Name: name}
	require.NoError(t, db.Create(chat).Error)
	return chat
}

// BackdateChat moves the chat's updated_at into the past
func BackdateChat(t *testing.T, db *gorm.DB, chatID uint, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.Chat{}).Where("id = ?", chatID).UpdateColumn("updated_at", at).Error)
}
