package database_test

import (
	"testing"

	"github.com/rahulvalluru1-source/fieldtrack/internal/auth"
	"github.com/rahulvalluru1-source/fieldtrack/internal/config"
	"github.com/rahulvalluru1-source/fieldtrack/internal/database"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdminIsIdempotent(t *testing.T) {
	db := testhelpers.OpenDB(t)
	seed := config.SeedConfig{AdminEmail: "admin@fieldtrack.test", AdminPassword: "pw", AdminName: "Boss"}

	require.NoError(t, database.SeedAdmin(db, seed))
	require.NoError(t, database.SeedAdmin(db, seed))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.True(t, auth.CheckPassword(users[0].PasswordHash, "pw"))
}

func TestSeedAdminNormalizesEmail(t *testing.T) {
	db := testhelpers.OpenDB(t)
	require.NoError(t, database.SeedAdmin(db, config.SeedConfig{AdminEmail: " Ops@Example.com ", AdminPassword: "pw", AdminName: "Ops"}))
	require.NoError(t, database.SeedAdmin(db, config.SeedConfig{AdminEmail: "ops@example.com", AdminPassword: "pw", AdminName: "Ops"}))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "ops@example.com", users[0].Email)
}

func TestSeedAdminSkipsWithoutCredentials(t *testing.T) {
	db := testhelpers.OpenDB(t)
	require.NoError(t, database.SeedAdmin(db, config.SeedConfig{}))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUniqueAttendancePerUserDay(t *testing.T) {
	db := testhelpers.OpenDB(t)
	u := testhelpers.CreateUser(t, db, "rina", models.RoleEmployee)

	require.NoError(t, db.Create(&models.AttendanceRecord{UserID: u.ID, Date: "2026-03-02"}).Error)
	assert.Error(t, db.Create(&models.AttendanceRecord{UserID: u.ID, Date: "2026-03-02"}).Error)
	assert.NoError(t, db.Create(&models.AttendanceRecord{UserID: u.ID, Date: "2026-03-03"}).Error)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := database.Connect(config.Config{DB: config.DBConfig{Driver: "oracle"}})
	assert.Error(t, err)
}
