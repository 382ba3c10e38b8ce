package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/repos"
	"github.com/rahulvalluru1-source/fieldtrack/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceInsertCheckInIgnoresDuplicateDay(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.OpenDB(t)
	repo := repos.NewAttendanceRepo(db)
	u := testhelpers.CreateUser(t, db, "rina", models.RoleEmployee)

	at := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	created, err := repo.InsertCheckIn(ctx, &models.AttendanceRecord{UserID: u.ID, Date: "2026-03-02", CheckInTime: &at})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.InsertCheckIn(ctx, &models.AttendanceRecord{UserID: u.ID, Date: "2026-03-02", CheckInTime: &at})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.FindByUserDate(ctx, u.ID, "2026-03-03")
	assert.ErrorIs(t, err, repos.ErrNotFound)
}

func TestAttendanceMarkCheckOutOnlyOnce(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.OpenDB(t)
	repo := repos.NewAttendanceRepo(db)
	u := testhelpers.CreateUser(t, db, "rina", models.RoleEmployee)

	in := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	rec := &models.AttendanceRecord{UserID: u.ID, Date: "2026-03-02", CheckInTime: &in}
	_, err := repo.InsertCheckIn(ctx, rec)
	require.NoError(t, err)

	out := in.Add(8*time.Hour + 30*time.Minute)
	ok, err := repo.MarkCheckOut(ctx, rec.ID, out, 8.5, "-6.2,106.8")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkCheckOut(ctx, rec.ID, out.Add(time.Hour), 9.5, "-6.2,106.8")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByUserDate(ctx, u.ID, "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, got.TotalHours)
	assert.Equal(t, 8.5, *got.TotalHours)
	assert.Equal(t, "-6.2,106.8", got.CheckOutLocation)
}

func TestAttendanceListOpenBeforeAndFlag(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.OpenDB(t)
	repo := repos.NewAttendanceRepo(db)
	u := testhelpers.CreateUser(t, db, "rina", models.RoleEmployee)

	in := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	open := &models.AttendanceRecord{UserID: u.ID, Date: "2026-03-01", CheckInTime: &in}
	_, err := repo.InsertCheckIn(ctx, open)
	require.NoError(t, err)

	today := in.Add(24 * time.Hour)
	_, err = repo.InsertCheckIn(ctx, &models.AttendanceRecord{UserID: u.ID, Date: "2026-03-02", CheckInTime: &today})
	require.NoError(t, err)

	rows, err := repo.ListOpenBefore(ctx, "2026-03-02")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, open.ID, rows[0].ID)
	require.NotNil(t, rows[0].User)
	assert.Equal(t, "rina", rows[0].User.Name)

	note := func() *models.Notification {
		return &models.Notification{UserID: &u.ID, Type: models.NotificationMissedCheckout, Message: "missed",
			Status: models.NotificationUnread, Timestamp: today}
	}
	ok, err := repo.FlagMissedCheckout(ctx, open.ID, note())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.FlagMissedCheckout(ctx, open.ID, note())
	require.NoError(t, err)
	assert.False(t, ok)

	var notes int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notes).Error)
	assert.Equal(t, int64(1), notes)

	rows, err = repo.ListOpenBefore(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFlagMissedCheckoutRollsBackWhenNoteFails(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.OpenDB(t)
	repo := repos.NewAttendanceRepo(db)
	u := testhelpers.CreateUser(t, db, "rina", models.RoleEmployee)

	in := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	open := &models.AttendanceRecord{UserID: u.ID, Date: "2026-03-01", CheckInTime: &in}
	_, err := repo.InsertCheckIn(ctx, open)
	require.NoError(t, err)

	require.NoError(t, db.Migrator().DropTable(&models.Notification{}))
	note := &models.Notification{UserID: &u.ID, Type: models.NotificationMissedCheckout, Message: "missed",
		Status: models.NotificationUnread, Timestamp: in}
	ok, err := repo.FlagMissedCheckout(ctx, open.ID, note)
	require.Error(t, err)
	assert.False(t, ok)

	rows, err := repo.ListOpenBefore(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "record must stay eligible for the next sweep")
}

func TestTrackingLatestPerUserPicksMaxTimestamp(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.OpenDB(t)
	repo := repos.NewTrackingRepo(db)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	// Inserted out of timestamp order on purpose.
	samples := []models.TrackingSample{
		{UserID: 1, Latitude: 1, Longitude: 1, Battery: 90, Timestamp: base.Add(2 * time.Minute)},
		{UserID: 1, Latitude: 3, Longitude: 3, Battery: 80, Timestamp: base.Add(10 * time.Minute)},
		{UserID: 1, Latitude: 2, Longitude: 2, Battery: 85, Timestamp: base.Add(5 * time.Minute)},
		{UserID: 2, Latitude: 9, Longitude: 9, Battery: 50, Timestamp: base.Add(-2 * time.Hour)},
		{UserID: 3, Latitude: 7, Longitude: 7, Battery: 70, Timestamp: base.Add(time.Minute)},
	}
	for i := range samples {
		require.NoError(t, repo.Create(ctx, &samples[i]))
	}

	rows, err := repo.LatestPerUser(ctx, base.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, uint(1), rows[0].UserID)
	assert.Equal(t, 3.0, rows[0].Latitude)
	assert.Equal(t, uint(3), rows[1].UserID)

	latest, err := repo.LatestForUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 9.0, latest.Latitude)

	_, err = repo.LatestForUser(ctx, 42)
	assert.ErrorIs(t, err, repos.ErrNotFound)
}

func TestTrackingHistory(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.OpenDB(t)
	repo := repos.NewTrackingRepo(db)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Create(ctx, &models.TrackingSample{
			UserID: 1, Latitude: float64(i), Battery: 100, Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	rows, err := repo.History(ctx, 1, base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1.0, rows[0].Latitude)
	assert.Equal(t, 2.0, rows[1].Latitude)
}

func TestNotificationListFilters(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.OpenDB(t)
	repo := repos.NewNotificationRepo(db)

	one, two := uint(1), uint(2)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rows := []models.Notification{
		{UserID: &one, Type: models.NotificationFakeGPS, Message: "a", Status: models.NotificationUnread, Timestamp: now},
		{UserID: &two, Type: models.NotificationCheckIn, Message: "b", Status: models.NotificationUnread, Timestamp: now.Add(time.Minute)},
		{UserID: nil, Type: models.NotificationAdminBroadcast, Message: "c", Status: models.NotificationUnread, Timestamp: now.Add(2 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}

	all, err := repo.List(ctx, repos.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Message)

	own, err := repo.List(ctx, repos.NotificationFilter{UserID: &one, IncludeSystem: true})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	fake, err := repo.List(ctx, repos.NotificationFilter{Type: models.NotificationFakeGPS})
	require.NoError(t, err)
	require.Len(t, fake, 1)

	require.NoError(t, repo.MarkRead(ctx, fake[0].ID))
	got, err := repo.Get(ctx, fake[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationRead, got.Status)

	unread, err := repo.List(ctx, repos.NotificationFilter{Status: models.NotificationUnread})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	_, err = repo.Get(ctx, 999)
	assert.ErrorIs(t, err, repos.ErrNotFound)
}

func TestUserRepoLookups(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.OpenDB(t)
	repo := repos.NewUserRepo(db)
	a := testhelpers.CreateUser(t, db, "ayu", models.RoleEmployee)
	b := testhelpers.CreateUser(t, db, "budi", models.RoleAdmin)

	got, err := repo.FindByEmail(ctx, "budi@fieldtrack.test")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())

	names, err := repo.NamesByID(ctx, []uint{a.ID, b.ID, 99})
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{a.ID: "ayu", b.ID: "budi"}, names)

	_, err = repo.FindByID(ctx, 99)
	assert.ErrorIs(t, err, repos.ErrNotFound)
}
