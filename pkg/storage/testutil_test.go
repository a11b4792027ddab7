package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onboardkit/roadmapbot/pkg/core"
)

// openTestDB opens a database for tests.
// When TEST_DATABASE_URL is set it connects to PostgreSQL; otherwise it
// opens a fresh in-memory SQLite instance.
// PostgreSQL connections are pool-limited and closed on test cleanup to
// avoid exceeding max_connections.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err, "open postgres test db")

		sqlDB, err := db.DB()
		require.NoError(t, err, "get underlying sql.DB")
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(1)

		// Clean before AND after to ensure test isolation.
		cleanupPostgresDB(t, db)
		t.Cleanup(func() {
			cleanupPostgresDB(t, db)
			_ = sqlDB.Close()
		})
		return db
	}
	// Foreign keys are off by default in SQLite; the cascade
	// constraints need them on.
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")
	return db
}

// cleanupPostgresDB deletes all rows from tables after each test
// so tests are isolated without requiring a fresh database per test.
func cleanupPostgresDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	// Order matters: respect foreign key constraints.
	tables := []string{
		"dialogs", "invitation_links",
		"questions", "tests", "notifications", "feedback_requests",
		"reference_points", "user_road_maps", "road_maps",
		"template_questions", "template_tests", "template_notifications",
		"template_feedback_requests", "template_reference_points",
		"template_road_maps",
		"users", "restaurants",
	}
	for _, tbl := range tables {
		db.Exec("DELETE FROM " + tbl)
	}
}

// newTestStore opens a migrated store.
func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s := NewGormStore(openTestDB(t))
	require.NoError(t, s.Migrate(context.Background()), "migrate")
	return s
}

var userSeq int

// newTestUser builds a user with unique tg id, email and phone.
func newTestUser(role core.UserRole) *core.User {
	userSeq++
	return &core.User{
		FirstName:   "Иван",
		LastName:    "Петров",
		Role:        role,
		TgID:        int64(100000 + userSeq),
		Email:       fmt.Sprintf("user%d@example.com", userSeq),
		PhoneNumber: fmt.Sprintf("+7900000%04d", userSeq),
		Timezone:    "Europe/Moscow",
		IsActive:    true,
	}
}

// newTestRoadmap builds an active roadmap with n incomplete
// notification points triggered one hour apart starting at base.
func newTestRoadmap(n int, base time.Time) *core.RoadMap {
	rm := &core.RoadMap{Name: "Адаптация", IsActive: true}
	for i := 0; i < n; i++ {
		rm.ReferencePoints = append(rm.ReferencePoints, core.ReferencePoint{
			Name:            fmt.Sprintf("Точка %d", i+1),
			PointType:       core.PointNotification,
			OrderExecution:  i + 1,
			AutoClosing:     true,
			TriggerDatetime: base.Add(time.Duration(i) * time.Hour),
			Notification:    &core.Notification{Text: fmt.Sprintf("Текст %d", i+1)},
		})
	}
	return rm
}
