package assign

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onboardkit/roadmapbot/pkg/core"
	"github.com/onboardkit/roadmapbot/pkg/dispatch"
	"github.com/onboardkit/roadmapbot/pkg/scheduler"
	"github.com/onboardkit/roadmapbot/pkg/storage"
)

type nullMessenger struct{}

func (nullMessenger) Send(ctx context.Context, chatID int64, text string, keyboard *dispatch.Keyboard) (int, error) {
	return 1, nil
}

func (nullMessenger) EditReplyMarkup(ctx context.Context, chatID int64, messageID int, keyboard *dispatch.Keyboard) error {
	return nil
}

type testEnv struct {
	store  *storage.GormStore
	sched  *scheduler.Scheduler
	a      *Assigner
	intern *core.User
}

var userSeq int

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")

	store := storage.NewGormStore(db)
	require.NoError(t, store.Migrate(ctx), "migrate")

	sched := scheduler.New()
	d := dispatch.New(store, sched, nullMessenger{})

	userSeq++
	intern := &core.User{
		FirstName:   "Пётр",
		LastName:    "Иванов",
		Role:        core.RoleUser,
		TgID:        int64(700000 + userSeq),
		Email:       fmt.Sprintf("assign%d@example.com", userSeq),
		PhoneNumber: fmt.Sprintf("+7922000%04d", userSeq),
		Timezone:    "Europe/Moscow",
		IsActive:    true,
	}
	require.NoError(t, store.CreateUser(ctx, intern))

	return &testEnv{store: store, sched: sched, a: New(store, d), intern: intern}
}

// createTemplate persists a three-point template: a notification, a
// one-question test and a blocked point that assignment must skip.
func (e *testEnv) createTemplate(t *testing.T) *core.TemplateRoadMap {
	t.Helper()
	answers, err := core.EncodeAnswers([]string{"Да", "Нет", "Не знаю"})
	require.NoError(t, err)

	tpl := &core.TemplateRoadMap{
		Name:        "База для официантов",
		Description: "Первая неделя",
		ReferencePoints: []core.TemplateReferencePoint{
			{
				Name:           "Знакомство с рестораном",
				PointType:      core.PointNotification,
				OrderExecution: 1,
				AutoClosing:    true,
				Notification:   &core.TemplateNotification{Text: "Добро пожаловать", Links: "https://example.com/menu"},
			},
			{
				Name:           "Черновик",
				PointType:      core.PointNotification,
				OrderExecution: 2,
				IsBlocked:      true,
				Notification:   &core.TemplateNotification{Text: "Не должно попасть в роадмап"},
			},
			{
				Name:           "Тест по меню",
				PointType:      core.PointTest,
				OrderExecution: 3,
				AutoClosing:    false,
				Test: &core.TemplateTest{
					Name: "Меню",
					Questions: []core.TemplateQuestion{
						{TextQuestion: "Есть ли в меню борщ?", Answers: answers, CorrectAnswer: 1},
					},
				},
			},
		},
	}
	require.NoError(t, e.store.CreateTemplateRoadmap(context.Background(), tpl))
	return tpl
}

func TestAssign_CopiesTemplateAndBindsFirstPoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl := env.createTemplate(t)

	rm, err := env.a.Assign(ctx, tpl.ID, env.intern.ID, []PointInput{
		{Trigger: "15.03.2026 10:00", Check: "16.03.2026 18:00", ReminderDays: "пропустить"},
		{Trigger: "20.03.2026 10:00"},
	})
	require.NoError(t, err)
	require.NotZero(t, rm.ID)
	assert.Equal(t, tpl.Name, rm.Name)
	assert.True(t, rm.IsActive)

	got, err := env.store.GetRoadmap(ctx, rm.ID)
	require.NoError(t, err)
	require.Len(t, got.ReferencePoints, 2, "blocked template points are skipped")

	points := got.Points()
	assert.Equal(t, "Знакомство с рестораном", points[0].Name)
	assert.Equal(t, core.PointNotification, points[0].PointType)
	require.NotNil(t, points[0].Notification)
	assert.Equal(t, "Добро пожаловать", points[0].Notification.Text)
	assert.Equal(t, "https://example.com/menu", points[0].Notification.Links)
	require.NotNil(t, points[0].CheckDatetime)

	assert.Equal(t, "Тест по меню", points[1].Name)
	require.NotNil(t, points[1].Test)
	require.Len(t, points[1].Test.Questions, 1)
	assert.Equal(t, "Есть ли в меню борщ?", points[1].Test.Questions[0].TextQuestion)

	// Times entered in the intern's zone are stored UTC.
	assert.Equal(t, time.Date(2026, 3, 15, 7, 0, 0, 0, time.UTC), points[0].TriggerDatetime.UTC())

	// Only the first point carries jobs.
	assert.True(t, env.sched.Pending(fmt.Sprintf("%d:dispatch", points[0].ID)))
	assert.True(t, env.sched.Pending(fmt.Sprintf("%d:escalate", points[0].ID)))
	assert.False(t, env.sched.Pending(fmt.Sprintf("%d:dispatch", points[1].ID)))
}

func TestAssign_BlockedTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	blocked := &core.TemplateRoadMap{Name: "Закрытый", IsBlocked: true}
	require.NoError(t, env.store.CreateTemplateRoadmap(ctx, blocked))

	_, err := env.a.Assign(ctx, blocked.ID, env.intern.ID, nil)
	assert.ErrorIs(t, err, core.ErrTemplateBlocked)
}

func TestAssign_SecondActiveRoadmapRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl := env.createTemplate(t)

	inputs := []PointInput{
		{Trigger: "15.03.2026 10:00"},
		{Trigger: "20.03.2026 10:00"},
	}
	_, err := env.a.Assign(ctx, tpl.ID, env.intern.ID, inputs)
	require.NoError(t, err)

	_, err = env.a.Assign(ctx, tpl.ID, env.intern.ID, inputs)
	assert.ErrorIs(t, err, core.ErrRoadmapActive)
}

func TestAssign_InputCountMustMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl := env.createTemplate(t)

	_, err := env.a.Assign(ctx, tpl.ID, env.intern.ID, []PointInput{
		{Trigger: "15.03.2026 10:00"},
	})
	require.Error(t, err)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "inputs", verr.Field)
}

func TestAssign_InvalidDateLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl := env.createTemplate(t)

	_, err := env.a.Assign(ctx, tpl.ID, env.intern.ID, []PointInput{
		{Trigger: "15.03.2026 10:00"},
		{Trigger: "31.02.2026 10:00"}, // no such date
	})
	require.Error(t, err)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "trigger_datetime", verr.Field)

	// Validation failed before persistence: no roadmap, no jobs.
	_, err = env.store.ActiveRoadmapForUser(ctx, env.intern.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 0, env.sched.Len())
}

func TestAssign_UnknownTemplateOrIntern(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl := env.createTemplate(t)

	_, err := env.a.Assign(ctx, 9999, env.intern.ID, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = env.a.Assign(ctx, tpl.ID, 9999, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
