package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onboardkit/roadmapbot/pkg/core"
	"github.com/onboardkit/roadmapbot/pkg/scheduler"
	"github.com/onboardkit/roadmapbot/pkg/storage"
)

// sentMessage records one Send call on the fake transport.
type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard *Keyboard
}

// fakeMessenger collects outgoing messages instead of delivering them.
type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	failSend error
}

func (m *fakeMessenger) Send(ctx context.Context, chatID int64, text string, keyboard *Keyboard) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend != nil {
		return 0, m.failSend
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return len(m.sent), nil
}

func (m *fakeMessenger) EditReplyMarkup(ctx context.Context, chatID int64, messageID int, keyboard *Keyboard) error {
	return nil
}

// messagesTo returns every message sent to the chat, in order.
func (m *fakeMessenger) messagesTo(chatID int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, msg := range m.sent {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

// fakeClock is a settable time source shared by the scheduler and the
// dispatcher under test.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testEnv wires a migrated in-memory store, a clock-driven scheduler
// and a dispatcher over a fake transport.
type testEnv struct {
	store *storage.GormStore
	sched *scheduler.Scheduler
	msgr  *fakeMessenger
	d     *Dispatcher
	clock *fakeClock

	manager *core.User
	intern  *core.User
}

var envSeq int

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")

	store := storage.NewGormStore(db)
	require.NoError(t, store.Migrate(ctx), "migrate")

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	sched := scheduler.New(scheduler.WithClock(clock.Now))
	msgr := &fakeMessenger{}
	d := New(store, sched, msgr, WithClock(clock.Now))

	env := &testEnv{store: store, sched: sched, msgr: msgr, d: d, clock: clock}
	env.manager = env.createUser(t, core.RoleManager, nil)
	env.intern = env.createUser(t, core.RoleUser, &env.manager.ID)
	return env
}

func (e *testEnv) createUser(t *testing.T, role core.UserRole, managerID *uint) *core.User {
	t.Helper()
	envSeq++
	user := &core.User{
		FirstName:   "Анна",
		LastName:    "Смирнова",
		Role:        role,
		TgID:        int64(500000 + envSeq),
		Email:       fmt.Sprintf("env%d@example.com", envSeq),
		PhoneNumber: fmt.Sprintf("+7911000%04d", envSeq),
		ManagerID:   managerID,
		IsActive:    true,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

// createRoadmap persists an active roadmap with the given points for
// the env's intern and returns it with point ids populated.
func (e *testEnv) createRoadmap(t *testing.T, points ...core.ReferencePoint) *core.RoadMap {
	t.Helper()
	rm := &core.RoadMap{Name: "Адаптация", IsActive: true, ReferencePoints: points}
	require.NoError(t, e.store.CreateRoadmap(context.Background(), rm, e.intern.ID))
	return rm
}

func notificationPoint(order int, trigger time.Time) core.ReferencePoint {
	return core.ReferencePoint{
		Name:            fmt.Sprintf("Уведомление %d", order),
		PointType:       core.PointNotification,
		OrderExecution:  order,
		AutoClosing:     true,
		TriggerDatetime: trigger,
		Notification:    &core.Notification{Text: "Прочитайте регламент"},
	}
}

func testPoint(t *testing.T, order int, trigger time.Time, questions int) core.ReferencePoint {
	t.Helper()
	answers, err := core.EncodeAnswers([]string{"Да", "Нет"})
	require.NoError(t, err)

	test := &core.Test{Name: "Тест по стандартам"}
	for i := 0; i < questions; i++ {
		test.Questions = append(test.Questions, core.Question{
			TextQuestion:  fmt.Sprintf("Вопрос %d", i+1),
			Answers:       answers,
			CorrectAnswer: 1,
		})
	}
	return core.ReferencePoint{
		Name:            fmt.Sprintf("Тест %d", order),
		PointType:       core.PointTest,
		OrderExecution:  order,
		AutoClosing:     false,
		TriggerDatetime: trigger,
		Test:            test,
	}
}

func feedbackPoint(order int, trigger time.Time) core.ReferencePoint {
	return core.ReferencePoint{
		Name:            fmt.Sprintf("Обратная связь %d", order),
		PointType:       core.PointFeedbackRequest,
		OrderExecution:  order,
		AutoClosing:     false,
		TriggerDatetime: trigger,
		FeedbackRequest: &core.FeedbackRequest{Text: "Расскажите о первой неделе"},
	}
}
