package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointType_Valid(t *testing.T) {
	assert.True(t, PointNotification.Valid())
	assert.True(t, PointTest.Valid())
	assert.True(t, PointFeedbackRequest.Valid())
	assert.False(t, PointType("SURVEY").Valid())
	assert.False(t, PointType("").Valid())
}

func TestReferencePoint_Status(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name  string
		point ReferencePoint
		want  PointStatus
	}{
		{"not yet delivered", ReferencePoint{}, StatusPending},
		{"completed wins", ReferencePoint{IsCompleted: true, DeliveredAt: &now}, StatusCompleted},
		{
			"delivered auto-closing",
			ReferencePoint{AutoClosing: true, DeliveredAt: &now},
			StatusDelivered,
		},
		{
			"delivered waiting for response",
			ReferencePoint{AutoClosing: false, DeliveredAt: &now},
			StatusAwaitingResponse,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.point.Status())
		})
	}
}

func TestReferencePoint_SubRecord(t *testing.T) {
	n := &Notification{Text: "текст"}
	p := ReferencePoint{PointType: PointNotification, Notification: n}
	assert.Equal(t, n, p.SubRecord())

	// A sub-record that does not match the type does not count.
	p = ReferencePoint{PointType: PointTest, Notification: n}
	assert.Nil(t, p.SubRecord())

	p = ReferencePoint{PointType: PointNotification}
	assert.Nil(t, p.SubRecord())
}

func TestTest_UnansweredCount(t *testing.T) {
	one := 1
	test := Test{Questions: []Question{
		{UserAnswer: &one},
		{},
		{},
	}}
	assert.Equal(t, 2, test.UnansweredCount())

	assert.Equal(t, 0, (&Test{}).UnansweredCount())
}

func TestQuestion_AnswerRoundTrip(t *testing.T) {
	encoded, err := EncodeAnswers([]string{"Да", "Нет", "Не знаю"})
	require.NoError(t, err)

	q := Question{Answers: encoded}
	answers, err := q.AnswerList()
	require.NoError(t, err)
	assert.Equal(t, []string{"Да", "Нет", "Не знаю"}, answers)
}

func TestEncodeAnswers_TooMany(t *testing.T) {
	many := make([]string, MaxAnswersPerQuestion+1)
	for i := range many {
		many[i] = "вариант"
	}
	_, err := EncodeAnswers(many)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestAnswerList_Malformed(t *testing.T) {
	q := Question{ID: 7, Answers: "not json"}
	_, err := q.AnswerList()
	assert.Error(t, err)
}

func TestRoadMap_PointsOrdering(t *testing.T) {
	rm := RoadMap{ReferencePoints: []ReferencePoint{
		{Name: "третья", OrderExecution: 3},
		{Name: "первая", OrderExecution: 1},
		{Name: "вторая", OrderExecution: 2, IsCompleted: true},
	}}

	points := rm.Points()
	require.Len(t, points, 3)
	assert.Equal(t, "первая", points[0].Name)
	assert.Equal(t, "вторая", points[1].Name)
	assert.Equal(t, "третья", points[2].Name)

	active := rm.ActivePoints()
	require.Len(t, active, 2)
	assert.Equal(t, "первая", active[0].Name)
	assert.Equal(t, "третья", active[1].Name)
}

func TestRoadMap_CurrentPoint(t *testing.T) {
	deadline := time.Now()
	rm := RoadMap{ReferencePoints: []ReferencePoint{
		{Name: "первая", OrderExecution: 1, IsCompleted: true, CheckDatetime: &deadline},
		{Name: "вторая", OrderExecution: 2},
		{Name: "третья", OrderExecution: 3, CheckDatetime: &deadline},
	}}

	// The first incomplete point with a deadline window, skipping
	// incomplete points without one.
	current := rm.CurrentPoint()
	require.NotNil(t, current)
	assert.Equal(t, "третья", current.Name)

	assert.Nil(t, (&RoadMap{}).CurrentPoint())
}

func TestTemplateRoadMap_AssignablePoints(t *testing.T) {
	tpl := TemplateRoadMap{ReferencePoints: []TemplateReferencePoint{
		{Name: "вторая", OrderExecution: 2},
		{Name: "черновик", OrderExecution: 1, IsBlocked: true},
		{Name: "первая", OrderExecution: 1},
	}}

	points := tpl.AssignablePoints()
	require.Len(t, points, 2)
	assert.Equal(t, "первая", points[0].Name)
	assert.Equal(t, "вторая", points[1].Name)
}

func TestUser_FullNameAndLocation(t *testing.T) {
	u := User{FirstName: "Анна", LastName: "Смирнова", Timezone: "Asia/Yekaterinburg"}
	assert.Equal(t, "Анна Смирнова", u.FullName())
	assert.Equal(t, "Asia/Yekaterinburg", u.Location().String())

	// Empty and bogus zones fall back to the default.
	u.Timezone = ""
	assert.Equal(t, DefaultTimezone, u.Location().String())
	u.Timezone = "Mars/Olympus"
	assert.Equal(t, DefaultTimezone, u.Location().String())
}

func TestNewInvitationLink(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inv := NewInvitationLink(7, now, 48*time.Hour)
	assert.Equal(t, uint(7), inv.UserID)
	assert.Len(t, inv.LinkToken, 36)
	assert.False(t, inv.IsUsed)
	assert.Equal(t, now.Add(48*time.Hour), inv.ExpiresAt)

	// Zero TTL falls back to the default validity window.
	inv = NewInvitationLink(7, now, 0)
	assert.Equal(t, now.Add(DefaultInvitationTTL), inv.ExpiresAt)

	// Tokens are unique per invitation.
	other := NewInvitationLink(7, now, 48*time.Hour)
	assert.NotEqual(t, inv.LinkToken, other.LinkToken)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Тест по меню"))
	assert.Error(t, ValidateName("  "))
	assert.Error(t, ValidateName(strings.Repeat("а", MaxNameLength+1)))
	// Limits count runes, not bytes.
	assert.NoError(t, ValidateName(strings.Repeat("а", MaxNameLength)))
}

func TestValidateFeedback(t *testing.T) {
	assert.NoError(t, ValidateFeedback("Всё понравилось"))
	assert.Error(t, ValidateFeedback(""))
	assert.Error(t, ValidateFeedback(strings.Repeat("ж", MaxFeedbackLength+1)))
}

func TestTruncateFeedback(t *testing.T) {
	short := "короткий отзыв"
	assert.Equal(t, short, TruncateFeedback(short))

	long := strings.Repeat("ж", MaxFeedbackLength+100)
	got := TruncateFeedback(long)
	assert.Equal(t, MaxFeedbackLength, len([]rune(got)))
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "name", Reason: "too long"}
	assert.Contains(t, err.Error(), "name")
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(ErrNotFound))
	assert.False(t, IsValidation(nil))
}

func TestUnknownPointTypeError(t *testing.T) {
	err := &UnknownPointTypeError{PointID: 12, Type: "SURVEY"}
	assert.Contains(t, err.Error(), "12")
	assert.Contains(t, err.Error(), "SURVEY")
}
