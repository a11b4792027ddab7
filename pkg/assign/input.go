package assign

import (
	"strconv"
	"strings"
	"time"

	"github.com/onboardkit/roadmapbot/pkg/core"
)

// DatetimeFormat is the operator input format: ДД.ММ.ГГГГ ЧЧ:ММ.
const DatetimeFormat = "02.01.2006 15:04"

// Skip is the sentinel the operator enters to leave an optional field
// empty.
const Skip = "пропустить"

// PointInput is the raw operator input for one point's schedule:
// trigger time (required), deadline and reminder days (both optional,
// skippable with Skip).
type PointInput struct {
	Trigger      string
	Check        string
	ReminderDays string
}

// PointSchedule is a validated, parsed schedule. Times are UTC.
type PointSchedule struct {
	Trigger      time.Time
	Check        *time.Time
	ReminderDays int
}

// ParsePointInput validates and parses one point's schedule input.
// Times are interpreted in the intern's location and stored UTC. On
// bad input it returns a core.ValidationError naming the offending
// field, so the surrounding flow re-prompts the same step.
func ParsePointInput(in PointInput, loc *time.Location) (PointSchedule, error) {
	var sched PointSchedule

	trigger := strings.TrimSpace(in.Trigger)
	if trigger == "" || strings.EqualFold(trigger, Skip) {
		return sched, &core.ValidationError{Field: "trigger_datetime", Reason: "required"}
	}
	t, err := time.ParseInLocation(DatetimeFormat, trigger, loc)
	if err != nil {
		return sched, &core.ValidationError{Field: "trigger_datetime", Reason: "invalid format"}
	}
	sched.Trigger = t.UTC()

	check := strings.TrimSpace(in.Check)
	if check != "" && !strings.EqualFold(check, Skip) {
		c, err := time.ParseInLocation(DatetimeFormat, check, loc)
		if err != nil {
			return sched, &core.ValidationError{Field: "check_datetime", Reason: "invalid format"}
		}
		cu := c.UTC()
		sched.Check = &cu
	}

	days := strings.TrimSpace(in.ReminderDays)
	if days != "" && !strings.EqualFold(days, Skip) {
		n, err := strconv.Atoi(days)
		if err != nil {
			return sched, &core.ValidationError{Field: "reminder_days_before", Reason: "invalid format"}
		}
		if n < 0 {
			return sched, &core.ValidationError{Field: "reminder_days_before", Reason: "must not be negative"}
		}
		sched.ReminderDays = n
	}

	return sched, nil
}
