// Package scheduler provides the process-wide one-shot job scheduler
// for reference point dispatch, escalation and reminders.
//
// One Scheduler instance is created at startup and owns a single fire
// loop; jobs are keyed by string id and fire exactly once at or after
// their scheduled time. The scheduler holds only re-derivable state:
// after a restart, pending jobs are rebuilt from the store by the
// dispatch layer's rehydration scan.
package scheduler
