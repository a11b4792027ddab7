// Package dispatch implements the reference point lifecycle: firing the
// user-facing action at trigger time, recording intern responses,
// completing points, escalating missed deadlines to managers, and
// advancing the roadmap to the next point.
//
// Scheduling is lazy: only the current point of each roadmap has jobs
// bound. Every completion path funnels through Dispatcher.Complete,
// which cancels the point's jobs and binds the next point. A missed
// advance would silently stall the roadmap, so there is exactly one
// choke point for it.
package dispatch
