// Package assign instantiates live roadmaps from templates: it
// validates the operator-supplied per-point schedule inputs, copies the
// template structure into persisted entities, and binds the jobs of the
// first active point only. Subsequent points are scheduled lazily as
// their predecessors complete.
package assign
