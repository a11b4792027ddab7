package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	ErrNotFound         = errors.New("roadmap: not found")
	ErrPermissionDenied = errors.New("roadmap: permission denied")
	ErrRoadmapActive    = errors.New("roadmap: user already has an active roadmap")
	ErrTemplateBlocked  = errors.New("roadmap: template is blocked for assignment")
)

// ValidationError reports malformed operator input. The surrounding
// flow re-prompts the same step; state is never advanced on validation
// failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("roadmap: invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UnknownPointTypeError indicates a reference point whose type matches
// none of the known variants. Fatal for that single point's dispatch;
// logged, never retried, never crashes the process.
type UnknownPointTypeError struct {
	PointID uint
	Type    PointType
}

func (e *UnknownPointTypeError) Error() string {
	return fmt.Sprintf("roadmap: point %d has unknown type %q", e.PointID, e.Type)
}
