package core

import (
	"strings"
	"unicode/utf8"
)

// Field limits, mirrored in the GORM column sizes.
const (
	// MaxNameLength bounds roadmap, point and test names.
	MaxNameLength = 100

	// MaxFirstNameLength and friends bound user name parts.
	MaxFirstNameLength = 50
	MaxLastNameLength  = 50

	// MaxTimezoneLength bounds stored IANA zone names.
	MaxTimezoneLength = 35

	// MaxAnswersPerQuestion bounds the answer choices of one question.
	MaxAnswersPerQuestion = 5

	// MaxFeedbackLength bounds free-text intern feedback.
	MaxFeedbackLength = 4096
)

// ValidateName checks a roadmap/point/test name for emptiness and
// length.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: "too long"}
	}
	return nil
}

// ValidateFeedback checks free-text feedback before storage.
func ValidateFeedback(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "feedback", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(text) > MaxFeedbackLength {
		return &ValidationError{Field: "feedback", Reason: "too long"}
	}
	return nil
}

// TruncateFeedback clamps over-long feedback instead of dropping it,
// for paths where re-prompting is not possible.
func TruncateFeedback(text string) string {
	if utf8.RuneCountInString(text) <= MaxFeedbackLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxFeedbackLength])
}
