package models

import "time"

// OutsiderReason explains why a joined participant could not be matched
// to the class roster.
type OutsiderReason string

const (
	OutsiderReasonNotInClass      OutsiderReason = "not_in_class"
	OutsiderReasonStudentNotFound OutsiderReason = "student_not_found"
	OutsiderReasonNoClassSet      OutsiderReason = "no_class_set"
)

// RosterEntry is an expected student for a class-linked session.
type RosterEntry struct {
	StudentID   string     `json:"student_id"`
	DisplayName string     `json:"display_name"`
	SchoolID    string     `json:"school_id,omitempty"`
	Joined      bool       `json:"joined"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`
}

// OutsiderRecord is a joined participant that does not match any roster
// entry. Detection happens server-side; the client only displays it.
type OutsiderRecord struct {
	ParticipantID string         `json:"participant_id"`
	DisplayName   string         `json:"display_name"`
	StudentID     string         `json:"student_id,omitempty"`
	Reason        OutsiderReason `json:"reason"`
	DetectedAt    time.Time      `json:"detected_at"`
}
