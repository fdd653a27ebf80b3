package assignment

import (
	"time"

	"github.com/google/uuid"
)

const (
	MethodAuto   = "auto"
	MethodManual = "manual"
)

// Assignment records one allocation of a patient to a therapist. Rows are
// written once and never updated.
type Assignment struct {
	ID         uuid.UUID  `json:"id"`
	Patient    uuid.UUID  `json:"patient"`
	Therapist  uuid.UUID  `json:"therapist"`
	Supervisor *uuid.UUID `json:"supervisor,omitempty"`
	Method     string     `json:"method"`
	Rationale  string     `json:"rationale"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	PatientName    string `json:"patientName,omitempty"`
	TherapistName  string `json:"therapistName,omitempty"`
	TherapistEmail string `json:"therapistEmail,omitempty"`
}

// AutoAssignRequest is the POST /api/assignments/auto-assign body.
type AutoAssignRequest struct {
	PatientID string `json:"patientId"`
}

// ManualAssignRequest is the POST /api/assignments/manual-assign body.
type ManualAssignRequest struct {
	PatientID   string `json:"patientId"`
	TherapistID string `json:"therapistId"`
	Rationale   string `json:"rationale"`
}

// createdEvent is the payload of events.AssignmentCreated.
type createdEvent struct {
	AssignmentID uuid.UUID  `json:"assignmentId"`
	PatientID    uuid.UUID  `json:"patientId"`
	TherapistID  uuid.UUID  `json:"therapistId"`
	SupervisorID *uuid.UUID `json:"supervisorId,omitempty"`
	Method       string     `json:"method"`
	Rationale    string     `json:"rationale"`
}
