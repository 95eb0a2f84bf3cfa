package documents

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrRecordNotFound = errors.New("document not found")

// Entities named by ReferenceNotFound.
const (
	EntityEncounter = "encounter"
	EntityPatient   = "patient"
	EntityClinician = "clinician"
	EntityDocument  = "document"
)

// ValidationError is a malformed identifier or a missing or invalid payload
// field. It is raised before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ReferenceNotFound names the entity that does not exist.
type ReferenceNotFound struct {
	Entity string
	ID     string
}

func (e *ReferenceNotFound) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// DuplicateDocument carries the record that already exists for the
// encounter and type.
type DuplicateDocument struct {
	ID          uuid.UUID
	ArtifactURL *string
}

func (e *DuplicateDocument) Error() string {
	return fmt.Sprintf("document already exists for this encounter (id %s)", e.ID)
}

// RenderFailure is a structural defect in the document layout.
type RenderFailure struct {
	DocumentType DocumentType
	Err          error
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("render %s: %v", e.DocumentType, e.Err)
}

func (e *RenderFailure) Unwrap() error { return e.Err }

// UploadFailure is a storage error. It never fails a request.
type UploadFailure struct {
	Path string
	Err  error
}

func (e *UploadFailure) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadFailure) Unwrap() error { return e.Err }

// NotificationFailure is a failed referral notification for one specialty.
type NotificationFailure struct {
	Specialty string
	Err       error
}

func (e *NotificationFailure) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Specialty, e.Err)
}

func (e *NotificationFailure) Unwrap() error { return e.Err }
