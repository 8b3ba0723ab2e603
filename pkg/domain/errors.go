package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a record does not exist for the caller. Access
// to another principal's private record also yields NotFoundError so that
// record existence is never revealed across the tenant boundary.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NotOwnerError reports a mutation attempt on a record the caller can see
// but does not own. Only public templates can produce it.
type NotOwnerError struct {
	Entity EntityType
	ID     string
}

func (e NotOwnerError) Error() string {
	return fmt.Sprintf("%s %q is not owned by caller", e.Entity, e.ID)
}

// InvalidFieldError reports a dynamic field that is unknown to the capture
// type's schema or carries a value of the wrong kind.
type InvalidFieldError struct {
	CaptureType CaptureType
	Field       string
	Reason      string
}

func (e InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q for capture type %s: %s", e.Field, e.CaptureType, e.Reason)
}

// CyclicRelationshipError reports a parent assignment that would close a
// cycle in the capture hierarchy, or a chain exceeding MaxCaptureDepth.
type CyclicRelationshipError struct {
	CaptureID string
	ParentID  string
}

func (e CyclicRelationshipError) Error() string {
	return fmt.Sprintf("linking capture %q under %q would create a cycle or exceed depth", e.CaptureID, e.ParentID)
}

// DanglingReferenceError reports a relationship whose target is missing, such
// as a document pointing at a folder node removed from its workspace tree.
type DanglingReferenceError struct {
	Entity    EntityType
	EntityID  string
	Reference string
}

func (e DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s %q references missing %s", e.Entity, e.EntityID, e.Reference)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsNotOwner reports whether err is a NotOwnerError.
func IsNotOwner(err error) bool {
	var no NotOwnerError
	return errors.As(err, &no)
}

// IsInvalidField reports whether err is an InvalidFieldError.
func IsInvalidField(err error) bool {
	var iv InvalidFieldError
	return errors.As(err, &iv)
}
