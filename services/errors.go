package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrValidation indicates malformed input: missing file, wrong mime type,
// invalid id, or a contract violation in a collaborator response.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrAuthorization indicates the requester does not own the resource or has the
// wrong role.
type ErrAuthorization struct {
	Message string
}

func (e *ErrAuthorization) Error() string {
	if e.Message == "" {
		return "not authorized"
	}
	return e.Message
}

// ErrPrecondition indicates an operation invoked from the wrong screening stage,
// e.g. submitting a quiz that is not in progress.
type ErrPrecondition struct {
	Operation    string
	CurrentStage string
}

func (e *ErrPrecondition) Error() string {
	return fmt.Sprintf("%s not allowed from stage %s", e.Operation, e.CurrentStage)
}

// ErrCollaborator indicates an AI collaborator call failed; the client is told
// to retry later.
type ErrCollaborator struct {
	Service string
	Err     error
}

func (e *ErrCollaborator) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Service, e.Err)
}

func (e *ErrCollaborator) Unwrap() error { return e.Err }

// ErrNotFound indicates the resource does not exist or is hidden from the
// requester.
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// HTTPStatus maps an error to the status code the handler should write.
func HTTPStatus(err error) int {
	var (
		validation    *ErrValidation
		authorization *ErrAuthorization
		precondition  *ErrPrecondition
		collaborator  *ErrCollaborator
		notFound      *ErrNotFound
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &precondition):
		return http.StatusBadRequest
	case errors.As(err, &authorization):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &collaborator):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
