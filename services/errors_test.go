package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", &ErrValidation{Field: "email", Message: "required"}, http.StatusBadRequest},
		{"authorization", &ErrAuthorization{Message: "not yours"}, http.StatusForbidden},
		{"not found", &ErrNotFound{Resource: "job"}, http.StatusNotFound},
		{"precondition", &ErrPrecondition{Operation: "start quiz", CurrentStage: "video_pending"}, http.StatusBadRequest},
		{"collaborator", &ErrCollaborator{Service: "gemini", Err: errors.New("timeout")}, http.StatusServiceUnavailable},
		{"wrapped collaborator", fmt.Errorf("scoring: %w", &ErrCollaborator{Service: "gemini", Err: errors.New("timeout")}), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestCollaboratorErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ErrCollaborator{Service: "gemini", Err: cause}
	assert.True(t, errors.Is(err, cause))
}
