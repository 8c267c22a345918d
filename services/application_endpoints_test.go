package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/backend/models"
)

func TestAuthorizeJob(t *testing.T) {
	store := newFakeStore()
	job := testJob(store)
	owner := &models.User{ID: job.PostedBy, Role: models.RoleEmployer}
	other := &models.User{ID: "employer-2", Role: models.RoleEmployer}

	got, err := authorizeJob(context.Background(), store, job.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	// Another employer's job is forbidden, not hidden.
	_, err = authorizeJob(context.Background(), store, job.ID, other)
	var authz *ErrAuthorization
	require.True(t, errors.As(err, &authz))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(err))

	_, err = authorizeJob(context.Background(), store, "job-missing", owner)
	var notFound *ErrNotFound
	require.True(t, errors.As(err, &notFound))
}
