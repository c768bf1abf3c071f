package apperr

import (
	"errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		BadRequest("x", "x"):     http.StatusBadRequest,
		Unauthorized("x", "x"):   http.StatusUnauthorized,
		Forbidden("x", "x"):      http.StatusForbidden,
		NotFound("x", "x"):       http.StatusNotFound,
		Internal(errors.New("")): http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, From(err).Status())
	}
}

func TestFromUnwrapsWrappedErrors(t *testing.T) {
	err := pkgerrors.Wrap(Forbidden("not_participant", "not a participant"), "get messages")
	appErr := From(err)
	assert.Equal(t, KindForbidden, appErr.Kind)
	assert.Equal(t, "not_participant", appErr.Code)
	assert.True(t, Is(err, KindForbidden))
}

func TestFromPlainErrorIsInternal(t *testing.T) {
	cause := errors.New("boom")
	appErr := From(cause)
	assert.Equal(t, KindInternal, appErr.Kind)
	assert.ErrorIs(t, appErr, cause)
}
