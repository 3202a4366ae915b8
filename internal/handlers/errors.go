package handlers

import (
	"errors"
	"net/http"

	"github.com/japanesestudent/course-authoring/internal/authoring"
	"github.com/japanesestudent/course-authoring/internal/repositories"
	"github.com/japanesestudent/course-authoring/internal/services"
)

// errorStatuses maps domain errors to HTTP status codes. Errors not listed are 500.
var errorStatuses = []struct {
	err    error
	status int
}{
	{services.ErrSessionNotFound, http.StatusNotFound},
	{repositories.ErrCourseNotFound, http.StatusNotFound},
	{authoring.ErrMediaNotFound, http.StatusNotFound},
	{authoring.ErrTagNotFound, http.StatusNotFound},
	{authoring.ErrSessionClosed, http.StatusGone},
	{authoring.ErrCommitInFlight, http.StatusConflict},
	{authoring.ErrNoChanges, http.StatusConflict},
	{authoring.ErrIntentNotAllowed, http.StatusConflict},
	{authoring.ErrValidationFailed, http.StatusUnprocessableEntity},
	{authoring.ErrCommitFailed, http.StatusBadGateway},
	{authoring.ErrUnknownIntent, http.StatusBadRequest},
	{authoring.ErrIndexOutOfRange, http.StatusBadRequest},
	{authoring.ErrUnsupportedMediaType, http.StatusBadRequest},
	{authoring.ErrMediaTooLarge, http.StatusBadRequest},
	{authoring.ErrNotAnImage, http.StatusBadRequest},
	{authoring.ErrEmptyTag, http.StatusBadRequest},
	{authoring.ErrDuplicateTag, http.StatusBadRequest},
	{authoring.ErrTagTooLong, http.StatusBadRequest},
	{authoring.ErrTooManyTags, http.StatusBadRequest},
	{authoring.ErrUnknownField, http.StatusBadRequest},
	{authoring.ErrInvalidFieldValue, http.StatusBadRequest},
}

// statusFor returns the HTTP status code for an error returned by a session or the registry
func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}
