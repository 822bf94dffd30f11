package api

import (
	"database/sql"
	"errors"
	"net/http"

	"votify/internal/domain/poll"
	"votify/internal/domain/recovery"
	"votify/internal/domain/user"
	"votify/internal/domain/vote"
	"votify/internal/forms"
	"votify/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		slogLogger.Error("request failed", "code", appErr.Code, "err", appErr.Err)
	}
	writeJSON(w, appErr.StatusCode(), appErr)
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var formErrs forms.Errors
	if errors.As(err, &formErrs) {
		return apperr.Validation(formErrs, err)
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrInactiveUser):
		return apperr.Unauthorized("inactive_user", "user is inactive", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.Conflict("email_taken", "email already taken", err)
	case errors.Is(err, user.ErrUserNotFound):
		return apperr.NotFound("user_not_found", "no account with that email", err)
	case errors.Is(err, user.ErrInvalidRole):
		return apperr.BadRequest("invalid_role", "role must be user or admin", err)
	case errors.Is(err, poll.ErrPollNotFound), errors.Is(err, vote.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrInvalidStatus):
		return apperr.BadRequest("invalid_status", "invalid poll status", err)
	case errors.Is(err, poll.ErrInvalidDates):
		return apperr.BadRequest("invalid_dates", "ends_at must be in the future", err)
	case errors.Is(err, poll.ErrAlreadyFinished):
		return apperr.Conflict("already_finished", "poll already finished", err)
	case errors.Is(err, poll.ErrInvalidTransition):
		return apperr.Conflict("invalid_transition", "finished poll cannot be reopened", err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.Conflict("already_voted", "user already voted in this poll", err)
	case errors.Is(err, vote.ErrPollNotActive):
		return apperr.BadRequest("poll_not_active", "poll is not active", err)
	case errors.Is(err, vote.ErrOptionNotInPoll):
		return apperr.BadRequest("invalid_option", "option does not belong to poll", err)
	case errors.Is(err, recovery.ErrInvalidToken):
		return apperr.BadRequest("invalid_token", "reset session is invalid or expired", err)
	case errors.Is(err, recovery.ErrInvalidCode):
		return apperr.BadRequest("invalid_code", "the code is not correct", err)
	case errors.Is(err, recovery.ErrTooManyAttempts):
		return apperr.TooManyRequests("too_many_attempts", "too many attempts, request a new code", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
