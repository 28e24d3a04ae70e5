package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skyview/api/internal/billing"
	"skyview/api/internal/security"
	"skyview/api/internal/service"
	"skyview/api/internal/store"
	"skyview/api/internal/workflow"
)

// respondError turns a domain error into an HTTP status and a short
// human-readable message. Nothing internal crosses the boundary; the
// client renders the message as-is.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var partial *workflow.PartialError
	if errors.As(err, &partial) {
		// A partial accept must never look like success or a plain
		// failure: the caller has to reconcile manually.
		h.log.Error().Err(err).Str("request_id", partial.RequestID).Msg("partial accept")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":         "request was updated but the account promotion did not complete",
			"partial":       true,
			"statusUpdated": partial.StatusUpdated,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrDuplicateRequest),
		errors.Is(err, workflow.ErrInvalidState),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrAlreadySeeded):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrAccountNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, billing.ErrInvalidInput),
		errors.Is(err, security.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		h.log.Error().Err(err).Msg("request failed")
	}

	c.JSON(status, gin.H{"error": userMessage(err, status)})
}

func userMessage(err error, status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable, please try again"
	case http.StatusInternalServerError:
		return "something went wrong"
	default:
		return err.Error()
	}
}
