package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"dataroom/internal/domain"
	"dataroom/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		maxBytesErr *http.MaxBytesError
		conflictErr *domain.ConflictError
		storageErr  *domain.StorageFailureError
		httpErr     domain.HTTPError
	)

	switch {
	case errors.As(err, &maxBytesErr):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, domain.KindPayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{"resource_type": conflictErr.ResourceType}
		if conflictErr.ResourceID > 0 {
			extras["resource_id"] = conflictErr.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, domain.KindConflict, conflictErr.Error(), extras)
	case errors.As(err, &storageErr):
		logger.Error("storage failure", "error", storageErr.Err, "message", storageErr.Message)
		httputil.RespondError(w, http.StatusInternalServerError, domain.KindStorageFailure, storageErr.Error())
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Kind(), httpErr.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, domain.KindValidation, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, domain.KindNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, domain.KindConflict, err.Error())
	default:
		logger.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, domain.KindInternal, "internal server error")
	}
}

// badRequest responds 400 with a validation kind
func badRequest(w http.ResponseWriter, message string) {
	httputil.RespondError(w, http.StatusBadRequest, domain.KindValidation, message)
}

// handleParseError distinguishes oversized bodies from malformed ones
func handleParseError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		handleError(w, logger, err)
		return
	}
	badRequest(w, err.Error())
}

// pathID reads the {id} path value, responding 400 when it is not a positive integer
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return 0, false
	}
	return id, true
}
