package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/CyberScholar/internal/adapter"
	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/chatSecurity"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
)

const maxJSONBody = 1 << 20

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateId(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.ForRequest(ctx).Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(ctx, id)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.ForRequest(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

// ownerFromContext is set by the middleware from X-Owner-Id
func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(config.OWNER_ID_KEY).(string)
	return owner
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// decodeRequest reads a bounded JSON body into dst and checks its validate tags
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "error", err)
		}
	}(body)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return err
	}
	return api.Validate(dst)
}

// writeServiceError maps the error taxonomy onto status codes
func writeServiceError(w http.ResponseWriter, r *http.Request, id string, err error) {
	var (
		weak       *coreErrors.WeakPasswordError
		locked     *coreErrors.LockedError
		extraction *coreErrors.ExtractionFailedError
	)
	switch {
	case errors.Is(err, coreErrors.ErrUnsupportedType):
		WriteErrorResponse(w, http.StatusBadRequest, id, "Unsupported document type, allowed: pdf, txt, md, json")
	case errors.Is(err, coreErrors.ErrSizeExceeded):
		WriteErrorResponse(w, http.StatusBadRequest, id, "Document exceeds the 50MB upload limit")
	case errors.Is(err, coreErrors.ErrEmptyFile):
		WriteErrorResponse(w, http.StatusBadRequest, id, "Document is empty")
	case errors.As(err, &weak):
		WriteErrorResponse(w, http.StatusBadRequest, id, weak.Reason)
	case errors.Is(err, coreErrors.ErrNotEnabled):
		WriteErrorResponse(w, http.StatusNotFound, id, "Chat security is not enabled")
	case errors.Is(err, coreErrors.ErrNotFound):
		WriteErrorResponse(w, http.StatusNotFound, id, "Not found")
	case errors.As(err, &extraction):
		WriteErrorResponse(w, http.StatusUnprocessableEntity, id, "Could not extract text from the document")
	case errors.As(err, &locked):
		WriteErrorResponse(w, http.StatusLocked, id, "Chat is locked until "+locked.Until.UTC().Format("15:04:05 MST"))
	case errors.Is(err, chatSecurity.ErrSessionRequired):
		WriteErrorResponse(w, http.StatusUnauthorized, id, "Chat is password protected, unlock it first")
	default:
		logRH.ForRequest(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
	}
}
