package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/CyberScholar/internal/handlers"
	"github.com/akolanti/CyberScholar/internal/metrics"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

var GetHandler = WrapPublic(handlers.GetHandler)

var ChatHandler = Wrap(handlers.ChatHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var GetHistoryHandler = Wrap(handlers.GetHistoryHandler)

var PostDocumentHandler = Wrap(handlers.PostDocumentHandler)
var ListDocumentsHandler = Wrap(handlers.ListDocumentsHandler)
var ReindexHandler = Wrap(handlers.ReindexHandler)
var DeleteDocumentHandler = Wrap(handlers.DeleteDocumentHandler)
var IntegrityHandler = Wrap(handlers.IntegrityHandler)
var RetrieveHandler = Wrap(handlers.RetrieveHandler)

var SetPasswordHandler = Wrap(handlers.SetPasswordHandler)
var VerifyPasswordHandler = Wrap(handlers.VerifyPasswordHandler)
var ChangePasswordHandler = Wrap(handlers.ChangePasswordHandler)
var DisableHandler = Wrap(handlers.DisableHandler)
var ChatSecurityStatusHandler = Wrap(handlers.ChatSecurityStatusHandler)

// Wrap runs the full chain: trace, auth, rate limit, owner
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, injectTrace, authenticate, rateLimiter, injectOwner)
}

// WrapPublic is for health checks: trace and rate limit only
func WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, injectTrace, rateLimiter)
}

func wrap(next http.HandlerFunc, steps ...step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, steps)

		if !handleBadRequest(re) {
			metrics.HttpRequestsTotal.WithLabelValues(routePattern(r), strconv.Itoa(rec.Status)).Inc()
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(routePattern(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

type step func(re requestResponseStruct) requestResponseStruct

// processRequest stops at the first step that marks the request bad
func processRequest(re requestResponseStruct, steps []step) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received", "path", re.req.URL.Path)
	for _, s := range steps {
		re = s(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	return re
}

// label by route pattern so ids in paths don't blow up the series count
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
