package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/akolanti/CyberScholar/internal/adapter/utils"
	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/handlers"
)

func injectTrace(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Injecting trace middleware")
	req := re.req
	if req == nil {
		//this is a bad request
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set(`X-Trace-Id`, trace)
	re.req = req.WithContext(ctx)

	re.logger.Debug("trace middleware injected")
	return re
}

func authenticate(re requestResponseStruct) requestResponseStruct {
	if config.NoAuthBypass {
		re.logger.Warn("Auth bypass is on, request not authenticated")
		return re
	}
	if reason := checkBearer(re.req.Header.Get("Authorization"), config.AuthToken); reason != "" {
		re.logger.Warn("Unauthorized", "reason", reason)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusUnauthorized,
			errorMessage: "Unauthorized",
		}
	}
	return re
}

// checkBearer returns why the header fails against token, or "" when it matches
func checkBearer(authHeader, token string) string {
	switch {
	case token == "":
		return "no token configured"
	case authHeader == "":
		return "empty authorization header"
	case !strings.HasPrefix(authHeader, "Bearer "):
		return "not a bearer header"
	case subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(authHeader, "Bearer ")), []byte(token)) != 1:
		return "token mismatch"
	}
	return ""
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip := clientIP(re.req)
	if limiterInstance.GetLimiter(ip).Allow() {
		return re
	}
	re.logger.Warn("Rate limit exceeded", "ip", ip)
	re.writer.Header().Set("Retry-After", "1")
	re.badRequest = failureStruct{
		isBadRequest: true,
		httpCode:     http.StatusTooManyRequests,
		errorMessage: "Rate limit exceeded, retry shortly",
	}
	return re
}

// injectOwner scopes everything downstream to the X-Owner-Id header
func injectOwner(re requestResponseStruct) requestResponseStruct {
	owner := strings.TrimSpace(re.req.Header.Get(config.OWNER_ID_HEADER))
	if err := api.ValidateOwnerId(owner); err != nil {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusBadRequest,
			errorMessage: "missing or invalid " + config.OWNER_ID_HEADER + " header",
		}
		return re
	}
	re.logger = re.logger.With("ownerId", owner)
	ctx := context.WithValue(re.req.Context(), config.OWNER_ID_KEY, owner)
	re.req = re.req.WithContext(ctx)
	return re
}

func handleBadRequest(re requestResponseStruct) bool {
	if re.badRequest.isBadRequest {
		re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", re.req.RemoteAddr)
		handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, "Your IP: "+re.req.RemoteAddr, re.badRequest.errorMessage)
		return false
	}
	return true
}
