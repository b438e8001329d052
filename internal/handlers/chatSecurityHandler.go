package handlers

import (
	"net/http"

	"github.com/akolanti/CyberScholar/internal/api"
)

// SetPasswordHandler godoc
// @Summary      Enable chat lock
// @Description  Sets the chat password and hint. Resets the failure counter and any lock.
// @Tags         Chat Security
// @Accept       json
// @Produce      json
// @Param        X-Owner-Id  header    string                  true  "Owner id"
// @Param        request     body      api.SetPasswordRequest  true  "Password and optional hint"
// @Success      200  {object}  api.ChatSecurityActionResponse
// @Failure      400  {object}  api.JobResponse  "Weak password"
// @Router       /chat-security/set-password [post]
func SetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req api.SetPasswordRequest
	if !decodeChatSecurity(w, r, &req) {
		return
	}
	res, err := handlerInstance.chatLock.SetPassword(r.Context(), ownerFromContext(r.Context()), req.Password, req.Hint)
	writeChatSecurityResult(w, r, res, err)
}

// VerifyPasswordHandler godoc
// @Summary      Unlock chat
// @Description  Checks the chat password. Success returns a session token valid for 60 minutes; repeated failures lock the chat for 5, then 15 minutes.
// @Tags         Chat Security
// @Accept       json
// @Produce      json
// @Param        X-Owner-Id  header    string                     true  "Owner id"
// @Param        request     body      api.VerifyPasswordRequest  true  "Password"
// @Success      200  {object}  api.VerifyPasswordResponse
// @Failure      404  {object}  api.JobResponse  "Chat security not enabled"
// @Router       /chat-security/verify-password [post]
func VerifyPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyPasswordRequest
	if !decodeChatSecurity(w, r, &req) {
		return
	}
	res, err := handlerInstance.chatLock.VerifyPassword(r.Context(), ownerFromContext(r.Context()), req.Password)
	writeChatSecurityResult(w, r, res, err)
}

// ChangePasswordHandler godoc
// @Summary      Change chat password
// @Tags         Chat Security
// @Accept       json
// @Produce      json
// @Param        X-Owner-Id  header    string                     true  "Owner id"
// @Param        request     body      api.ChangePasswordRequest  true  "Current and new password"
// @Success      200  {object}  api.ChatSecurityActionResponse
// @Failure      400  {object}  api.JobResponse  "Weak password"
// @Failure      404  {object}  api.JobResponse  "Chat security not enabled"
// @Router       /chat-security/change-password [post]
func ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if !decodeChatSecurity(w, r, &req) {
		return
	}
	res, err := handlerInstance.chatLock.ChangePassword(r.Context(), ownerFromContext(r.Context()), req.CurrentPassword, req.NewPassword, req.Hint)
	writeChatSecurityResult(w, r, res, err)
}

// DisableHandler godoc
// @Summary      Disable chat lock
// @Tags         Chat Security
// @Accept       json
// @Produce      json
// @Param        X-Owner-Id  header    string              true  "Owner id"
// @Param        request     body      api.DisableRequest  true  "Current password"
// @Success      200  {object}  api.ChatSecurityActionResponse
// @Failure      404  {object}  api.JobResponse  "Chat security not enabled"
// @Router       /chat-security/disable [post]
func DisableHandler(w http.ResponseWriter, r *http.Request) {
	var req api.DisableRequest
	if !decodeChatSecurity(w, r, &req) {
		return
	}
	res, err := handlerInstance.chatLock.Disable(r.Context(), ownerFromContext(r.Context()), req.Password)
	writeChatSecurityResult(w, r, res, err)
}

// ChatSecurityStatusHandler godoc
// @Summary      Chat lock status
// @Description  Never returns the hash or salt.
// @Tags         Chat Security
// @Produce      json
// @Param        X-Owner-Id  header  string  true  "Owner id"
// @Success      200  {object}  api.ChatSecurityStatusResponse
// @Router       /chat-security/status [get]
func ChatSecurityStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	status, err := handlerInstance.chatLock.GetStatus(r.Context(), ownerFromContext(r.Context()))
	writeChatSecurityResult(w, r, status, err)
}

func decodeChatSecurity(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !validateContext(r.Context()) {
		return false
	}
	if err := decodeRequest(w, r, dst); err != nil {
		logRH.ForRequest(r.Context()).Warn("Bad chat security request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return false
	}
	return true
}

// a wrong password is a normal 200 result; only real failures map to error codes
func writeChatSecurityResult(w http.ResponseWriter, r *http.Request, res any, err error) {
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, res)
}
