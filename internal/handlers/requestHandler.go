package handlers

import (
	"net/http"

	"github.com/akolanti/CyberScholar/internal/adapter"
	"github.com/akolanti/CyberScholar/internal/adapter/utils"
	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

// technically i dont need this
// but i want to eventually remove jobHandler from handlers and set it in another package
// so in anticipation for that this struct exists
type newJobData struct {
	id        string
	chatId    string
	ownerId   string
	message   string
	isNewChat bool
	traceId   string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Start a new chat job
// @Description  Accepts a message, initializes a background processing job, and returns a job ID to track status. Requires X-Chat-Session when the owner's chat lock is enabled.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        X-Owner-Id      header    string               true   "Owner id"
// @Param        X-Chat-Session  header    string               false  "Chat session token from verify-password"
// @Param        request         body      api.ChatRequest      true   "Chat Message and optional Chat ID"
// @Success      202             {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400             {object}  api.JobResponse      "Invalid request data or chat ID"
// @Failure      401             {object}  api.JobResponse      "Chat is password protected"
// @Failure      423             {object}  api.JobResponse      "Chat is locked"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if !validateContext(ctx) {
		logRH.Warn("Invalid Context by request", "remote", request.RemoteAddr)
		return
	}
	if err := requireChatAccess(ctx, request.Header.Get(config.CHAT_SESSION_HEADER)); err != nil {
		writeServiceError(w, request, "", err)
		return
	}

	var requestData api.ChatRequest
	if err := decodeRequest(w, request, &requestData); err != nil || !ValidateChatRequest(ctx, requestData) {
		logRH.ForRequest(ctx).Warn("Bad Chat Request", "error", err, "chatId", requestData.ChatID)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	chatID := requestData.ChatID
	isNewChat := chatID == ""
	if isNewChat {
		chatID = utils.GetNewUUID()
		logRH.ForRequest(ctx).Debug("New Chat request", "chatID", chatID)
	}
	traceId, _ := ctx.Value(config.TRACE_ID_KEY).(string)

	newJob := newJobData{
		id:        utils.GetNewUUID(),
		chatId:    chatID,
		ownerId:   ownerFromContext(ctx),
		message:   requestData.Message,
		isNewChat: isNewChat,
		traceId:   traceId,
	}
	if err := CreateNewJob(ctx, newJob); err != nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, newJob.id, "Could not queue the request, please retry")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, chatID))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        X-Owner-Id  header    string  true  "Owner id"
// @Param        id          path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	//use chi get the url id
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(r.Context(), idString)

	logRH.ForRequest(r.Context()).Debug("Get Status Request", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// GetHistoryHandler godoc
// @Summary      Get chat history
// @Description  Returns the most recent turns of a chat, oldest first. Requires X-Chat-Session when the owner's chat lock is enabled.
// @Tags         Messaging
// @Produce      json
// @Param        X-Owner-Id      header    string  true   "Owner id"
// @Param        X-Chat-Session  header    string  false  "Chat session token from verify-password"
// @Param        chatId          path      string  true   "Chat ID"
// @Success      200  {object}  api.ChatHistoryResponse
// @Failure      401  {object}  api.JobResponse  "Chat is password protected"
// @Failure      404  {object}  api.JobResponse  "Chat not found"
// @Failure      423  {object}  api.JobResponse  "Chat is locked"
// @Router       /chat/{chatId}/history [get]
func GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	chatId := utils.GetChiURLParam(r, "chatId")
	if err := requireChatAccess(ctx, r.Header.Get(config.CHAT_SESSION_HEADER)); err != nil {
		writeServiceError(w, r, chatId, err)
		return
	}

	history, found, err := GetChatHistory(ctx, chatId)
	if err != nil {
		writeServiceError(w, r, chatId, err)
		return
	}
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, chatId, "Chat not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToChatHistoryResponse(chatId, history))
}
