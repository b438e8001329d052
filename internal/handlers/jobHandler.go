package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/chatSecurity"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/job"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
)

type JobHandler struct {
	service  *job.Service
	chatLock chatSecurity.Service
}

func InitJobHandler(jobService *job.Service, chatLock chatSecurity.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, chatLock: chatLock}
		logJH.Info("Starting job handler")
	})
}

// CreateNewJob registers a new chat before queueing so the worker never writes history into a chat that is reset after
func CreateNewJob(ctx context.Context, newJob newJobData) error {
	log := logJH.ForRequest(ctx).With("jobId", newJob.id)
	if newJob.isNewChat {
		log.Info("Create new chat", "chatId", newJob.chatId)
		if err := handlerInstance.service.MessageStore.InitNewChat(ctx, newJob.chatId, newJob.ownerId); err != nil {
			log.Error("Error initiating new chat", "chatId", newJob.chatId, "error", err)
			return err
		}
	}

	_job := jobModel.Job{
		Id:          newJob.id,
		ChatId:      newJob.chatId,
		OwnerId:     newJob.ownerId,
		TraceId:     newJob.traceId,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.UserQueryInit,
		JobPayload:  jobModel.JobPayload{Question: newJob.message},
	}
	if err := handlerInstance.service.Enqueue(ctx, _job); err != nil {
		log.Error("Could not queue job", "error", err)
		return err
	}
	log.Info("Created new job")
	return nil
}

// GetJobStatus only finds jobs of the asking owner
func GetJobStatus(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if handlerInstance == nil {
		return result, false
	}
	result, isFound = handlerInstance.service.JobStore.GetJob(ctx, id)
	if !isFound || result.OwnerId != ownerFromContext(ctx) {
		return jobModel.Job{}, false
	}
	return result, true
}

// ValidateChatRequest accepts a new chat, or a chat that already belongs to the owner
func ValidateChatRequest(ctx context.Context, chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	if err := api.Validate(chatReq); err != nil {
		return false
	}
	if chatReq.ChatID == "" {
		return true
	}
	logJH.ForRequest(ctx).Debug("Validating chat id", "chatId", chatReq.ChatID)
	owner, found := handlerInstance.service.MessageStore.ChatOwner(ctx, chatReq.ChatID)
	return found && owner == ownerFromContext(ctx)
}

// GetChatHistory returns the last turns of a chat owned by the caller, oldest first
func GetChatHistory(ctx context.Context, chatId string) ([]string, bool, error) {
	owner, found := handlerInstance.service.MessageStore.ChatOwner(ctx, chatId)
	if !found || owner != ownerFromContext(ctx) {
		return nil, false, nil
	}
	err, history := handlerInstance.service.MessageStore.GetMessageHistory(ctx, chatId)
	if err != nil {
		return nil, true, err
	}
	return history, true, nil
}

// requireChatAccess is the chat lock gate: no lock, or a live session for this owner
func requireChatAccess(ctx context.Context, sessionToken string) error {
	if handlerInstance.chatLock == nil {
		return nil
	}
	return handlerInstance.chatLock.RequireAccess(ctx, ownerFromContext(ctx), sessionToken)
}
