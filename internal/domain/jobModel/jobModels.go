package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusRejected JobStatus = "REJECTED"
	JobStatusError    JobStatus = "Error"

	UserQueryInit  InternalStatus = "Init"
	SafetyCall     InternalStatus = "SafetyGate"
	RAGCall        InternalStatus = "RAG"
	RetrievalCall  InternalStatus = "Retrieval"
	LLMCall        InternalStatus = "LLM"
	DisclaimerCall InternalStatus = "Disclaimer"
	RedisCall      InternalStatus = "Redis"
	Error          InternalStatus = "Error"

	Complete InternalStatus = "Complete"
)

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	OwnerId     string         `json:"owner_id"`
	TraceId     string         `json:"trace_id"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Sources  []string `json:"sources,omitempty"`
	Allowed  bool     `json:"allowed"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	TrySaveChat(ctx context.Context, id string, JobPayload JobPayload) error
	InitNewChat(ctx context.Context, id string, ownerId string) error
	ChatOwner(ctx context.Context, id string) (string, bool)
	GetMessageHistory(ctx context.Context, chatId string) (error, []string)
}
