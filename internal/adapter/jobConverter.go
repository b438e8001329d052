package adapter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
)

func ToInitJobResponse(id string, chatId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		ChatId:    chatId,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question: ragData.Question,
		Answer:   ragData.Answer,
		Sources:  ragData.Sources,
		Allowed:  ragData.Allowed,
	}
}

// ToChatHistoryResponse decodes the stored turns; an entry that no longer decodes is skipped
func ToChatHistoryResponse(chatId string, history []string) api.ChatHistoryResponse {
	res := api.ChatHistoryResponse{ChatId: chatId, Messages: make([]api.RAGResponse, 0, len(history))}
	for _, entry := range history {
		var payload jobModel.JobPayload
		if err := json.Unmarshal([]byte(entry), &payload); err != nil {
			continue
		}
		res.Messages = append(res.Messages, api.RAGResponse{
			Question: payload.Question,
			Answer:   payload.Answer,
			Sources:  payload.Sources,
			Allowed:  payload.Allowed,
		})
	}
	return res
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		ChatId:    "",
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status:              string(api.JobStatusError),
			RAGExternalResponse: ToRAGExternalStatus(jobModel.JobPayload{}),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
