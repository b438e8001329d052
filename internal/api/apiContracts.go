package api

import (
	"regexp"
	"time"

	"github.com/akolanti/CyberScholar/internal/domain/lockModel"
	"github.com/go-playground/validator/v10"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

// shared validator, safe for concurrent use once built
var validate = newValidator()

// owner ids become upload directory names, so only characters the filename sanitiser keeps are allowed
var ownerIdPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("ownerid", func(fl validator.FieldLevel) bool {
		return ownerIdPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks a request against its struct tags
func Validate(request any) error {
	return validate.Struct(request)
}

// ValidateOwnerId keeps owner ids usable as path segments and store keys
func ValidateOwnerId(ownerId string) error {
	return validate.Var(ownerId, "required,max=128,ownerid")
}

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id" example:"chat_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Allowed  bool     `json:"allowed"`
}

type Result struct {
	Status              string       `json:"status"`
	RAGExternalResponse *RAGResponse `json:"rag_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ChatId    string `json:"chat_id"`
	StatusURL string `json:"status_url"`
}

type ChatHistoryResponse struct {
	ChatId   string        `json:"chat_id"`
	Messages []RAGResponse `json:"messages"`
}

type DocumentResponse struct {
	Source         string    `json:"source" example:"guide.txt_0b9f..."`
	Filename       string    `json:"filename" example:"guide.txt"`
	ContentType    string    `json:"content_type" example:"txt"`
	MimeType       string    `json:"mime_type,omitempty" example:"text/plain; charset=utf-8"`
	Size           int64     `json:"size"`
	Digest         string    `json:"digest"`
	ChunkCount     int       `json:"chunk_count"`
	ContentPreview string    `json:"content_preview"`
	IngestedAt     time.Time `json:"ingested_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

type IngestResponse struct {
	Source     string `json:"source"`
	ChunkCount int    `json:"chunk_count" example:"3"`
	Digest     string `json:"digest"`
	Size       int64  `json:"size"`
}

type ReindexResponse struct {
	Indexed int `json:"indexed" example:"4"`
}

type IntegrityResponse struct {
	Source   string `json:"source"`
	Verified bool   `json:"verified"`
	Status   string `json:"status" example:"ok"`
}

type RetrievalResult struct {
	ChunkId  string  `json:"chunk_id"`
	Source   string  `json:"source"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
	Distance float64 `json:"distance"`
}

type RetrieveResponse struct {
	Query   string            `json:"query"`
	Results []RetrievalResult `json:"results"`
}

type ChatSecurityStatusResponse = lockModel.Status
type VerifyPasswordResponse = lockModel.VerifyResult
type ChatSecurityActionResponse = lockModel.ActionResult

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	ChatID  string `json:"chatID,omitempty" validate:"omitempty,uuid"`
}

type RetrieveRequest struct {
	Query string `validate:"required,max=4000"`
	K     int    `validate:"gte=0"`
}

type SetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
	Hint     string `json:"hint,omitempty" validate:"max=200"`
}

type VerifyPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string  `json:"current_password" validate:"required"`
	NewPassword     string  `json:"new_password" validate:"required"`
	Hint            *string `json:"hint,omitempty" validate:"omitempty,max=200"`
}

type DisableRequest struct {
	Password string `json:"password" validate:"required"`
}
