package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/chatSecurity"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/store"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/fileStore"
	"github.com/akolanti/CyberScholar/internal/job"
	"github.com/akolanti/CyberScholar/internal/rag"
	"github.com/akolanti/CyberScholar/internal/rag/safety"
	"github.com/akolanti/CyberScholar/internal/rag/vectorDB/lexicalDB"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPass = "Str0ng!Pass"

type testEnv struct {
	router http.Handler
	jobs   *job.Service
}

// withOwner stands in for the middleware chain
func withOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), config.OWNER_ID_KEY, r.Header.Get(config.OWNER_ID_HEADER))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	stores := store.InMemory()
	jobService := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          stores.Jobs,
		MessageStore:      stores.Messages,
	})
	chatLock := chatSecurity.NewService(chatSecurity.ServiceConfig{
		Locks:    stores.Locks,
		Sessions: stores.Sessions,
		Audit:    stores.Audit,
		Hasher:   chatSecurity.NewBcryptHasher(bcrypt.MinCost),
	})
	files, err := fileStore.New(t.TempDir())
	require.NoError(t, err)
	gate, err := safety.NewGate()
	require.NoError(t, err)

	handlerInstance = &JobHandler{service: jobService, chatLock: chatLock}
	documents = rag.NewService(rag.ServiceConfig{
		Index:     lexicalDB.NewStore(),
		Gate:      gate,
		Documents: stores.Documents,
		Audit:     stores.Audit,
		Files:     files,
	})

	r := chi.NewRouter()
	r.Use(withOwner)
	r.Post("/chat", ChatHandler)
	r.Get("/chat/{chatId}/history", GetHistoryHandler)
	r.Get("/status/{id}", GetStatusHandler)
	r.Post("/documents", PostDocumentHandler)
	r.Get("/documents", ListDocumentsHandler)
	r.Post("/documents/reindex", ReindexHandler)
	r.Delete("/documents/{source}", DeleteDocumentHandler)
	r.Get("/documents/{source}/integrity", IntegrityHandler)
	r.Get("/retrieve", RetrieveHandler)
	r.Post("/chat-security/set-password", SetPasswordHandler)
	r.Post("/chat-security/verify-password", VerifyPasswordHandler)
	r.Post("/chat-security/disable", DisableHandler)
	r.Get("/chat-security/status", ChatSecurityStatusHandler)
	return testEnv{router: r, jobs: jobService}
}

func (e testEnv) do(t *testing.T, method, path, owner string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(config.OWNER_ID_HEADER, owner)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e testEnv) postJSON(t *testing.T, path, owner string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return e.do(t, http.MethodPost, path, owner, bytes.NewReader(body), headers)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestChatHandler_QueuesJobForOwner(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/chat", "alice", api.ChatRequest{Message: "explain reflected xss"}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	created := decode[api.InitJobResponse](t, rec)
	assert.NotEmpty(t, created.ChatId)
	assert.Equal(t, "status/"+created.Id, created.StatusURL)

	queued := <-env.jobs.JobChannel
	assert.Equal(t, created.Id, queued.Id)
	assert.Equal(t, "alice", queued.OwnerId)
	assert.Equal(t, "explain reflected xss", queued.JobPayload.Question)

	owner, found := env.jobs.MessageStore.ChatOwner(context.Background(), created.ChatId)
	require.True(t, found)
	assert.Equal(t, "alice", owner)

	status := env.do(t, http.MethodGet, "/status/"+created.Id, "alice", nil, nil)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Equal(t, string(jobModel.JobStatusQueued), decode[api.JobResponse](t, status).Result.Status)

	other := env.do(t, http.MethodGet, "/status/"+created.Id, "bob", nil, nil)
	assert.Equal(t, http.StatusNotFound, other.Code)
}

func TestChatHandler_ContinuesOwnChat(t *testing.T) {
	env := newTestEnv(t)
	chatId := "6f1c2d3e-4a5b-4c6d-8e7f-901a2b3c4d5e"
	require.NoError(t, env.jobs.MessageStore.InitNewChat(context.Background(), chatId, "alice"))

	rec := env.postJSON(t, "/chat", "alice", api.ChatRequest{Message: "and stored xss?", ChatID: chatId}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, chatId, decode[api.InitJobResponse](t, rec).ChatId)
}

func TestChatHandler_RejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)
	bobsChat := "0a1b2c3d-4e5f-4a6b-8c7d-8e9f0a1b2c3d"
	require.NoError(t, env.jobs.MessageStore.InitNewChat(context.Background(), bobsChat, "bob"))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"empty message", `{"message":""}`},
		{"chat id not a uuid", `{"message":"hi","chatID":"chat-1"}`},
		{"unknown chat", `{"message":"hi","chatID":"11111111-2222-4333-8444-555555555555"}`},
		{"someone else's chat", `{"message":"hi","chatID":"` + bobsChat + `"}`},
		{"message too long", `{"message":"` + strings.Repeat("a", 4001) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/chat", "alice", strings.NewReader(tt.body), nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Len(t, env.jobs.JobChannel, 0)
}

func TestGetHistoryHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chatId := "6f1c2d3e-4a5b-4c6d-8e7f-901a2b3c4d5e"
	require.NoError(t, env.jobs.MessageStore.InitNewChat(ctx, chatId, "alice"))
	require.NoError(t, env.jobs.MessageStore.TrySaveChat(ctx, chatId, jobModel.JobPayload{Question: "q1", Answer: "a1", Allowed: true}))
	require.NoError(t, env.jobs.MessageStore.TrySaveChat(ctx, chatId, jobModel.JobPayload{Question: "q2", Answer: "a2", Allowed: true}))

	rec := env.do(t, http.MethodGet, "/chat/"+chatId+"/history", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[api.ChatHistoryResponse](t, rec)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "q1", history.Messages[0].Question)
	assert.Equal(t, "a2", history.Messages[1].Answer)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/chat/"+chatId+"/history", "bob", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/chat/nope/history", "alice", nil, nil).Code)
}

func TestChatSecurityFlow(t *testing.T) {
	env := newTestEnv(t)
	chat := api.ChatRequest{Message: "explain sql injection"}

	t.Run("verify without a lock is not found", func(t *testing.T) {
		rec := env.postJSON(t, "/chat-security/verify-password", "alice", api.VerifyPasswordRequest{Password: strongPass}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("weak password is rejected with the reason", func(t *testing.T) {
		rec := env.postJSON(t, "/chat-security/set-password", "alice", api.SetPasswordRequest{Password: "short"}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[api.JobResponse](t, rec).Error.Message, "at least 8")
	})

	rec := env.postJSON(t, "/chat-security/set-password", "alice", api.SetPasswordRequest{Password: strongPass, Hint: "usual"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[api.ChatSecurityActionResponse](t, rec).Success)

	status := decode[api.ChatSecurityStatusResponse](t, env.do(t, http.MethodGet, "/chat-security/status", "alice", nil, nil))
	assert.True(t, status.Enabled)
	assert.Equal(t, "usual", status.Hint)

	t.Run("chat needs a session", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, env.postJSON(t, "/chat", "alice", chat, nil).Code)
		// other owners are unaffected
		assert.Equal(t, http.StatusAccepted, env.postJSON(t, "/chat", "bob", chat, nil).Code)
		<-env.jobs.JobChannel
	})

	t.Run("wrong password is a normal result", func(t *testing.T) {
		rec := env.postJSON(t, "/chat-security/verify-password", "alice", api.VerifyPasswordRequest{Password: "Wr0ng!Pass"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[api.VerifyPasswordResponse](t, rec)
		assert.False(t, res.Success)
		assert.False(t, res.Locked)
		assert.Empty(t, res.SessionToken)
	})

	rec = env.postJSON(t, "/chat-security/verify-password", "alice", api.VerifyPasswordRequest{Password: strongPass}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	verified := decode[api.VerifyPasswordResponse](t, rec)
	require.True(t, verified.Success)
	require.NotEmpty(t, verified.SessionToken)
	session := map[string]string{config.CHAT_SESSION_HEADER: verified.SessionToken}

	t.Run("session opens chat", func(t *testing.T) {
		rec := env.postJSON(t, "/chat", "alice", chat, session)
		require.Equal(t, http.StatusAccepted, rec.Code)
		<-env.jobs.JobChannel
	})

	t.Run("session is owner bound", func(t *testing.T) {
		require.Equal(t, http.StatusOK, env.postJSON(t, "/chat-security/set-password", "bob", api.SetPasswordRequest{Password: strongPass}, nil).Code)
		assert.Equal(t, http.StatusUnauthorized, env.postJSON(t, "/chat", "bob", chat, session).Code)
	})

	t.Run("disable lifts the gate", func(t *testing.T) {
		rec := env.postJSON(t, "/chat-security/disable", "alice", api.DisableRequest{Password: strongPass}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[api.ChatSecurityActionResponse](t, rec).Success)
		assert.Equal(t, http.StatusAccepted, env.postJSON(t, "/chat", "alice", chat, nil).Code)
		<-env.jobs.JobChannel
	})
}

func TestChatSecurity_LockedChatIs423(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.postJSON(t, "/chat-security/set-password", "alice", api.SetPasswordRequest{Password: strongPass}, nil).Code)

	var last api.VerifyPasswordResponse
	for range config.ShortLockThreshold {
		rec := env.postJSON(t, "/chat-security/verify-password", "alice", api.VerifyPasswordRequest{Password: "Wr0ng!Pass"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		last = decode[api.VerifyPasswordResponse](t, rec)
	}
	require.True(t, last.Locked)

	assert.Equal(t, http.StatusLocked, env.postJSON(t, "/chat", "alice", api.ChatRequest{Message: "explain xss"}, nil).Code)
	assert.Equal(t, http.StatusLocked, env.do(t, http.MethodGet, "/chat/any/history", "alice", nil, nil).Code)
}

func multipartBody(t *testing.T, field, filename string, content []byte, declared string) (io.Reader, map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if declared != "" {
		require.NoError(t, w.WriteField("content_type", declared))
	}
	require.NoError(t, w.Close())
	return &buf, map[string]string{"Content-Type": w.FormDataContentType()}
}

func TestDocumentHandlers_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	body, headers := multipartBody(t, "document", "recon.txt", []byte("nmap scans open tcp ports on the target host"), "")
	rec := env.do(t, http.MethodPost, "/documents", "alice", body, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ingested := decode[api.IngestResponse](t, rec)
	assert.Equal(t, 1, ingested.ChunkCount)
	assert.Len(t, ingested.Digest, 64)
	assert.True(t, strings.HasPrefix(ingested.Source, "recon.txt_"))

	list := decode[api.DocumentListResponse](t, env.do(t, http.MethodGet, "/documents", "alice", nil, nil))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "recon.txt", list.Documents[0].Filename)
	assert.Equal(t, "txt", list.Documents[0].ContentType)
	assert.Empty(t, decode[api.DocumentListResponse](t, env.do(t, http.MethodGet, "/documents", "bob", nil, nil)).Documents)

	retrieved := decode[api.RetrieveResponse](t, env.do(t, http.MethodGet, "/retrieve?q=nmap+ports&k=3", "alice", nil, nil))
	require.Len(t, retrieved.Results, 1)
	assert.Equal(t, ingested.Source, retrieved.Results[0].Source)
	assert.Empty(t, decode[api.RetrieveResponse](t, env.do(t, http.MethodGet, "/retrieve?q=nmap+ports", "bob", nil, nil)).Results)

	reindexed := decode[api.ReindexResponse](t, env.do(t, http.MethodPost, "/documents/reindex", "alice", nil, nil))
	assert.Equal(t, 1, reindexed.Indexed)
	assert.Len(t, decode[api.RetrieveResponse](t, env.do(t, http.MethodGet, "/retrieve?q=nmap+ports", "alice", nil, nil)).Results, 1)

	integrity := decode[api.IntegrityResponse](t, env.do(t, http.MethodGet, "/documents/"+ingested.Source+"/integrity", "alice", nil, nil))
	assert.True(t, integrity.Verified)
	assert.Equal(t, "ok", integrity.Status)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/documents/"+ingested.Source, "bob", nil, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/documents/"+ingested.Source, "alice", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/documents/"+ingested.Source, "alice", nil, nil).Code)
	assert.Empty(t, decode[api.RetrieveResponse](t, env.do(t, http.MethodGet, "/retrieve?q=nmap+ports", "alice", nil, nil)).Results)
}

func TestPostDocumentHandler_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		declared string
		want     int
	}{
		{"no file field", "", "", nil, "", http.StatusBadRequest},
		{"unsupported extension", "document", "tool.exe", []byte("MZ"), "", http.StatusBadRequest},
		{"unsupported declared type", "document", "notes.txt", []byte("hello"), "docx", http.StatusBadRequest},
		{"empty file", "document", "empty.txt", []byte{}, "", http.StatusBadRequest},
		{"invalid json", "document", "bad.json", []byte("{nope"), "", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, headers := multipartBody(t, tt.field, tt.filename, tt.content, tt.declared)
			rec := env.do(t, http.MethodPost, "/documents", "alice", body, headers)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, decode[api.DocumentListResponse](t, env.do(t, http.MethodGet, "/documents", "alice", nil, nil)).Documents)
}

func TestRetrieveHandler_BadQueries(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/retrieve", "/retrieve?q=xss&k=abc", "/retrieve?q=xss&k=-1"} {
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, path, "alice", nil, nil).Code, path)
	}
}
