// @title           CyberScholar API
// @version         1.0
// @description     Cybersecurity study assistant: document ingestion, retrieval, gated chat and chat lock
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/CyberScholar/internal/chatSecurity"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/store"
	jobmodel "github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/fileStore"
	"github.com/akolanti/CyberScholar/internal/handlers"
	"github.com/akolanti/CyberScholar/internal/job"
	"github.com/akolanti/CyberScholar/internal/middleware"
	"github.com/akolanti/CyberScholar/internal/rag"
	"github.com/akolanti/CyberScholar/internal/rag/llm"
	"github.com/akolanti/CyberScholar/internal/rag/llm/gemini"
	"github.com/akolanti/CyberScholar/internal/rag/llm/openaiLLM"
	"github.com/akolanti/CyberScholar/internal/rag/safety"
	"github.com/akolanti/CyberScholar/internal/rag/vectorDB/lexicalDB"
	"github.com/akolanti/CyberScholar/internal/server"
	"github.com/akolanti/CyberScholar/internal/worker"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

var (
	listenAddr        string
	llmProviderName   string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.StringVar(&llmProviderName, "llm", config.LLMProvider, "llm provider: gemini or openai")
	flag.Parse()

	if config.AuthToken == "" && !config.NoAuthBypass {
		logger.Error("AUTH_TOKEN is not set, every request will be rejected. Set NO_AUTH_BYPASS=true for local runs")
	}

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//stores are all redis or all memory
	stores := store.Open(serviceContext)
	logger.Info("Stores ready", "redis", stores.Redis)

	//init job service
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          stores.Jobs,
		MessageStore:      stores.Messages,
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	files, err := fileStore.New(config.UploadDir)
	if err != nil {
		logger.Error("Upload dir unavailable", "dir", config.UploadDir, "error", err)
		return
	}
	gate, err := safety.NewGate()
	if err != nil {
		logger.Error("Safety patterns failed to load", "error", err)
		return
	}
	llmProvider := newLLMProvider(serviceContext, llmProviderName)
	if llmProvider == nil {
		logger.Error("LLM provider failed to initialize. Shutting down.", "provider", llmProviderName)
		return
	}

	ragService := rag.NewService(rag.ServiceConfig{
		Index:     lexicalDB.NewStore(),
		LLM:       llmProvider,
		Gate:      gate,
		Documents: stores.Documents,
		Audit:     stores.Audit,
		Files:     files,
	})
	chatLock := chatSecurity.NewService(chatSecurity.ServiceConfig{
		Locks:    stores.Locks,
		Sessions: stores.Sessions,
		Audit:    stores.Audit,
	})

	middleware.StartLimiterJanitor(serviceContext, config.RateLimiterSweepInterval)
	handlers.InitJobHandler(service, chatLock)
	handlers.InitDocumentHandler(ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func newLLMProvider(ctx context.Context, name string) llm.Provider {
	switch name {
	case "openai":
		return openaiLLM.GetOpenAIClient(config.OpenAIAPIKey, config.OpenAIModelName)
	default:
		return gemini.GetGeminiClient(ctx, config.GeminiAPIKey, config.GeminiModelName)
	}
}
