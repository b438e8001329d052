package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/CyberScholar/internal/adapter/utils"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/middleware"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string) {
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      Routes(utils.NewRouter()),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

// Routes mounts every endpoint on the shared router
func Routes(router chi.Router) chi.Router {
	router.Get("/health", middleware.GetHandler)

	router.Post("/chat", middleware.ChatHandler)
	router.Get("/chat/{chatId}/history", middleware.GetHistoryHandler)
	router.Get("/status/{id}", middleware.GetStatusHandler)

	router.Route("/documents", func(docs chi.Router) {
		docs.Post("/", middleware.PostDocumentHandler)
		docs.Get("/", middleware.ListDocumentsHandler)
		docs.Post("/reindex", middleware.ReindexHandler)
		docs.Delete("/{source}", middleware.DeleteDocumentHandler)
		docs.Get("/{source}/integrity", middleware.IntegrityHandler)
	})
	router.Get("/retrieve", middleware.RetrieveHandler)

	router.Route("/chat-security", func(cs chi.Router) {
		cs.Post("/set-password", middleware.SetPasswordHandler)
		cs.Post("/verify-password", middleware.VerifyPasswordHandler)
		cs.Post("/change-password", middleware.ChangePasswordHandler)
		cs.Post("/disable", middleware.DisableHandler)
		cs.Get("/status", middleware.ChatSecurityStatusHandler)
	})
	return router
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
