package utils

import (
	"net/http"
	"strconv"

	_ "github.com/akolanti/CyberScholar/cmd/api/docs"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

func GetNewUUID() string {
	return uuid.New().String()
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// QueryInt reads an optional integer query param; found is false when it is absent
func QueryInt(request *http.Request, key string) (value int, found bool, err error) {
	raw := request.URL.Query().Get(key)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.Atoi(raw)
	return value, true, err
}

// NewRouter returns a router with panic recovery, /metrics and the swagger UI mounted
func NewRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	mountSwagger(router)
	//register prometheus
	router.Handle("/metrics", promhttp.Handler())
	return router
}

func mountSwagger(r chi.Router) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
