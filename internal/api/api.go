package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"neovar/internal/config"
	"neovar/internal/mailer"
	"neovar/internal/metrics"
	"neovar/internal/nas"
	"neovar/internal/project"
	"neovar/internal/store"
	"neovar/internal/ws"
)

type Dependencies struct {
	Config       config.Config
	Store        *store.Store
	Orchestrator *project.Orchestrator
	Hub          *ws.Hub
	Metrics      *metrics.Metrics
	Mailer       *mailer.Mailer
	NAS          *nas.Client
}

func New(dep Dependencies) http.Handler {
	api := &server{
		cfg:     dep.Config,
		store:   dep.Store,
		orch:    dep.Orchestrator,
		hub:     dep.Hub,
		metrics: dep.Metrics,
		mailer:  dep.Mailer,
		nas:     dep.NAS,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)
	r.Use(api.observeRequests)

	// Route names mirror the frontend contract; they predate this service.
	r.Get("/start-project", api.handleStartProject)
	r.Post("/upload", api.handleUpload)
	r.Post("/merge", api.handleMerge)
	r.Get("/progress", api.handleProgress)
	r.Get("/read-counter-json", api.handleReadCounterJSON)
	r.Get("/download-vcf", api.handleDownloadVCF)
	r.Post("/send-help-query", api.handleSendHelpQuery)
	r.Post("/create-syno-share", api.handleCreateSynoShare)

	r.Get("/ws", api.handleWS)
	r.Method(http.MethodGet, "/metrics", api.metrics.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return r
}
