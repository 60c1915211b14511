package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sujala/deuce/internal/logger"
	apimiddleware "github.com/sujala/deuce/pkg/api/middleware"
	"github.com/sujala/deuce/pkg/metrics"
)

// router builds the chi router: every /v1.0/vaults/... route requires
// a project id (§12.4); /health and the home document do not.
//
// Middleware stack - order matters:
//   - RequestID / RealIP for request tracking
//   - requestLogger using the internal logger
//   - Recoverer to turn panics into 500s instead of crashing
//   - Timeout to bound hung requests
//   - metrics.Middleware to record request counts/latencies
func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", s.liveness)
	r.Get("/health/ready", s.readiness)

	r.Route("/v1.0", func(r chi.Router) {
		r.Get("/", home)

		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.ProjectContext)

			r.Route("/vaults", func(r chi.Router) {
				r.Get("/", s.listVaults)

				r.Route("/{vaultID}", func(r chi.Router) {
					r.Put("/", s.putVault)
					r.Head("/", s.headVault)
					r.Delete("/", s.deleteVault)

					r.Route("/blocks", func(r chi.Router) {
						r.Get("/", s.listBlocks)
						r.Post("/", s.postBlocksBatch)
						r.Route("/{blockID}", func(r chi.Router) {
							r.Put("/", s.putBlock)
							r.Get("/", s.getBlock)
							r.Head("/", s.headBlock)
							r.Delete("/", s.deleteBlock)
						})
					})

					r.Route("/files", func(r chi.Router) {
						r.Get("/", s.listFiles)
						r.Post("/", s.postFile)
						r.Route("/{fileID}", func(r chi.Router) {
							r.Get("/", s.getFile)
							r.Post("/", s.postFileAssignOrFinalize)
							r.Delete("/", s.deleteFile)
							r.Get("/blocks", s.listFileBlocks)
						})
					})
				})
			})
		})
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the
// internal logger: request start at DEBUG, completion at INFO. It
// attaches a *logger.RequestFields to the request context so that
// downstream middleware and handlers (ProjectContext, the vault/file/
// block handlers) can record which tenant and resource the request
// touched; requestLogger picks those up again at completion time since
// they share the same underlying pointer.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		fields := logger.NewRequestFields(requestID, r.RemoteAddr)
		ctx := logger.WithContext(r.Context(), fields)
		r = r.WithContext(ctx)

		logger.DebugCtx(ctx, "API request started",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.InfoCtx(ctx, "API request completed",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyBytes, ww.BytesWritten(),
			logger.KeyDurationMs, fields.DurationMs(),
		)
	})
}
