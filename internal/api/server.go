// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vrsandeep/shelfie-go/internal/core"
)

// Server holds the dependencies for our API.
type Server struct {
	app *core.App
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{app: app}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics

	// Control panel endpoints polled by the browser client.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/start_scraping", s.handleStartScraping)
		r.Post("/stop_scraping", s.handleStopScraping)
		r.Get("/status", s.handleStatus)
		r.Post("/clear_logs", s.handleClearLogs)
		r.Get("/download/{output_file}", s.handleDownload)
		r.Get("/download_csv", s.handleDownloadCSV)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/stores", s.handleListStores)

		// Run history
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/products", s.handleGetRunProducts)
		r.Delete("/runs/{runID}", s.handleDeleteRun)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := s.app.DB().Ping(); err != nil {
				RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
				return
			}
			RespondWithJSON(w, http.StatusOK, map[string]any{
				"status":          "ok",
				"scraper_running": s.app.Runner().Running(),
			})
		})
	})

	// WebSocket route
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	return r
}
