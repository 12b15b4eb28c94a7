package api

import (
	"net/http"

	"rewatch/handlers"

	"github.com/gorilla/mux"
)

// corsMiddleware handles CORS for API routes; the dashboard frontend is
// served from a different origin during development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(r *mux.Router, feedHandler *handlers.FeedHandler) {
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(corsMiddleware)

	apiRouter.HandleFunc("/history/all", feedHandler.GetAll).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/history/youtube", feedHandler.GetYouTube).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/profiles", feedHandler.ListProfiles).Methods(http.MethodGet, http.MethodOptions)
}
