// Package server exposes the engine over a local HTTP surface. The
// recommendation service POSTs instruction batches; the history and
// capability endpoints are informational only and feed nothing back into
// the recommendation policy.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter builds the HTTP routes over a Server.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	r.HandleFunc("/v1/batch", s.HandleBatch).Methods("POST")
	r.HandleFunc("/v1/history", s.HandleHistory).Methods("GET")
	r.HandleFunc("/v1/history/days", s.HandleHistoryDays).Methods("GET")
	r.HandleFunc("/v1/history/days/{day}", s.HandleHistoryDay).Methods("GET")
	r.HandleFunc("/v1/capabilities", s.HandleCapabilities).Methods("GET")
	return r
}
