package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/auth"
)

// NewRouter wires the REST and websocket surface.
func NewRouter(service *app.SessionService, verifier *auth.Verifier) *mux.Router {
	api := NewAPI(service, verifier, time.Now)
	ws := NewWSHandler(service, verifier)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/sessions", api.CreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", api.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", api.AbandonSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/answers", api.SubmitAnswer).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/finish", api.FinishSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/ws", ws.ServeWS).Methods(http.MethodGet)
	return r
}
