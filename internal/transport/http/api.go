package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/auth"
	"maipocket-quiz/internal/domain"
)

// API serves the session use cases over REST. Sessions are only visible to the
// player who created them, so anonymous clients must keep sending the same device id.
type API struct {
	service  *app.SessionService
	verifier *auth.Verifier
	now      func() time.Time
}

func NewAPI(service *app.SessionService, verifier *auth.Verifier, now func() time.Time) *API {
	return &API{service: service, verifier: verifier, now: now}
}

func (a *API) player(r *http.Request) domain.Player {
	return a.verifier.PlayerFromRequest(r, a.now())
}

type createSessionRequest struct {
	Mode   domain.Mode      `json:"mode"`
	Kind   domain.MediaKind `json:"kind"`
	Filter domain.Filter    `json:"filter"`
}

type createSessionResponse struct {
	SessionID string              `json:"sessionId"`
	State     domain.SessionState `json:"state"`
}

type answerRequest struct {
	Choice string `json:"choice"`
}

type answerResponse struct {
	Outcome domain.AnswerOutcome `json:"outcome"`
	State   domain.SessionState  `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid session request body"))
		return
	}
	state, err := a.service.Start(r.Context(), a.player(r), app.StartRequest{
		Mode:   body.Mode,
		Kind:   body.Kind,
		Filter: body.Filter,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: state.SessionID, State: state})
}

func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := a.service.State(r.Context(), a.player(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Choice == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid answer body"))
		return
	}
	outcome, state, err := a.service.Answer(r.Context(), a.player(r), mux.Vars(r)["id"], body.Choice)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Outcome: outcome, State: state})
}

func (a *API) FinishSession(w http.ResponseWriter, r *http.Request) {
	res, err := a.service.Finish(r.Context(), a.player(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) AbandonSession(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Abandon(r.Context(), a.player(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnknownChoice):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotEnoughContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrContentUnavailable), errors.Is(err, domain.ErrTransport):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSessionNotStarted),
		errors.Is(err, domain.ErrSessionStarted),
		errors.Is(err, domain.ErrSessionTerminal),
		errors.Is(err, domain.ErrSessionAbandoned),
		errors.Is(err, domain.ErrSessionNotTerminal),
		errors.Is(err, domain.ErrMediaNotReady),
		errors.Is(err, domain.ErrAnswerLocked),
		errors.Is(err, domain.ErrUntimedMode):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
