package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	goRisk "github.com/MrEthical07/goRisk"
	"github.com/MrEthical07/goRisk/middleware"
)

type handler struct {
	engine *goRisk.Engine
	logger *zap.Logger
}

type clientBody struct {
	NetworkAddress  string `json:"network_address"`
	DeviceSignature string `json:"device_signature"`
}

func (b clientBody) requestContext() goRisk.RequestContext {
	return goRisk.RequestContext{NetworkAddress: b.NetworkAddress, DeviceSignature: b.DeviceSignature}
}

type attemptBody struct {
	clientBody
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
	Reason  string `json:"reason"`
}

type userBody struct {
	clientBody
	UserID string `json:"user_id"`
}

type tokenBody struct {
	Token string `json:"token"`
}

// newRouter mounts the engine API. metrics may be nil.
func newRouter(engine *goRisk.Engine, logger *zap.Logger, metrics http.Handler, trustForwarded bool) http.Handler {
	h := &handler{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestContext(trustForwarded))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/security-report", h.securityReport)

		r.Post("/auth/check", h.checkAuth)
		r.Post("/auth/attempts", h.recordAttempt)

		r.Get("/suspicion/{address}", h.suspicion)
		r.Delete("/suspicion/{address}", h.clearSuspicion)

		r.Post("/risk", h.assessRisk)

		r.Post("/sessions", h.createSession)
		r.Get("/sessions/{id}", h.getSession)
		r.Delete("/sessions/{id}", h.terminateSession)
		r.Post("/sessions/{id}/validate", h.validateSession)
		r.Post("/sessions/{id}/mfa", h.markMFA)

		r.Get("/users/{userID}/sessions", h.userSessions)
		r.Delete("/users/{userID}/sessions", h.terminateAll)

		r.Post("/csrf", h.issueCSRF)
		r.Post("/csrf/validate", h.validateCSRF)
	})

	return r
}

func (h *handler) securityReport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.SecurityReport())
}

func (h *handler) checkAuth(w http.ResponseWriter, r *http.Request) {
	var body clientBody
	if !decode(w, r, &body) {
		return
	}
	d, err := h.engine.IsAuthAllowed(r.Context(), body.requestContext().Identity())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) recordAttempt(w http.ResponseWriter, r *http.Request) {
	var body attemptBody
	if !decode(w, r, &body) {
		return
	}
	if err := h.engine.RecordAuthAttempt(r.Context(), body.requestContext().Identity(), body.Success, body.UserID, body.Reason); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) suspicion(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.SuspicionScore(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) clearSuspicion(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearSuspicion(r.Context(), chi.URLParam(r, "address")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) assessRisk(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if !decode(w, r, &body) {
		return
	}
	a, err := h.engine.AssessRisk(r.Context(), body.requestContext(), body.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if !decode(w, r, &body) {
		return
	}
	meta, err := h.engine.CreateSession(r.Context(), body.UserID, body.requestContext())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	meta, ok, err := h.engine.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, goRisk.CodeSessionNotFound, goRisk.ReasonSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *handler) validateSession(w http.ResponseWriter, r *http.Request) {
	var body clientBody
	if !decode(w, r, &body) {
		return
	}
	res, err := h.engine.ValidateSession(r.Context(), chi.URLParam(r, "id"), body.requestContext())
	if err != nil {
		h.fail(w, err)
		return
	}
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, res)
}

func (h *handler) markMFA(w http.ResponseWriter, r *http.Request) {
	ok, err := h.engine.MarkMFAVerified(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, goRisk.CodeSessionNotFound, goRisk.ReasonSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) terminateSession(w http.ResponseWriter, r *http.Request) {
	removed, err := h.engine.TerminateSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"terminated": removed})
}

func (h *handler) userSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.GetUserSessions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) terminateAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.TerminateAllSessions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"terminated": n})
}

func (h *handler) issueCSRF(w http.ResponseWriter, _ *http.Request) {
	token, err := h.engine.GenerateCSRFToken()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenBody{Token: token})
}

func (h *handler) validateCSRF(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if !decode(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": h.engine.ValidateCSRFToken(body.Token)})
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, goRisk.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "INVALID_USER_ID", err.Error())
	case errors.Is(err, goRisk.ErrBackendUnavailable):
		h.logger.Error("backend unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "state backend unavailable")
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
