package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/floorwatch/internal/console/service"
	"github.com/xela07ax/floorwatch/internal/domain"
)

type AccessHandler struct {
	service *service.AccessService
	logger  *zap.Logger
}

func NewAccessHandler(s *service.AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{service: s, logger: logger.Named("access-handler")}
}

type grantRequest struct {
	MacAddress string `json:"mac_address"`
}

type accessResponse struct {
	Message    string `json:"message"`
	MacAddress string `json:"mac_address"`
}

type listResponse struct {
	TemporaryAuthorized []string `json:"temporary_authorized"`
}

// List отдаёт текущий набор временных допусков.
// GET /temp-auth
func (h *AccessHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list temporary access", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list temporary authorizations")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{TemporaryAuthorized: ids})
}

// Grant выдаёт временный допуск.
// POST /temp-auth {"mac_address": "..."}
func (h *AccessHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.service.Grant(r.Context(), req.MacAddress, requestMeta(r))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidIdentifier) {
			writeError(w, http.StatusBadRequest, "mac_address is required")
			return
		}
		h.logger.Error("failed to grant temporary access", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add temporary authorization")
		return
	}

	writeJSON(w, http.StatusOK, accessResponse{Message: "temporary authorization added", MacAddress: id})
}

// Revoke снимает временный допуск.
// DELETE /temp-auth/{mac}
func (h *AccessHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")

	id, err := h.service.Revoke(r.Context(), mac, requestMeta(r))
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, "mac_address is required")
		return
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "mac_address "+id+" is not temporarily authorized")
		return
	case err != nil:
		h.logger.Error("failed to revoke temporary access", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to remove temporary authorization")
		return
	}

	writeJSON(w, http.StatusOK, accessResponse{Message: "temporary authorization removed", MacAddress: id})
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		RequestID:  middleware.GetReqID(r.Context()),
		RemoteAddr: r.RemoteAddr,
	}
}
