package handlers

import (
	"net/http"

	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
	cvssvc "github.com/Gonmore/fprax-gateway/internal/services/cvs"
	"github.com/Gonmore/fprax-gateway/internal/transport/http/dto"
	httperrors "github.com/Gonmore/fprax-gateway/internal/transport/http/errors"
)

type StudentsHandler struct {
	service *cvssvc.Service
}

func NewStudentsHandler(service *cvssvc.Service) *StudentsHandler {
	return &StudentsHandler{service: service}
}

// RevealedCVs serves the cached revealed-CV set.
func (h *StudentsHandler) RevealedCVs(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CVS_SERVICE_UNAVAILABLE", "cvs service is unavailable")
		return
	}

	view := h.service.View(identity.SID)
	if !view.Loaded || r.URL.Query().Get("refresh") == "true" {
		_ = h.service.Fetch(r.Context(), identity.SID, identity.Snapshot.State.Token)
		view = h.service.View(identity.SID)
	}

	httperrors.Write(w, http.StatusOK, dto.RevealedCVsResponse{
		Revealed: view.Revealed,
		Count:    len(view.Revealed),
		Loading:  view.Loading,
		Loaded:   view.Loaded,
		Error:    view.Err,
	})
}

// MarkRevealed records a CV reveal locally; the backend learns about it
// through its own reveal flow and the next fetch reconciles.
func (h *StudentsHandler) MarkRevealed(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CVS_SERVICE_UNAVAILABLE", "cvs service is unavailable")
		return
	}

	var req dto.MarkRevealedRequest
	if err := decodeJSON(r, &req); err != nil || req.StudentID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "student_id is required")
		return
	}

	h.service.MarkRevealed(identity.SID, req.StudentID)

	view := h.service.View(identity.SID)
	httperrors.Write(w, http.StatusOK, dto.RevealedCVsResponse{
		Revealed: view.Revealed,
		Count:    len(view.Revealed),
		Loading:  view.Loading,
		Loaded:   view.Loaded,
		Error:    view.Err,
	})
}

// TokenBalance serves the cached reveal-token balance.
func (h *StudentsHandler) TokenBalance(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CVS_SERVICE_UNAVAILABLE", "cvs service is unavailable")
		return
	}

	view := h.service.View(identity.SID)
	if !view.Loaded {
		_ = h.service.Fetch(r.Context(), identity.SID, identity.Snapshot.State.Token)
		view = h.service.View(identity.SID)
	}

	httperrors.Write(w, http.StatusOK, dto.TokenBalanceResponse{Balance: view.Balance})
}
