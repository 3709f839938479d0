package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Gonmore/fprax-gateway/internal/backend"
	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
	offerssvc "github.com/Gonmore/fprax-gateway/internal/services/offers"
	"github.com/Gonmore/fprax-gateway/internal/transport/http/dto"
	httperrors "github.com/Gonmore/fprax-gateway/internal/transport/http/errors"
)

type OffersHandler struct {
	service *offerssvc.Service
}

func NewOffersHandler(service *offerssvc.Service) *OffersHandler {
	return &OffersHandler{service: service}
}

// List serves the cached offer list, fetching it first when the cache
// is cold or ?refresh=true. A fetch failure still answers 200: the
// stale cache plus the recorded error is the product behavior.
func (h *OffersHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "OFFERS_SERVICE_UNAVAILABLE", "offers service is unavailable")
		return
	}

	view := h.ensureView(r.Context(), identity, r.URL.Query().Get("refresh") == "true")
	httperrors.Write(w, http.StatusOK, h.mapView(identity.SID, view))
}

// Delete removes an offer through the backend and, once confirmed,
// from the cache.
func (h *OffersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "OFFERS_SERVICE_UNAVAILABLE", "offers service is unavailable")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid offer id")
		return
	}

	if err := h.service.Delete(r.Context(), identity.SID, identity.Snapshot.State.Token, id); err != nil {
		switch {
		case errors.Is(err, backend.ErrUnauthorized):
			writeUnauthorized(w, "UNAUTHORIZED", "backend rejected the session token")
		default:
			httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
				Code:    "BACKEND_ERROR",
				Message: "could not delete the offer",
			})
		}
		return
	}

	httperrors.Write(w, http.StatusOK, h.mapView(identity.SID, h.service.View(identity.SID)))
}

func (h *OffersHandler) ensureView(ctx context.Context, identity authsvc.Identity, refresh bool) offerssvc.View {
	view := h.service.View(identity.SID)
	if !view.Loaded || refresh {
		// The error is already recorded in the view.
		_ = h.service.Fetch(ctx, identity.SID, identity.Snapshot.State.Token)
		view = h.service.View(identity.SID)
	}
	return view
}

func (h *OffersHandler) mapView(sid string, view offerssvc.View) dto.OffersViewResponse {
	offers := make([]dto.OfferResponse, 0, len(view.Offers))
	for _, offer := range view.Offers {
		candidates := make([]dto.CandidateResponse, 0, len(offer.Candidates))
		for _, candidate := range offer.Candidates {
			candidates = append(candidates, dto.CandidateResponse{
				ID:        candidate.ID,
				StudentID: candidate.StudentID,
				Name:      candidate.Name,
				Status:    candidate.Status,
			})
		}
		offers = append(offers, dto.OfferResponse{
			ID:          offer.ID,
			Name:        offer.Name,
			Location:    offer.Location,
			Mode:        offer.Mode,
			Description: offer.Description,
			Candidates:  candidates,
		})
	}

	count, total, avg := h.service.Stats(sid)

	return dto.OffersViewResponse{
		Offers: offers,
		Stats: dto.OfferStatsResponse{
			OfferCount:     count,
			CandidateTotal: total,
			AvgCandidates:  avg,
		},
		Loading: view.Loading,
		Loaded:  view.Loaded,
		Error:   view.Err,
	}
}
