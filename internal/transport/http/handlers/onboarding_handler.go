package handlers

import (
	"net/http"
	"strings"

	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
	onboardingsvc "github.com/Gonmore/fprax-gateway/internal/services/onboarding"
	"github.com/Gonmore/fprax-gateway/internal/transport/http/dto"
	httperrors "github.com/Gonmore/fprax-gateway/internal/transport/http/errors"
)

type OnboardingHandler struct {
	service *onboardingsvc.Service
}

func NewOnboardingHandler(service *onboardingsvc.Service) *OnboardingHandler {
	return &OnboardingHandler{service: service}
}

// Status serves the cached onboarding state, fetching it on a cold
// cache or ?refresh=true.
func (h *OnboardingHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ONBOARDING_SERVICE_UNAVAILABLE", "onboarding service is unavailable")
		return
	}

	view := h.service.View(identity.SID)
	if !view.Loaded || r.URL.Query().Get("refresh") == "true" {
		_ = h.service.Fetch(r.Context(), identity.SID, identity.Snapshot.State.Token)
		view = h.service.View(identity.SID)
	}
	httperrors.Write(w, http.StatusOK, mapOnboardingView(view))
}

// CompleteStep records a finished onboarding step.
func (h *OnboardingHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ONBOARDING_SERVICE_UNAVAILABLE", "onboarding service is unavailable")
		return
	}

	var req dto.CompleteStepRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Step) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "step is required")
		return
	}

	// On a failed confirmation the local mark survives and the view
	// carries the recorded error, so both paths answer the same way.
	_ = h.service.CompleteStep(r.Context(), identity.SID, identity.Snapshot.State.Token, req.Step)

	httperrors.Write(w, http.StatusOK, mapOnboardingView(h.service.View(identity.SID)))
}

func mapOnboardingView(view onboardingsvc.View) dto.OnboardingViewResponse {
	offers := make([]dto.OfferResponse, 0, len(view.Offers))
	for _, offer := range view.Offers {
		offers = append(offers, dto.OfferResponse{
			ID:          offer.ID,
			Name:        offer.Name,
			Location:    offer.Location,
			Mode:        offer.Mode,
			Description: offer.Description,
			Candidates:  []dto.CandidateResponse{},
		})
	}

	return dto.OnboardingViewResponse{
		Status: dto.OnboardingStatusResponse{
			CurrentStep:    view.Status.CurrentStep,
			CompletedSteps: view.Status.CompletedSteps,
			Completed:      view.Status.Completed,
		},
		Offers:  offers,
		Loading: view.Loading,
		Loaded:  view.Loaded,
		Error:   view.Err,
	}
}
