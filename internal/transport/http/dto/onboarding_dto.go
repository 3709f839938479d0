package dto

type CompleteStepRequest struct {
	Step string `json:"step"`
}

type OnboardingStatusResponse struct {
	CurrentStep    string   `json:"current_step"`
	CompletedSteps []string `json:"completed_steps"`
	Completed      bool     `json:"completed"`
}

type OnboardingViewResponse struct {
	Status  OnboardingStatusResponse `json:"status"`
	Offers  []OfferResponse          `json:"recommended_offers"`
	Loading bool                     `json:"loading"`
	Loaded  bool                     `json:"loaded"`
	Error   string                   `json:"error,omitempty"`
}
