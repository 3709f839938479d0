package dto

type CandidateResponse struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

type OfferResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Location    string              `json:"location"`
	Mode        string              `json:"mode"`
	Description string              `json:"description"`
	Candidates  []CandidateResponse `json:"candidates"`
}

type OfferStatsResponse struct {
	OfferCount     int     `json:"offer_count"`
	CandidateTotal int     `json:"candidate_total"`
	AvgCandidates  float64 `json:"avg_candidates"`
}

type OffersViewResponse struct {
	Offers  []OfferResponse    `json:"offers"`
	Stats   OfferStatsResponse `json:"stats"`
	Loading bool               `json:"loading"`
	Loaded  bool               `json:"loaded"`
	Error   string             `json:"error,omitempty"`
}
