package dto

type MarkRevealedRequest struct {
	StudentID int64 `json:"student_id"`
}

type RevealedCVsResponse struct {
	Revealed []int64 `json:"revealed"`
	Count    int     `json:"count"`
	Loading  bool    `json:"loading"`
	Loaded   bool    `json:"loaded"`
	Error    string  `json:"error,omitempty"`
}

type TokenBalanceResponse struct {
	Balance int `json:"balance"`
}
