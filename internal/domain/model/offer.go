package model

import "time"

type Offer struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Location    string      `json:"location"`
	Mode        string      `json:"mode"`
	Description string      `json:"description,omitempty"`
	Candidates  []Candidate `json:"candidates,omitempty"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
}

type Candidate struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status,omitempty"`
}
