package domain

import "time"

// SubmitRequest is a single user query entering the pipeline.
// Immutable once received.
type SubmitRequest struct {
	Message    string    `json:"message"`
	SessionID  string    `json:"session_id,omitempty"`
	ReceivedAt time.Time `json:"-"`
}

// SubmitResponse is the well-formed result of one turn. Every turn,
// including rejected ones, resolves to exactly one of these.
type SubmitResponse struct {
	Success   bool     `json:"success"`
	Response  string   `json:"response"`
	SessionID string   `json:"session_id"`
	Category  Category `json:"category,omitempty"`
	Violation string   `json:"violation,omitempty"`
	Advisory  string   `json:"advisory,omitempty"`
}

// HealthStatus reflects reachability of the upstream collaborators.
type HealthStatus struct {
	Status      string `json:"status"` // ok, degraded
	Provider    bool   `json:"provider"`
	VectorIndex bool   `json:"vector_index"`
}
