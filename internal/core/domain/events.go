package domain

import "time"

// ClaimDecidedEvent is published after a claim receives a decision.
type ClaimDecidedEvent struct {
	ClaimID       string         `json:"claim_id"`
	Status        DecisionStatus `json:"status"`
	Reason        string         `json:"reason"`
	DocumentCount int            `json:"document_count"`
	FailedCount   int            `json:"failed_count"`
	DecidedAt     time.Time      `json:"decided_at"`
}
