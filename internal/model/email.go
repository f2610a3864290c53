package model

import "time"

// EmailSendOutcome records one attempted send during a campaign.
type EmailSendOutcome struct {
	Recipient    string    `json:"recipient"`
	BusinessName string    `json:"business_name"`
	Subject      string    `json:"subject"`
	Sent         bool      `json:"sent"`
	Error        string    `json:"error,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

// DispatchSummary aggregates a bulk email campaign's outcome.
type DispatchSummary struct {
	TotalBusinesses int     `json:"total_businesses"`
	EmailsToSend    int     `json:"emails_to_send"`
	EmailsSent      int     `json:"emails_sent"`
	EmailsFailed    int     `json:"emails_failed"`
	SuccessRate     float64 `json:"success_rate"`
	Message         string  `json:"message,omitempty"`
}
