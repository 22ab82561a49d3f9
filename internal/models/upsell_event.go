package models

import "time"

// UpsellEvent records one "limit reached" interaction. Stored in a bounded
// Redis list (last 100 per user) for the premium funnel; also emitted to Kafka.
type UpsellEvent struct {
	UserID     string    `json:"user_id"`
	ActionType string    `json:"action_type"`
	Choice     string    `json:"choice,omitempty"` // upgrade | remind_tomorrow | skip; empty while the prompt is unanswered
	OccurredAt time.Time `json:"occurred_at"`
}
