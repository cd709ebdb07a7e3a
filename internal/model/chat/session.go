package chat

import "time"

// Session captures a transient conversation addressed by an opaque identifier.
type Session struct {
	ID         string    `json:"session_id"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	ID             string     `json:"session_id"`
	MessageCount   int        `json:"message_count"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccess     time.Time  `json:"last_access"`
	FirstMessageAt *time.Time `json:"first_message_time"`
	LastMessageAt  *time.Time `json:"last_message_time"`
}

// Stats aggregates store-wide counters.
type Stats struct {
	Sessions int `json:"active_sessions"`
	Messages int `json:"total_messages"`
}
