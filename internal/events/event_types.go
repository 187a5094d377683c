package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserLoggedIn         EventType = "user_logged_in"
	EventLoginFailed          EventType = "login_failed"
	EventSessionRefreshed     EventType = "session_refreshed"
	EventSessionRefreshFailed EventType = "session_refresh_failed"
	EventUserLoggedOut        EventType = "user_logged_out"
)

// LoginMethod distinguishes how a session was established.
type LoginMethod string

const (
	LoginMethodCredentials LoginMethod = "credentials"
	LoginMethodOAuth       LoginMethod = "oauth"
)

// Event represents an auth event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginPayload payload.
type LoginPayload struct {
	Method   LoginMethod `json:"method"`
	Email    string      `json:"email"`
	Role     string      `json:"role"`
	Provider string      `json:"provider,omitempty"`
	NewUser  bool        `json:"new_user,omitempty"`
}

// LoginFailedPayload payload. Reason is for logs only and never reaches the client.
type LoginFailedPayload struct {
	Method LoginMethod `json:"method"`
	Email  string      `json:"email,omitempty"`
	Reason string      `json:"reason"`
}

// RefreshPayload payload.
type RefreshPayload struct {
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
	Error                string    `json:"error,omitempty"`
}
