package models

import (
	"time"

	"github.com/bargom/hldclient/pkg/runtime"
)

// SessionStatus is the lifecycle state of a daemon session.
type SessionStatus string

const (
	SessionStatusStarting     SessionStatus = "starting"
	SessionStatusRunning      SessionStatus = "running"
	SessionStatusCompleted    SessionStatus = "completed"
	SessionStatusFailed       SessionStatus = "failed"
	SessionStatusInterrupting SessionStatus = "interrupting"
	SessionStatusInterrupted  SessionStatus = "interrupted"
	SessionStatusWaitingInput SessionStatus = "waiting_input"
)

// Terminal reports whether the session can no longer make progress.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusInterrupted:
		return true
	default:
		return false
	}
}

// Session is a daemon-managed agent session.
type Session struct {
	ID              string        `json:"id" validate:"required"`
	RunID           string        `json:"run_id" validate:"required"`
	ClaudeSessionID *string       `json:"claude_session_id,omitempty"`
	ParentSessionID *string       `json:"parent_session_id,omitempty"`
	Status          SessionStatus `json:"status" validate:"required"`
	Query           string        `json:"query" validate:"required"`
	Title           *string       `json:"title,omitempty"`
	Summary         *string       `json:"summary,omitempty"`
	Model           *string       `json:"model,omitempty"`
	WorkingDir      *string       `json:"working_dir,omitempty"`
	CreatedAt       time.Time     `json:"created_at" validate:"required"`
	LastActivityAt  time.Time     `json:"last_activity_at" validate:"required"`
	// CompletedAt is nullable: it is sent as null while the session runs.
	CompletedAt     *time.Time `json:"completed_at"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	CostUSD         *float64   `json:"cost_usd,omitempty"`
	Archived        *bool      `json:"archived,omitempty"`
	AutoAcceptEdits *bool      `json:"auto_accept_edits,omitempty"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Data Session `json:"data"`
}

// SessionsResponse wraps a list of sessions.
type SessionsResponse struct {
	Data []Session `json:"data" validate:"required,dive"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Query                 string   `json:"query" validate:"required"`
	Title                 *string  `json:"title,omitempty"`
	Model                 *string  `json:"model,omitempty"`
	WorkingDir            *string  `json:"working_dir,omitempty"`
	MaxTurns              *int     `json:"max_turns,omitempty"`
	SystemPrompt          *string  `json:"system_prompt,omitempty"`
	AppendSystemPrompt    *string  `json:"append_system_prompt,omitempty"`
	AllowedTools          []string `json:"allowed_tools,omitempty"`
	DisallowedTools       []string `json:"disallowed_tools,omitempty"`
	AdditionalDirectories []string `json:"additional_directories,omitempty"`
	AutoAcceptEdits       *bool    `json:"auto_accept_edits,omitempty"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	Data CreateSessionResult `json:"data"`
}

// CreateSessionResult identifies a newly launched session.
type CreateSessionResult struct {
	SessionID string `json:"session_id" validate:"required"`
	RunID     string `json:"run_id" validate:"required"`
}

// SessionFromJSON decodes a Session.
func SessionFromJSON(data []byte) (*Session, error) {
	return runtime.DecodeJSONPtr[Session](data)
}

// SessionToJSON encodes a Session.
func SessionToJSON(v Session) ([]byte, error) {
	return runtime.JSONCodec[Session]{}.ToWire(v)
}

// SessionResponseFromJSON decodes a SessionResponse.
func SessionResponseFromJSON(data []byte) (*SessionResponse, error) {
	return runtime.DecodeJSONPtr[SessionResponse](data)
}

// SessionsResponseFromJSON decodes a SessionsResponse.
func SessionsResponseFromJSON(data []byte) (*SessionsResponse, error) {
	return runtime.DecodeJSONPtr[SessionsResponse](data)
}

// CreateSessionRequestToJSON encodes a CreateSessionRequest.
func CreateSessionRequestToJSON(v CreateSessionRequest) ([]byte, error) {
	return runtime.JSONCodec[CreateSessionRequest]{}.ToWire(v)
}

// CreateSessionRequestFromJSON decodes a CreateSessionRequest.
func CreateSessionRequestFromJSON(data []byte) (*CreateSessionRequest, error) {
	return runtime.DecodeJSONPtr[CreateSessionRequest](data)
}

// CreateSessionResponseFromJSON decodes a CreateSessionResponse.
func CreateSessionResponseFromJSON(data []byte) (*CreateSessionResponse, error) {
	return runtime.DecodeJSONPtr[CreateSessionResponse](data)
}
