package hld

import (
	"context"
	"net/http"

	"github.com/bargom/hldclient/pkg/models"
	"github.com/bargom/hldclient/pkg/runtime"
)

// SessionsAPIInterface is the sessions area of the API.
type SessionsAPIInterface interface {
	ListSessionsRaw(ctx context.Context, req ListSessionsRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.SessionsResponse], error)
	ListSessions(ctx context.Context, req ListSessionsRequest, overrides ...runtime.Override) (*models.SessionsResponse, error)
	GetSessionRaw(ctx context.Context, req GetSessionRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.SessionResponse], error)
	GetSession(ctx context.Context, req GetSessionRequest, overrides ...runtime.Override) (*models.SessionResponse, error)
	CreateSessionRaw(ctx context.Context, req CreateSessionRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.CreateSessionResponse], error)
	CreateSession(ctx context.Context, req CreateSessionRequest, overrides ...runtime.Override) (*models.CreateSessionResponse, error)
	ArchiveSessionRaw(ctx context.Context, req ArchiveSessionRequest, overrides ...runtime.Override) (*runtime.APIResponse[struct{}], error)
	ArchiveSession(ctx context.Context, req ArchiveSessionRequest, overrides ...runtime.Override) error
}

// ListSessionsRequest holds the parameters of ListSessions.
type ListSessionsRequest struct {
	// LeafOnly returns only the latest session of each continuation chain.
	LeafOnly *bool
	// IncludeArchived includes archived sessions.
	IncludeArchived *bool
}

// Apply implements runtime.Parameters.
func (r ListSessionsRequest) Apply(opts *runtime.RequestOptions) error {
	opts.SetQuery("leafOnly", r.LeafOnly)
	opts.SetQuery("includeArchived", r.IncludeArchived)
	return nil
}

// GetSessionRequest holds the parameters of GetSession.
type GetSessionRequest struct {
	ID string
}

// Apply implements runtime.Parameters.
func (r GetSessionRequest) Apply(opts *runtime.RequestOptions) error {
	if err := opts.Require("id", r.ID != ""); err != nil {
		return err
	}
	opts.SetPathParam("id", r.ID)
	return nil
}

// CreateSessionRequest holds the parameters of CreateSession.
type CreateSessionRequest struct {
	Body *models.CreateSessionRequest
}

// Apply implements runtime.Parameters.
func (r CreateSessionRequest) Apply(opts *runtime.RequestOptions) error {
	if err := opts.Require("createSessionRequest", r.Body != nil); err != nil {
		return err
	}
	if err := opts.Require("query", r.Body.Query != ""); err != nil {
		return err
	}
	body, err := models.CreateSessionRequestToJSON(*r.Body)
	if err != nil {
		return err
	}
	opts.Body = body
	opts.SetHeader("Content-Type", "application/json")
	return nil
}

// ArchiveSessionRequest holds the parameters of ArchiveSession.
type ArchiveSessionRequest struct {
	ID string
}

// Apply implements runtime.Parameters.
func (r ArchiveSessionRequest) Apply(opts *runtime.RequestOptions) error {
	if err := opts.Require("id", r.ID != ""); err != nil {
		return err
	}
	opts.SetPathParam("id", r.ID)
	return nil
}

var (
	listSessions = runtime.Endpoint[ListSessionsRequest, *models.SessionsResponse]{
		Operation: "listSessions",
		Method:    http.MethodGet,
		Path:      "/sessions",
		Decode:    models.SessionsResponseFromJSON,
	}
	getSession = runtime.Endpoint[GetSessionRequest, *models.SessionResponse]{
		Operation: "getSession",
		Method:    http.MethodGet,
		Path:      "/sessions/{id}",
		Decode:    models.SessionResponseFromJSON,
	}
	createSession = runtime.Endpoint[CreateSessionRequest, *models.CreateSessionResponse]{
		Operation: "createSession",
		Method:    http.MethodPost,
		Path:      "/sessions",
		Decode:    models.CreateSessionResponseFromJSON,
	}
	archiveSession = runtime.Endpoint[ArchiveSessionRequest, struct{}]{
		Operation: "archiveSession",
		Method:    http.MethodPost,
		Path:      "/sessions/{id}/archive",
		Decode:    runtime.DecodeVoid,
	}
)

// SessionsAPI implements SessionsAPIInterface.
type SessionsAPI struct {
	client *runtime.Client
}

var _ SessionsAPIInterface = (*SessionsAPI)(nil)

// NewSessionsAPI creates a SessionsAPI on top of c.
func NewSessionsAPI(c *runtime.Client) *SessionsAPI {
	return &SessionsAPI{client: c}
}

// WithMiddleware returns a copy using additional middleware.
func (a *SessionsAPI) WithMiddleware(mw ...runtime.Middleware) *SessionsAPI {
	return NewSessionsAPI(a.client.WithMiddleware(mw...))
}

// ListSessionsRaw lists sessions and returns the undecoded envelope.
func (a *SessionsAPI) ListSessionsRaw(ctx context.Context, req ListSessionsRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.SessionsResponse], error) {
	return listSessions.Raw(ctx, a.client, req, overrides...)
}

// ListSessions lists sessions.
func (a *SessionsAPI) ListSessions(ctx context.Context, req ListSessionsRequest, overrides ...runtime.Override) (*models.SessionsResponse, error) {
	return listSessions.Value(ctx, a.client, req, overrides...)
}

// GetSessionRaw fetches one session and returns the undecoded envelope.
func (a *SessionsAPI) GetSessionRaw(ctx context.Context, req GetSessionRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.SessionResponse], error) {
	return getSession.Raw(ctx, a.client, req, overrides...)
}

// GetSession fetches one session.
func (a *SessionsAPI) GetSession(ctx context.Context, req GetSessionRequest, overrides ...runtime.Override) (*models.SessionResponse, error) {
	return getSession.Value(ctx, a.client, req, overrides...)
}

// CreateSessionRaw launches a session and returns the undecoded envelope.
func (a *SessionsAPI) CreateSessionRaw(ctx context.Context, req CreateSessionRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.CreateSessionResponse], error) {
	return createSession.Raw(ctx, a.client, req, overrides...)
}

// CreateSession launches a session.
func (a *SessionsAPI) CreateSession(ctx context.Context, req CreateSessionRequest, overrides ...runtime.Override) (*models.CreateSessionResponse, error) {
	return createSession.Value(ctx, a.client, req, overrides...)
}

// ArchiveSessionRaw archives a session and returns the envelope.
func (a *SessionsAPI) ArchiveSessionRaw(ctx context.Context, req ArchiveSessionRequest, overrides ...runtime.Override) (*runtime.APIResponse[struct{}], error) {
	return archiveSession.Raw(ctx, a.client, req, overrides...)
}

// ArchiveSession archives a session.
func (a *SessionsAPI) ArchiveSession(ctx context.Context, req ArchiveSessionRequest, overrides ...runtime.Override) error {
	_, err := archiveSession.Value(ctx, a.client, req, overrides...)
	return err
}
