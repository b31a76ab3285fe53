package hld

import (
	"context"
	"net/http"

	"github.com/bargom/hldclient/pkg/models"
	"github.com/bargom/hldclient/pkg/runtime"
)

// ApprovalsAPIInterface is the approvals area of the API.
type ApprovalsAPIInterface interface {
	ListApprovalsRaw(ctx context.Context, req ListApprovalsRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.ApprovalsResponse], error)
	ListApprovals(ctx context.Context, req ListApprovalsRequest, overrides ...runtime.Override) (*models.ApprovalsResponse, error)
	DecideApprovalRaw(ctx context.Context, req DecideApprovalRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.DecideApprovalResponse], error)
	DecideApproval(ctx context.Context, req DecideApprovalRequest, overrides ...runtime.Override) (*models.DecideApprovalResponse, error)
}

// ListApprovalsRequest holds the parameters of ListApprovals.
type ListApprovalsRequest struct {
	// SessionID restricts the list to one session.
	SessionID *string
}

// Apply implements runtime.Parameters.
func (r ListApprovalsRequest) Apply(opts *runtime.RequestOptions) error {
	opts.SetQuery("sessionId", r.SessionID)
	return nil
}

// DecideApprovalRequest holds the parameters of DecideApproval.
type DecideApprovalRequest struct {
	ID   string
	Body *models.DecideApprovalRequest
}

// Apply implements runtime.Parameters.
func (r DecideApprovalRequest) Apply(opts *runtime.RequestOptions) error {
	if err := opts.Require("id", r.ID != ""); err != nil {
		return err
	}
	if err := opts.Require("decideApprovalRequest", r.Body != nil); err != nil {
		return err
	}
	if err := opts.Require("decision", r.Body.Decision != ""); err != nil {
		return err
	}
	body, err := models.DecideApprovalRequestToJSON(*r.Body)
	if err != nil {
		return err
	}
	opts.SetPathParam("id", r.ID)
	opts.Body = body
	opts.SetHeader("Content-Type", "application/json")
	return nil
}

var (
	listApprovals = runtime.Endpoint[ListApprovalsRequest, *models.ApprovalsResponse]{
		Operation: "listApprovals",
		Method:    http.MethodGet,
		Path:      "/approvals",
		Decode:    models.ApprovalsResponseFromJSON,
	}
	decideApproval = runtime.Endpoint[DecideApprovalRequest, *models.DecideApprovalResponse]{
		Operation: "decideApproval",
		Method:    http.MethodPost,
		Path:      "/approvals/{id}/decide",
		Decode:    models.DecideApprovalResponseFromJSON,
	}
)

// ApprovalsAPI implements ApprovalsAPIInterface.
type ApprovalsAPI struct {
	client *runtime.Client
}

var _ ApprovalsAPIInterface = (*ApprovalsAPI)(nil)

// NewApprovalsAPI creates an ApprovalsAPI on top of c.
func NewApprovalsAPI(c *runtime.Client) *ApprovalsAPI {
	return &ApprovalsAPI{client: c}
}

// WithMiddleware returns a copy using additional middleware.
func (a *ApprovalsAPI) WithMiddleware(mw ...runtime.Middleware) *ApprovalsAPI {
	return NewApprovalsAPI(a.client.WithMiddleware(mw...))
}

// ListApprovalsRaw lists approvals and returns the undecoded envelope.
func (a *ApprovalsAPI) ListApprovalsRaw(ctx context.Context, req ListApprovalsRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.ApprovalsResponse], error) {
	return listApprovals.Raw(ctx, a.client, req, overrides...)
}

// ListApprovals lists approvals.
func (a *ApprovalsAPI) ListApprovals(ctx context.Context, req ListApprovalsRequest, overrides ...runtime.Override) (*models.ApprovalsResponse, error) {
	return listApprovals.Value(ctx, a.client, req, overrides...)
}

// DecideApprovalRaw approves or denies a pending approval and returns the envelope.
func (a *ApprovalsAPI) DecideApprovalRaw(ctx context.Context, req DecideApprovalRequest, overrides ...runtime.Override) (*runtime.APIResponse[*models.DecideApprovalResponse], error) {
	return decideApproval.Raw(ctx, a.client, req, overrides...)
}

// DecideApproval approves or denies a pending approval.
func (a *ApprovalsAPI) DecideApproval(ctx context.Context, req DecideApprovalRequest, overrides ...runtime.Override) (*models.DecideApprovalResponse, error) {
	return decideApproval.Value(ctx, a.client, req, overrides...)
}
