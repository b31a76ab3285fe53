// Package hld provides typed endpoint methods for the HumanLayer daemon REST API.
//
// Every operation comes in two forms: <Op>Raw returns the response envelope
// without decoding it, and <Op> returns the decoded value.
package hld

import "github.com/bargom/hldclient/pkg/runtime"

// APIClient groups the API areas of the daemon around a shared runtime client.
type APIClient struct {
	client *runtime.Client

	System    *SystemAPI
	Sessions  *SessionsAPI
	Approvals *ApprovalsAPI
}

// NewAPIClient creates an APIClient from a configuration.
func NewAPIClient(config runtime.Configuration) (*APIClient, error) {
	c, err := runtime.NewClient(config)
	if err != nil {
		return nil, err
	}
	return New(c), nil
}

// New wraps an existing runtime client.
func New(c *runtime.Client) *APIClient {
	return &APIClient{
		client:    c,
		System:    NewSystemAPI(c),
		Sessions:  NewSessionsAPI(c),
		Approvals: NewApprovalsAPI(c),
	}
}

// Runtime returns the underlying runtime client.
func (a *APIClient) Runtime() *runtime.Client {
	return a.client
}

// WithMiddleware returns a copy of the client whose API areas all use the
// additional middleware. The receiver is unchanged.
func (a *APIClient) WithMiddleware(mw ...runtime.Middleware) *APIClient {
	return New(a.client.WithMiddleware(mw...))
}
