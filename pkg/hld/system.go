package hld

import (
	"context"
	"net/http"

	"github.com/bargom/hldclient/pkg/models"
	"github.com/bargom/hldclient/pkg/runtime"
)

// SystemAPIInterface is the system area of the API.
type SystemAPIInterface interface {
	GetHealthRaw(ctx context.Context, overrides ...runtime.Override) (*runtime.APIResponse[*models.HealthResponse], error)
	GetHealth(ctx context.Context, overrides ...runtime.Override) (*models.HealthResponse, error)
}

var getHealth = runtime.Endpoint[runtime.NoParams, *models.HealthResponse]{
	Operation: "getHealth",
	Method:    http.MethodGet,
	Path:      "/health",
	Decode:    models.HealthResponseFromJSON,
}

// SystemAPI implements SystemAPIInterface.
type SystemAPI struct {
	client *runtime.Client
}

var _ SystemAPIInterface = (*SystemAPI)(nil)

// NewSystemAPI creates a SystemAPI on top of c.
func NewSystemAPI(c *runtime.Client) *SystemAPI {
	return &SystemAPI{client: c}
}

// WithMiddleware returns a copy using additional middleware.
func (a *SystemAPI) WithMiddleware(mw ...runtime.Middleware) *SystemAPI {
	return NewSystemAPI(a.client.WithMiddleware(mw...))
}

// GetHealthRaw checks daemon health and returns the undecoded envelope.
func (a *SystemAPI) GetHealthRaw(ctx context.Context, overrides ...runtime.Override) (*runtime.APIResponse[*models.HealthResponse], error) {
	return getHealth.Raw(ctx, a.client, runtime.NoParams{}, overrides...)
}

// GetHealth checks daemon health.
func (a *SystemAPI) GetHealth(ctx context.Context, overrides ...runtime.Override) (*models.HealthResponse, error) {
	return getHealth.Value(ctx, a.client, runtime.NoParams{}, overrides...)
}
