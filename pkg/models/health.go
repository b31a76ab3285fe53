// Package models contains the wire models of the hld REST API and their codecs.
package models

import "github.com/bargom/hldclient/pkg/runtime"

// HealthStatus is the overall daemon status.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       HealthStatus        `json:"status" validate:"required"`
	Version      *string             `json:"version,omitempty"`
	Dependencies *HealthDependencies `json:"dependencies,omitempty"`
}

// HealthDependencies reports the daemon's external dependencies.
type HealthDependencies struct {
	Claude *ClaudeStatus `json:"claude,omitempty"`
}

// ClaudeStatus reports whether the claude binary is usable by the daemon.
type ClaudeStatus struct {
	Available bool    `json:"available"`
	Path      *string `json:"path,omitempty"`
	Version   *string `json:"version,omitempty"`
	Error     *string `json:"error,omitempty"`
}

var healthCodec runtime.JSONCodec[HealthResponse]

// HealthResponseFromJSON decodes a HealthResponse; status is required.
func HealthResponseFromJSON(data []byte) (*HealthResponse, error) {
	v, err := healthCodec.FromWire(data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// HealthResponseToJSON encodes a HealthResponse.
func HealthResponseToJSON(v *HealthResponse) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return healthCodec.ToWire(*v)
}

// IsHealthy reports whether the daemon reported ok.
func (h *HealthResponse) IsHealthy() bool {
	return h != nil && h.Status == HealthStatusOK
}
