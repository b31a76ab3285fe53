// Package daemontest provides an in-process fake of the hld REST API for tests.
package daemontest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/bargom/hldclient/pkg/models"
)

// APIPrefix is where the REST API is mounted.
const APIPrefix = "/api/v1"

// Fault replaces the response of a route.
type Fault struct {
	Status int
	Body   string
	Delay  time.Duration
	// Times limits how often the fault fires; zero means always.
	Times int
}

// RecordedRequest is a request as the daemon received it.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Daemon is a fake hld daemon backed by in-memory state.
type Daemon struct {
	mu        sync.Mutex
	health    models.HealthResponse
	sessions  map[string]models.Session
	order     []string
	approvals map[string]models.Approval
	faults    map[string]*Fault
	requests  []RecordedRequest

	validate *validator.Validate
	router   chi.Router

	// Now returns the current time; tests may replace it.
	Now func() time.Time
}

// New creates a daemon that reports itself healthy.
func New() *Daemon {
	d := &Daemon{
		health:    models.HealthResponse{Status: models.HealthStatusOK},
		sessions:  make(map[string]models.Session),
		approvals: make(map[string]models.Approval),
		faults:    make(map[string]*Fault),
		validate:  validator.New(),
		Now:       func() time.Time { return time.Now().UTC() },
	}
	d.router = d.routes()
	return d
}

// Start serves a new daemon for the duration of the test and returns it together
// with the API base URL.
func Start(t testing.TB) (*Daemon, string) {
	t.Helper()
	d := New()
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)
	return d, srv.URL + APIPrefix
}

// ServeHTTP implements http.Handler.
func (d *Daemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.router.ServeHTTP(w, r)
}

func (d *Daemon) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(d.record)
	r.Use(d.injectFaults)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/health", d.getHealth)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", d.listSessions)
			r.Post("/", d.createSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", d.getSession)
				r.Post("/archive", d.archiveSession)
			})
		})

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", d.listApprovals)
			r.Post("/{id}/decide", d.decideApproval)
		})
	})
	return r
}

// SetHealth replaces the health report.
func (d *Daemon) SetHealth(h models.HealthResponse) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health = h
}

// AddSession stores a session.
func (d *Daemon) AddSession(s models.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sessions[s.ID]; !ok {
		d.order = append(d.order, s.ID)
	}
	d.sessions[s.ID] = s
}

// Session returns a stored session.
func (d *Daemon) Session(id string) (models.Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[id]
	return s, ok
}

// AddApproval stores an approval.
func (d *Daemon) AddApproval(a models.Approval) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.approvals[a.ID] = a
}

// Approval returns a stored approval.
func (d *Daemon) Approval(id string) (models.Approval, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.approvals[id]
	return a, ok
}

// Fail installs a fault for method and path, where path is relative to APIPrefix.
func (d *Daemon) Fail(method, path string, f Fault) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[faultKey(method, APIPrefix+path)] = &f
}

// ClearFaults removes all faults.
func (d *Daemon) ClearFaults() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = make(map[string]*Fault)
}

// Requests returns a copy of every request received so far.
func (d *Daemon) Requests() []RecordedRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RecordedRequest(nil), d.requests...)
}

// LastRequest returns the most recent request.
func (d *Daemon) LastRequest() (RecordedRequest, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.requests) == 0 {
		return RecordedRequest{}, false
	}
	return d.requests[len(d.requests)-1], true
}

func (d *Daemon) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		d.mu.Lock()
		d.requests = append(d.requests, RecordedRequest{
			Method:   r.Method,
			Path:     strings.TrimPrefix(r.URL.Path, APIPrefix),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		d.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (d *Daemon) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		key := faultKey(r.Method, r.URL.Path)
		f, ok := d.faults[key]
		var fault Fault
		if ok {
			fault = *f
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					delete(d.faults, key)
				}
			}
		}
		d.mu.Unlock()

		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if fault.Delay > 0 {
			select {
			case <-time.After(fault.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if fault.Status == 0 {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fault.Status)
		_, _ = io.WriteString(w, fault.Body)
	})
}

func faultKey(method, path string) string {
	return method + " " + strings.TrimSuffix(path, "/")
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError writes an error body in the daemon's format.
func respondError(w http.ResponseWriter, code int, errCode, message string) {
	respondJSON(w, code, map[string]string{
		"error":   http.StatusText(code),
		"code":    errCode,
		"message": message,
	})
}
