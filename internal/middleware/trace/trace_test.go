package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	applog "ledgerbook/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Component: applog.ComponentHTTP})
	m := NewMiddleware(logger)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if applog.FromContext(r.Context()).Component() != applog.ComponentTrace {
			t.Errorf("request logger missing from context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledgers/u", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected uuid request id, got %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q != context id %q", rr.Header().Get(HeaderRequestID), seen)
	}
	if !strings.Contains(buf.String(), "status_code=418") {
		t.Fatalf("completion log missing status: %s", buf.String())
	}
	if got := m.GetMetrics(); got.TotalRequests != 1 || got.ServerErrors != 0 {
		t.Fatalf("unexpected metrics %+v", got)
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(applog.New(applog.Config{Output: &bytes.Buffer{}}))
	id := uuid.NewString()

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Fatalf("expected %q, got %q", id, seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" {
		t.Fatalf("malformed incoming id was kept")
	}
}
