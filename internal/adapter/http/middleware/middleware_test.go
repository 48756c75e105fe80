package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-123" || rec.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("expected caller id to propagate, got ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" || seen == "req-123" {
		t.Fatalf("expected a generated id, got %q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected response header to echo generated id")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	testCases := []struct {
		name   string
		slow   time.Duration
		status int
		delay  time.Duration
		want   []string
	}{
		{
			name:   "server error logged at error",
			status: http.StatusBadGateway,
			want:   []string{`"level":"error"`, `"status":502`, `"request_id":"req-9"`, `"path":"/api/v1/payouts"`, `"bytes":2`},
		},
		{
			name:   "slow request logged at warn",
			slow:   time.Millisecond,
			status: http.StatusOK,
			delay:  5 * time.Millisecond,
			want:   []string{`"level":"warn"`, `"status":200`},
		},
		{
			name:   "fast request logged at info",
			slow:   time.Minute,
			status: http.StatusOK,
			want:   []string{`"level":"info"`, `"query":"start=a"`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewLoggingMiddleware(zerolog.New(&buf), tc.slow)

			h := RequestID(m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(tc.delay)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("{}"))
			})))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts?start=a", nil)
			req.Header.Set(RequestIDHeader, "req-9")
			h.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Fatalf("expected log to contain %s, got %s", want, out)
				}
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Recovery(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var body panicResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RequestID != "req-1" {
		t.Fatalf("expected request id in body, got %+v", body)
	}
	if !strings.Contains(buf.String(), `"panic":"boom"`) {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}

func TestRecoveryReraisesAbort(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rvr := recover(); rvr != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rvr)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestResponseRecorderKeepsFirstStatus(t *testing.T) {
	rec := newResponseRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("abc"))
	rec.WriteHeader(http.StatusTeapot)

	if rec.status != http.StatusOK || rec.bytes != 3 {
		t.Fatalf("unexpected recorder state: status=%d bytes=%d", rec.status, rec.bytes)
	}
}
