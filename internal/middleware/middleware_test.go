package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medcoding/api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v\n%s", err, w.Body.String())
	}
	return body.Error
}

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	id := w.Header().Get(RequestIDHeader)
	if id == "" || w.Body.String() != id {
		t.Errorf("expected generated id in header and context, got header %q body %q", id, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	w = perform(r, req)
	if got := w.Header().Get(RequestIDHeader); got != "client-supplied" {
		t.Errorf("expected client id to be reused, got %q", got)
	}
}

func TestValidationFailedBody(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		ValidationFailed(c, []models.FieldError{{Field: "clinical_text", Message: "field required"}})
	})

	w := perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	apiErr := decodeError(t, w)
	if apiErr.Code != ErrCodeValidation || len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != "clinical_text" {
		t.Errorf("unexpected error body %+v", apiErr)
	}
}

func TestRateLimiterAllowAndRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, 1, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("keys must be limited independently")
	}

	now = now.Add(90 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("one token should be refilled after a minute")
	}
	if rl.Allow("a") {
		t.Error("partial period must not refill")
	}

	now = now.Add(30 * time.Second)
	if !rl.Allow("a") {
		t.Error("carried-over remainder should complete the next period")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(NewRateLimiter(1, 1, time.Hour)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "1" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("unexpected headers %v", w.Header())
	}

	w = perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if apiErr := decodeError(t, w); apiErr.Code != ErrCodeRateLimited || apiErr.RetryAfter != int(time.Hour.Milliseconds()) {
		t.Errorf("unexpected error body %+v", apiErr)
	}
	if w.Header().Get("Retry-After") != "3600" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
}

func TestCircuitBreakerTransitions(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreakerWithConfig(2, 2, 10*time.Second)
	cb.now = func() time.Time { return now }

	var transitions []string
	cb.OnStateChange = func(from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	cb.RecordFailure()
	if cb.State() != CircuitClosed {
		t.Fatal("one failure must not open the circuit")
	}
	cb.RecordFailure()
	if cb.State() != CircuitOpen || cb.Allow() {
		t.Fatal("circuit should be open and reject")
	}

	now = now.Add(11 * time.Second)
	if !cb.Allow() || cb.State() != CircuitHalfOpen {
		t.Fatal("circuit should be half-open after the timeout")
	}
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatal("failure while half-open should re-open")
	}

	now = now.Add(11 * time.Second)
	cb.Allow()
	cb.RecordSuccess()
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after successes, got %v", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerMiddlewareCountsServerErrors(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(2, 1, time.Minute)
	status := http.StatusInternalServerError

	r := gin.New()
	r.Use(CircuitBreakerMiddleware(cb))
	r.GET("/", func(c *gin.Context) { c.Status(status) })

	perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open circuit after two 500s, got %v", cb.State())
	}

	w := perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if apiErr := decodeError(t, w); apiErr.Code != ErrCodeCircuitOpen {
		t.Errorf("unexpected error code %q", apiErr.Code)
	}
}

func TestCircuitBreakerMiddlewareIgnoresClientErrors(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 1, time.Minute)

	r := gin.New()
	r.Use(CircuitBreakerMiddleware(cb))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	for i := 0; i < 3; i++ {
		perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if cb.State() != CircuitClosed {
		t.Errorf("4xx responses must not open the circuit, got %v", cb.State())
	}
}
