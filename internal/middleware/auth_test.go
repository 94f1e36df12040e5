package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const testSecret = "test-secret"

func authRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(Auth(secret))
	r.GET("/", func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id)
	})
	return r
}

func TestParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, "coder-1", "coder", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.Subject != "coder-1" || claims.Role != "coder" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := ParseToken("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: expected ErrInvalidToken, got %v", err)
	}

	expired, _ := IssueToken(testSecret, "coder-1", "", -time.Minute)
	if _, err := ParseToken(testSecret, expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: expected ErrInvalidToken, got %v", err)
	}

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte(testSecret))
	if _, err := ParseToken(testSecret, noSubject); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token without subject: expected ErrInvalidToken, got %v", err)
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ParseToken(testSecret, none); err == nil {
		t.Error("unsigned token must be rejected")
	}
}

func TestAuthMiddleware(t *testing.T) {
	valid, _ := IssueToken(testSecret, "coder-1", "", time.Minute)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "coder-1"},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, "coder-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
	}

	r := authRouter(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := perform(r, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if apiErr := decodeError(t, w); apiErr.Code != ErrCodeUnauthorized {
					t.Errorf("unexpected error code %q", apiErr.Code)
				}
			}
		})
	}
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	w := perform(authRouter(""), httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth is disabled", w.Code)
	}
}

func TestGRPCUnaryInterceptor(t *testing.T) {
	interceptor := NewGRPCAuthInterceptor(testSecret, zap.NewNop()).UnaryServerInterceptor()
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		subject, _ := GetGRPCSubject(ctx)
		return subject, nil
	}
	valid, _ := IssueToken(testSecret, "svc-batch", "", time.Minute)

	tests := []struct {
		name     string
		method   string
		auth     string
		wantCode codes.Code
		wantSubj string
	}{
		{"public health check", "/grpc.health.v1.Health/Check", "", codes.OK, ""},
		{"protected without token", "/grpc.health.v1.Health/List", "", codes.Unauthenticated, ""},
		{"protected bad format", "/grpc.health.v1.Health/List", "Token abc", codes.Unauthenticated, ""},
		{"protected bad token", "/grpc.health.v1.Health/List", "Bearer abc", codes.Unauthenticated, ""},
		{"protected valid token", "/grpc.health.v1.Health/List", "Bearer " + valid, codes.OK, "svc-batch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.auth != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", tt.auth))
			} else {
				ctx = metadata.NewIncomingContext(ctx, metadata.MD{})
			}

			resp, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			if got := status.Code(err); got != tt.wantCode {
				t.Fatalf("code = %v, want %v (err %v)", got, tt.wantCode, err)
			}
			if err == nil && resp.(string) != tt.wantSubj {
				t.Errorf("subject = %q, want %q", resp, tt.wantSubj)
			}
		})
	}
}

func TestGRPCInterceptorDisabledWithoutSecret(t *testing.T) {
	interceptor := NewGRPCAuthInterceptor("", zap.NewNop()).UnaryServerInterceptor()
	called := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/List"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			called = true
			return nil, nil
		})
	if err != nil || !called {
		t.Errorf("expected pass-through, got called=%v err=%v", called, err)
	}
}
