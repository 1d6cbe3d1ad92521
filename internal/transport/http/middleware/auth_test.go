package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/requestid"
	"github.com/ErlanBelekov/task-tracker/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct {
	authenticate func(ctx context.Context, token string) (domain.Identity, error)
	gotToken     string
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	f.gotToken = token
	return f.authenticate(ctx, token)
}

// newEngine protects GET /protected with Auth; the handler echoes the user ID.
func newEngine(authn middleware.Authenticator) *gin.Engine {
	r := gin.New()
	r.GET("/protected", middleware.Auth(authn, slog.New(slog.NewTextHandler(io.Discard, nil))), func(c *gin.Context) {
		identity, ok := middleware.IdentityFrom(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, identity.UserID)
	})
	return r
}

func validAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{authenticate: func(_ context.Context, token string) (domain.Identity, error) {
		if token == "good" {
			return domain.Identity{UserID: "user-abc", Email: "a@example.com", Username: "abc"}, nil
		}
		return domain.Identity{}, domain.ErrUnauthorized
	}}
}

func doGet(r http.Handler, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader_Returns401(t *testing.T) {
	if w := doGet(newEngine(validAuthenticator()), ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_NonBearerScheme_Returns401(t *testing.T) {
	if w := doGet(newEngine(validAuthenticator()), "Basic dXNlcjpwYXNz"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_EmptyBearer_Returns401(t *testing.T) {
	authn := validAuthenticator()
	if w := doGet(newEngine(authn), "Bearer   "); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if authn.gotToken != "" {
		t.Error("authenticator should not be called without a token")
	}
}

func TestAuth_RejectedToken_Returns401(t *testing.T) {
	if w := doGet(newEngine(validAuthenticator()), "Bearer expired"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_StoreFailure_Returns500(t *testing.T) {
	authn := &fakeAuthenticator{authenticate: func(context.Context, string) (domain.Identity, error) {
		return domain.Identity{}, errors.New("connection refused")
	}}
	if w := doGet(newEngine(authn), "Bearer good"); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestAuth_ValidToken_SetsIdentity(t *testing.T) {
	w := doGet(newEngine(validAuthenticator()), "Bearer good")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "user-abc" {
		t.Errorf("body = %q, want user-abc", got)
	}
}

func TestIdentityFrom_WithoutAuth(t *testing.T) {
	r := gin.New()
	r.GET("/open", func(c *gin.Context) {
		if _, ok := middleware.IdentityFrom(c); ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, requestid.FromContext(c.Request.Context()))
	})

	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"no header", "", false},
		{"well formed", "client-req-42", true},
		{"header injection", "bad\r\nvalue", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header[requestid.Header] = []string{tc.incoming}
			}
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestid.Header)
			if got == "" || got != w.Body.String() {
				t.Fatalf("header %q and context %q should match and be set", got, w.Body.String())
			}
			if tc.keep && got != tc.incoming {
				t.Errorf("request id = %q, want %q", got, tc.incoming)
			}
			if !tc.keep && got == tc.incoming {
				t.Errorf("request id %q should have been replaced", got)
			}
		})
	}
}
