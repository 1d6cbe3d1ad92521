package httptransport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	httptransport "github.com/ErlanBelekov/task-tracker/internal/transport/http"
	"github.com/ErlanBelekov/task-tracker/internal/transport/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type rejectAll struct{}

func (rejectAll) Authenticate(context.Context, string) (domain.Identity, error) {
	return domain.Identity{}, domain.ErrUnauthorized
}

func newRouter(t *testing.T, uploadDir string, hsts bool) *gin.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httptransport.NewRouter(httptransport.RouterConfig{
		Logger:        logger,
		Authenticator: rejectAll{},
		Handlers: httptransport.Handlers{
			Auth:        handler.NewAuthHandler(nil, logger),
			Projects:    handler.NewProjectHandler(nil, logger),
			Tasks:       handler.NewTaskHandler(nil, logger),
			Attachments: handler.NewAttachmentHandler(nil, 1<<20, logger),
			Subtasks:    handler.NewSubtaskHandler(nil, logger),
			Notes:       handler.NewNoteHandler(nil, logger),
		},
		UploadDir: uploadDir,
		HSTS:      hsts,
	})
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthcheck(t *testing.T) {
	w := get(newRouter(t, "", false), "/api/v1/healthcheck")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Server healthy and running")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestHSTS_OnlyWhenEnabled(t *testing.T) {
	w := get(newRouter(t, "", true), "/api/v1/healthcheck")
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	r := newRouter(t, "", false)
	for _, path := range []string{
		"/api/v1/auth/me",
		"/api/v1/projects",
		"/api/v1/tasks",
		"/api/v1/tasks/6f1c1d3e-2a4b-4c5d-8e9f-0a1b2c3d4e5f/notes",
	} {
		w := get(r, path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestUnknownRoute_Returns404(t *testing.T) {
	w := get(newRouter(t, "", false), "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploads_ServedOnlyForLocalStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tasks", "t1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks", "t1", "a.pdf"), []byte("%PDF-1.4"), 0o644))

	w := get(newRouter(t, dir, false), "/uploads/tasks/t1/a.pdf")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(newRouter(t, "", false), "/uploads/tasks/t1/a.pdf")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
