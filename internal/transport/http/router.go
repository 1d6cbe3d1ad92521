package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/task-tracker/internal/transport/http/handler"
	"github.com/ErlanBelekov/task-tracker/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Auth        *handler.AuthHandler
	Projects    *handler.ProjectHandler
	Tasks       *handler.TaskHandler
	Attachments *handler.AttachmentHandler
	Subtasks    *handler.SubtaskHandler
	Notes       *handler.NoteHandler
}

type RouterConfig struct {
	Logger        *slog.Logger
	Authenticator middleware.Authenticator
	Handlers      Handlers
	// UploadDir, when set, is served under /uploads for the local store.
	UploadDir string
	HSTS      bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	h := cfg.Handlers

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(cfg.HSTS))
	// request_id comes from the log ContextHandler, not from slog-gin.
	r.Use(sloggin.NewWithConfig(cfg.Logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    false,
		Filters:          []sloggin.Filter{sloggin.IgnorePath("/api/v1/healthcheck")},
	}))
	r.Use(middleware.Metrics())

	if cfg.UploadDir != "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	v1 := r.Group("/api/v1")
	v1.GET("/healthcheck", handler.Healthcheck)

	authMW := middleware.Auth(cfg.Authenticator, cfg.Logger)

	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh-token", h.Auth.RefreshToken)
	auth.GET("/verify-email", h.Auth.VerifyEmail)
	auth.POST("/resend-verification", h.Auth.ResendVerification)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)
	auth.POST("/logout", authMW, h.Auth.Logout)
	auth.GET("/me", authMW, h.Auth.Me)
	auth.POST("/change-password", authMW, h.Auth.ChangePassword)

	// Everything below requires a valid access token.
	api := v1.Group("", authMW)

	projects := api.Group("/projects")
	projects.POST("", h.Projects.Create)
	projects.GET("", h.Projects.List)
	projects.GET("/:projectId", h.Projects.Get)
	projects.PUT("/:projectId", h.Projects.Update)
	projects.DELETE("/:projectId", h.Projects.Delete)
	projects.POST("/:projectId/members", h.Projects.AddMember)
	projects.GET("/:projectId/members", h.Projects.ListMembers)
	projects.PUT("/:projectId/members/:userId", h.Projects.UpdateMemberRole)
	projects.DELETE("/:projectId/members/:userId", h.Projects.RemoveMember)
	projects.GET("/:projectId/tasks", h.Tasks.ListByProject)

	tasks := api.Group("/tasks")
	tasks.POST("", h.Tasks.Create)
	tasks.GET("", h.Tasks.ListMine)
	tasks.GET("/:taskId", h.Tasks.Get)
	tasks.PUT("/:taskId", h.Tasks.Update)
	tasks.DELETE("/:taskId", h.Tasks.Delete)
	tasks.POST("/:taskId/attachments", h.Attachments.Upload)
	tasks.DELETE("/:taskId/attachments/:attachmentId", h.Attachments.Delete)
	tasks.GET("/:taskId/subtasks", h.Subtasks.ListByTask)
	tasks.GET("/:taskId/notes", h.Notes.ListByTask)

	subtasks := api.Group("/subtasks")
	subtasks.POST("", h.Subtasks.Create)
	subtasks.PATCH("/:subtaskId/toggle", h.Subtasks.Toggle)
	subtasks.DELETE("/:subtaskId", h.Subtasks.Delete)

	notes := api.Group("/notes")
	notes.POST("", h.Notes.Create)
	notes.PUT("/:noteId", h.Notes.Update)
	notes.DELETE("/:noteId", h.Notes.Delete)

	return r
}
