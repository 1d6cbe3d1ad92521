package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
)

type projectUsecaser interface {
	Create(ctx context.Context, userID string, in usecase.CreateProjectInput) (*domain.Project, error)
	List(ctx context.Context, userID string) ([]*domain.Project, error)
	Get(ctx context.Context, userID, projectID string) (*domain.Project, error)
	Update(ctx context.Context, userID, projectID string, in usecase.UpdateProjectInput) (*domain.Project, error)
	Delete(ctx context.Context, userID, projectID string) error
	AddMember(ctx context.Context, actorID, projectID string, in usecase.AddMemberInput) (*domain.Membership, error)
	ListMembers(ctx context.Context, userID, projectID string) ([]*domain.MemberView, error)
	UpdateMemberRole(ctx context.Context, actorID, projectID, userID string, role domain.Role) (*domain.Membership, error)
	RemoveMember(ctx context.Context, actorID, projectID, userID string) error
}

type ProjectHandler struct {
	uc     projectUsecaser
	logger *slog.Logger
}

func NewProjectHandler(uc projectUsecaser, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{uc: uc, logger: logger.With("component", "project_handler")}
}

type createProjectRequest struct {
	Name        string `json:"name"        binding:"required,max=100"`
	Description string `json:"description" binding:"max=2000"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// addMemberRequest names the user by ID or by email.
type addMemberRequest struct {
	UserID string `json:"user_id" binding:"omitempty,uuid"`
	Email  string `json:"email"   binding:"omitempty,email"`
	Role   string `json:"role"    binding:"omitempty,oneof=admin member"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.uc.Create(c.Request.Context(), id.UserID, usecase.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, "create project", err)
		return
	}
	c.JSON(http.StatusCreated, toProjectResponse(p))
}

func (h *ProjectHandler) List(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projects, err := h.uc.List(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, h.logger, "list projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": mapSlice(projects, toProjectResponse)})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	p, err := h.uc.Get(c.Request.Context(), id.UserID, projectID)
	if err != nil {
		respondError(c, h.logger, "get project", err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(p))
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.uc.Update(c.Request.Context(), id.UserID, projectID, usecase.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, "update project", err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(p))
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id.UserID, projectID); err != nil {
		respondError(c, h.logger, "delete project", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.UserID == "" && req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either user_id or email is required"})
		return
	}

	m, err := h.uc.AddMember(c.Request.Context(), id.UserID, projectID, usecase.AddMemberInput{
		UserID: req.UserID,
		Email:  req.Email,
		Role:   domain.Role(req.Role),
	})
	if err != nil {
		respondError(c, h.logger, "add member", err)
		return
	}
	c.JSON(http.StatusCreated, toMemberResponse(&domain.MemberView{Membership: *m}))
}

func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	members, err := h.uc.ListMembers(c.Request.Context(), id.UserID, projectID)
	if err != nil {
		respondError(c, h.logger, "list members", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": mapSlice(members, toMemberResponse)})
}

func (h *ProjectHandler) UpdateMemberRole(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		respondError(c, h.logger, "update member role", err)
		return
	}

	m, err := h.uc.UpdateMemberRole(c.Request.Context(), id.UserID, projectID, userID, role)
	if err != nil {
		respondError(c, h.logger, "update member role", err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(&domain.MemberView{Membership: *m}))
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.uc.RemoveMember(c.Request.Context(), id.UserID, projectID, userID); err != nil {
		respondError(c, h.logger, "remove member", err)
		return
	}
	c.Status(http.StatusNoContent)
}
