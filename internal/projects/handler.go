// Package projects implements the membership engine: project CRUD and
// the contributor roster, with its uniqueness and author-protection
// rules.
package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/authz"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/models"
)

// ProjectStore defines the project and contributor persistence the
// handlers need.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) (*models.Project, error)
	ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	GetProjectDetail(ctx context.Context, id int64) (*models.ProjectDetail, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id int64) error

	ListContributors(ctx context.Context, projectID int64) ([]models.Contributor, error)
	AddContributor(ctx context.Context, projectID, userID int64) (*models.Contributor, error)
	GetContributor(ctx context.Context, projectID, contributorID int64) (*models.Contributor, error)
	GetContributorByUsername(ctx context.Context, projectID int64, username string) (*models.Contributor, error)
	RemoveContributor(ctx context.Context, contributorID int64) error
}

// UserStore resolves usernames when adding contributors.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Recorder records activity events, best-effort.
type Recorder interface {
	Record(ctx context.Context, projectID, actorID int64, action, objectType string, objectID int64, detail string)
}

// Handler holds the project HTTP handlers.
type Handler struct {
	store    ProjectStore
	users    UserStore
	checker  *authz.Checker
	recorder Recorder
}

func NewHandler(store ProjectStore, users UserStore, checker *authz.Checker, recorder Recorder) *Handler {
	return &Handler{store: store, users: users, checker: checker, recorder: recorder}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func projectID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		return 0, apperr.NotFound("project")
	}
	return id, nil
}

// Create makes a new project with the requester as author; the author's
// contributor row is created in the same transaction. POST /api/projects.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)

	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Title == "" || req.Description == "" {
		apperr.Write(w, apperr.Validation("title and description are required"))
		return
	}
	if !models.ValidProjectType(req.Type) {
		apperr.Write(w, apperr.Validation("type must be one of BACKEND, FRONTEND, IOS, ANDROID"))
		return
	}

	project := &models.Project{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		AuthorID:    requester,
	}
	project, err := h.store.CreateProject(r.Context(), project)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	h.recorder.Record(r.Context(), project.ID, requester, "created", "project", project.ID, project.Title)
	writeJSON(w, http.StatusCreated, project)
}

// List returns every project the requester authors or contributes to.
// GET /api/projects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjectsForUser(r.Context(), middleware.UserID(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// Get returns the project detail with nested contributors and issue
// summaries. Requires author-or-contributor. GET /api/projects/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)
	id, err := projectID(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	ok, err := h.checker.IsAuthorOrContributor(r.Context(), project, requester)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if !ok {
		apperr.Write(w, apperr.Authorization())
		return
	}

	detail, err := h.store.GetProjectDetail(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Update applies a partial update. Author only. PUT /api/projects/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)
	id, err := projectID(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if !authz.IsAuthor(project.AuthorID, requester) {
		apperr.Write(w, apperr.Authorization())
		return
	}

	var req models.UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			apperr.Write(w, apperr.Validation("title cannot be empty"))
			return
		}
		project.Title = *req.Title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Type != nil {
		if !models.ValidProjectType(*req.Type) {
			apperr.Write(w, apperr.Validation("type must be one of BACKEND, FRONTEND, IOS, ANDROID"))
			return
		}
		project.Type = *req.Type
	}

	if err := h.store.UpdateProject(r.Context(), project); err != nil {
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), project.ID, requester, "updated", "project", project.ID, project.Title)
	writeJSON(w, http.StatusOK, project)
}

// Delete removes a project and everything it owns. Author only.
// DELETE /api/projects/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)
	id, err := projectID(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if !authz.IsAuthor(project.AuthorID, requester) {
		apperr.Write(w, apperr.Authorization())
		return
	}

	if err := h.store.DeleteProject(r.Context(), id); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListContributors returns the roster. Author only.
// GET /api/projects/{id}/contributors.
func (h *Handler) ListContributors(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)
	id, err := projectID(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if !authz.IsAuthor(project.AuthorID, requester) {
		apperr.Write(w, apperr.Authorization())
		return
	}

	contributors, err := h.store.ListContributors(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contributors)
}

// AddContributor adds a user to the roster by username. Author only;
// duplicates are rejected. POST /api/projects/{id}/contributors.
func (h *Handler) AddContributor(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)
	id, err := projectID(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if !authz.IsAuthor(project.AuthorID, requester) {
		apperr.Write(w, apperr.Authorization())
		return
	}

	var req models.AddContributorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Username == "" {
		apperr.Write(w, apperr.Validation("username is required"))
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	contributor, err := h.store.AddContributor(r.Context(), id, user.ID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), id, requester, "added", "contributor", contributor.ID, user.Username)
	writeJSON(w, http.StatusCreated, contributor)
}

// RemoveContributor deletes a membership row by contributor id (or by
// username when the path segment is not numeric). Author only. The
// author's own row can never be removed while the project exists.
// DELETE /api/projects/{id}/contributors/{id}.
func (h *Handler) RemoveContributor(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)
	id, err := projectID(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if !authz.IsProjectAuthor(project, requester) {
		apperr.Write(w, apperr.Authorization())
		return
	}

	ref := chi.URLParam(r, "contributorID")
	var contributor *models.Contributor
	if contributorID, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		contributor, err = h.store.GetContributor(r.Context(), id, contributorID)
	} else {
		contributor, err = h.store.GetContributorByUsername(r.Context(), id, ref)
	}
	if err != nil {
		apperr.Write(w, err)
		return
	}

	if contributor.UserID == project.AuthorID {
		apperr.Write(w, apperr.Validation("the project author cannot be removed from contributors"))
		return
	}

	if err := h.store.RemoveContributor(r.Context(), contributor.ID); err != nil {
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), id, requester, "removed", "contributor", contributor.ID, contributor.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("contributor %q removed from the project", contributor.Username),
	})
}
