// Package issues implements the issue engine and its nested comment
// and attachment resources.
package issues

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/authz"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/models"
)

// IssueStore defines the issue, comment and attachment persistence the
// handlers need.
type IssueStore interface {
	CreateIssue(ctx context.Context, i *models.Issue) (*models.Issue, error)
	ListIssues(ctx context.Context, projectID int64) ([]models.Issue, error)
	GetIssue(ctx context.Context, projectID, issueID int64) (*models.Issue, error)
	UpdateIssue(ctx context.Context, i *models.Issue) error
	DeleteIssue(ctx context.Context, issueID int64) error

	CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error)
	ListComments(ctx context.Context, issueID int64) ([]models.Comment, error)
	GetComment(ctx context.Context, issueID, commentID int64) (*models.Comment, error)
	UpdateComment(ctx context.Context, c *models.Comment) error
	DeleteComment(ctx context.Context, commentID int64) error

	CreateAttachment(ctx context.Context, a *models.Attachment) (*models.Attachment, error)
	ListAttachments(ctx context.Context, issueID int64) ([]models.Attachment, error)
	GetAttachment(ctx context.Context, issueID, attachmentID int64) (*models.Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID int64) error
}

// ProjectStore resolves the project owning an issue.
type ProjectStore interface {
	GetProject(ctx context.Context, id int64) (*models.Project, error)
}

// UserStore resolves assignee usernames.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// FileStore is the object storage backing attachments.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Recorder records activity events, best-effort.
type Recorder interface {
	Record(ctx context.Context, projectID, actorID int64, action, objectType string, objectID int64, detail string)
}

// Handler holds the issue HTTP handlers.
type Handler struct {
	store    IssueStore
	projects ProjectStore
	users    UserStore
	files    FileStore
	checker  *authz.Checker
	recorder Recorder
}

func NewHandler(store IssueStore, projects ProjectStore, users UserStore, files FileStore, checker *authz.Checker, recorder Recorder) *Handler {
	return &Handler{store: store, projects: projects, users: users, files: files, checker: checker, recorder: recorder}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, name, what string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apperr.NotFound(what)
	}
	return id, nil
}

// requireContributor resolves the project and checks the requester
// holds a contributor row on it.
func (h *Handler) requireContributor(r *http.Request) (*models.Project, int64, error) {
	requester := middleware.UserID(r)
	projectID, err := pathID(r, "projectID", "project")
	if err != nil {
		return nil, 0, err
	}
	project, err := h.projects.GetProject(r.Context(), projectID)
	if err != nil {
		return nil, 0, err
	}
	ok, err := h.checker.IsContributor(r.Context(), project.ID, requester)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, apperr.Authorization()
	}
	return project, requester, nil
}

// resolveAssignee maps an assignee username to a user id, enforcing
// that the user is the project author or a current contributor.
func (h *Handler) resolveAssignee(ctx context.Context, project *models.Project, username string) (*int64, error) {
	user, err := h.users.GetUserByUsername(ctx, username)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Validation("%q cannot be assigned: not a contributor of the project", username)
		}
		return nil, err
	}
	if user.ID != project.AuthorID {
		ok, err := h.checker.IsContributor(ctx, project.ID, user.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Validation("%q cannot be assigned: not a contributor of the project", username)
		}
	}
	return &user.ID, nil
}

// Create makes a new issue authored by the requester. Contributor only.
// An omitted assignee stays unset. POST /api/projects/{id}/issues.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	project, requester, err := h.requireContributor(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	var req models.CreateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Title == "" || req.Description == "" {
		apperr.Write(w, apperr.Validation("title and description are required"))
		return
	}
	if !models.ValidPriority(req.Priority) {
		apperr.Write(w, apperr.Validation("priority must be one of LOW, MEDIUM, HIGH"))
		return
	}
	if !models.ValidTag(req.Tag) {
		apperr.Write(w, apperr.Validation("tag must be one of BUG, FEATURE, TASK"))
		return
	}
	if req.Progress == "" {
		req.Progress = models.ProgressTodo
	}
	if !models.ValidProgress(req.Progress) {
		apperr.Write(w, apperr.Validation("progress must be one of TODO, INPROGRESS, FINISHED"))
		return
	}

	issue := &models.Issue{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tag:         req.Tag,
		Progress:    req.Progress,
		AuthorID:    requester,
		ProjectID:   project.ID,
	}
	if req.Assignee != "" {
		issue.AssigneeID, err = h.resolveAssignee(r.Context(), project, req.Assignee)
		if err != nil {
			apperr.Write(w, err)
			return
		}
	}

	issue, err = h.store.CreateIssue(r.Context(), issue)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), project.ID, requester, "created", "issue", issue.ID, issue.Title)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("issue %q created", issue.Title),
		"issue":   issue,
	})
}

// List returns a project's issues. Contributor only.
// GET /api/projects/{id}/issues.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	project, _, err := h.requireContributor(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	issues, err := h.store.ListIssues(r.Context(), project.ID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

// getOwnIssue resolves the issue and checks the requester authored it.
// Project authorship grants nothing here unless it is the same person.
func (h *Handler) getOwnIssue(r *http.Request) (*models.Issue, int64, error) {
	requester := middleware.UserID(r)
	projectID, err := pathID(r, "projectID", "project")
	if err != nil {
		return nil, 0, err
	}
	issueID, err := pathID(r, "issueID", "issue")
	if err != nil {
		return nil, 0, err
	}
	issue, err := h.store.GetIssue(r.Context(), projectID, issueID)
	if err != nil {
		return nil, 0, err
	}
	if !authz.IsAuthor(issue.AuthorID, requester) {
		return nil, 0, apperr.Authorization()
	}
	return issue, requester, nil
}

// Get returns one issue. Issue author only.
// GET /api/projects/{id}/issues/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	issue, _, err := h.getOwnIssue(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// Update applies a partial update regardless of verb. Issue author
// only. Progress may move between any of the three states.
// PUT /api/projects/{id}/issues/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	issue, requester, err := h.getOwnIssue(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	var req models.UpdateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			apperr.Write(w, apperr.Validation("title cannot be empty"))
			return
		}
		issue.Title = *req.Title
	}
	if req.Description != nil {
		issue.Description = *req.Description
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			apperr.Write(w, apperr.Validation("priority must be one of LOW, MEDIUM, HIGH"))
			return
		}
		issue.Priority = *req.Priority
	}
	if req.Tag != nil {
		if !models.ValidTag(*req.Tag) {
			apperr.Write(w, apperr.Validation("tag must be one of BUG, FEATURE, TASK"))
			return
		}
		issue.Tag = *req.Tag
	}
	if req.Progress != nil {
		if !models.ValidProgress(*req.Progress) {
			apperr.Write(w, apperr.Validation("progress must be one of TODO, INPROGRESS, FINISHED"))
			return
		}
		issue.Progress = *req.Progress
	}
	if req.Assignee != nil {
		if *req.Assignee == "" {
			issue.AssigneeID = nil
			issue.Assignee = ""
		} else {
			project, err := h.projects.GetProject(r.Context(), issue.ProjectID)
			if err != nil {
				apperr.Write(w, err)
				return
			}
			issue.AssigneeID, err = h.resolveAssignee(r.Context(), project, *req.Assignee)
			if err != nil {
				apperr.Write(w, err)
				return
			}
			issue.Assignee = *req.Assignee
		}
	}

	if err := h.store.UpdateIssue(r.Context(), issue); err != nil {
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), issue.ProjectID, requester, "updated", "issue", issue.ID, issue.Title)
	writeJSON(w, http.StatusOK, issue)
}

// Delete removes an issue with its comments and attachments. Issue
// author only; the confirmation message carries the issue's title.
// Attachment rows cascade away in the database, so their objects are
// swept out of storage here, best-effort.
// DELETE /api/projects/{id}/issues/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	issue, requester, err := h.getOwnIssue(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	attachments, err := h.store.ListAttachments(r.Context(), issue.ID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.store.DeleteIssue(r.Context(), issue.ID); err != nil {
		apperr.Write(w, err)
		return
	}
	for _, a := range attachments {
		if err := h.files.Remove(r.Context(), a.ObjectKey); err != nil {
			log.Printf("attachment object remove %s: %v", a.ObjectKey, err)
		}
	}
	h.recorder.Record(r.Context(), issue.ProjectID, requester, "deleted", "issue", issue.ID, issue.Title)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("issue %q deleted", issue.Title),
	})
}
