package issues

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/authz"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/models"
)

// requireIssue resolves the issue after the contributor check, so the
// comment endpoints are scoped to an issue the requester can see.
func (h *Handler) requireIssue(r *http.Request) (*models.Issue, int64, error) {
	project, requester, err := h.requireContributor(r)
	if err != nil {
		return nil, 0, err
	}
	issueID, err := pathID(r, "issueID", "issue")
	if err != nil {
		return nil, 0, err
	}
	issue, err := h.store.GetIssue(r.Context(), project.ID, issueID)
	if err != nil {
		return nil, 0, err
	}
	return issue, requester, nil
}

// CreateComment adds a comment authored by the requester, with a fresh
// opaque external identifier. Contributor only.
// POST /api/projects/{id}/issues/{id}/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	issue, requester, err := h.requireIssue(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Title == "" || req.Description == "" {
		apperr.Write(w, apperr.Validation("title and description are required"))
		return
	}

	comment := &models.Comment{
		UUID:        uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		IssueID:     issue.ID,
		AuthorID:    requester,
	}
	comment, err = h.store.CreateComment(r.Context(), comment)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), issue.ProjectID, requester, "created", "comment", comment.ID, comment.Title)
	writeJSON(w, http.StatusCreated, comment)
}

// ListComments returns an issue's comments. Contributor only.
// GET /api/projects/{id}/issues/{id}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	issue, _, err := h.requireIssue(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	comments, err := h.store.ListComments(r.Context(), issue.ID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// getOwnComment resolves the comment through its issue and checks the
// requester authored it. A comment reached through a project or issue
// it does not belong to is a 404; the resolved issue carries the real
// project id for activity recording.
func (h *Handler) getOwnComment(r *http.Request) (*models.Comment, *models.Issue, int64, error) {
	requester := middleware.UserID(r)
	projectID, err := pathID(r, "projectID", "project")
	if err != nil {
		return nil, nil, 0, err
	}
	issueID, err := pathID(r, "issueID", "issue")
	if err != nil {
		return nil, nil, 0, err
	}
	commentID, err := pathID(r, "commentID", "comment")
	if err != nil {
		return nil, nil, 0, err
	}
	issue, err := h.store.GetIssue(r.Context(), projectID, issueID)
	if err != nil {
		return nil, nil, 0, err
	}
	comment, err := h.store.GetComment(r.Context(), issue.ID, commentID)
	if err != nil {
		return nil, nil, 0, err
	}
	if !authz.IsAuthor(comment.AuthorID, requester) {
		return nil, nil, 0, apperr.Authorization()
	}
	return comment, issue, requester, nil
}

// GetComment returns one comment. Comment author only.
func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	comment, _, _, err := h.getOwnComment(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// UpdateComment applies a partial update. Comment author only.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	comment, issue, requester, err := h.getOwnComment(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	var req models.UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			apperr.Write(w, apperr.Validation("title cannot be empty"))
			return
		}
		comment.Title = *req.Title
	}
	if req.Description != nil {
		comment.Description = *req.Description
	}

	if err := h.store.UpdateComment(r.Context(), comment); err != nil {
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), issue.ProjectID, requester, "updated", "comment", comment.ID, comment.Title)
	writeJSON(w, http.StatusOK, comment)
}

// DeleteComment removes a comment. Comment author only.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	comment, issue, requester, err := h.getOwnComment(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.store.DeleteComment(r.Context(), comment.ID); err != nil {
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), issue.ProjectID, requester, "deleted", "comment", comment.ID, comment.Title)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("comment %q deleted", comment.Title),
	})
}
