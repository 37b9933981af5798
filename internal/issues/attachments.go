package issues

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/authz"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/models"
)

// maxAttachmentSize caps uploads at 16 MiB.
const maxAttachmentSize = 16 << 20

// UploadAttachment stores a file on an issue. Contributor only. The
// body is the raw file; filename comes from the X-Filename header or
// the query string.
// POST /api/projects/{id}/issues/{id}/attachments.
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	issue, requester, err := h.requireIssue(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	filename := r.Header.Get("X-Filename")
	if filename == "" {
		filename = r.URL.Query().Get("filename")
	}
	if filename == "" {
		apperr.Write(w, apperr.Validation("filename is required (X-Filename header or ?filename=)"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxAttachmentSize+1))
	if err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}
	if len(data) == 0 {
		apperr.Write(w, apperr.Validation("attachment body is empty"))
		return
	}
	if len(data) > maxAttachmentSize {
		apperr.Write(w, apperr.Validation("attachment exceeds the 16 MiB limit"))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("project/%d/issue/%d/%s", issue.ProjectID, issue.ID, uuid.New().String())
	if err := h.files.Upload(r.Context(), key, data, contentType); err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}

	attachment := &models.Attachment{
		IssueID:     issue.ID,
		AuthorID:    requester,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		ObjectKey:   key,
	}
	attachment, err = h.store.CreateAttachment(r.Context(), attachment)
	if err != nil {
		// Orphaned object cleanup is best-effort.
		if rmErr := h.files.Remove(r.Context(), key); rmErr != nil {
			log.Printf("attachment cleanup %s: %v", key, rmErr)
		}
		apperr.Write(w, err)
		return
	}
	h.recorder.Record(r.Context(), issue.ProjectID, requester, "added", "attachment", attachment.ID, attachment.Filename)
	writeJSON(w, http.StatusCreated, attachment)
}

// ListAttachments returns an issue's attachment metadata. Contributor
// only. GET /api/projects/{id}/issues/{id}/attachments.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	issue, _, err := h.requireIssue(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	attachments, err := h.store.ListAttachments(r.Context(), issue.ID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attachments)
}

// DownloadAttachment streams an attachment's bytes. Contributor only.
// GET /api/projects/{id}/issues/{id}/attachments/{id}.
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	issue, _, err := h.requireIssue(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	attachmentID, err := pathID(r, "attachmentID", "attachment")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	attachment, err := h.store.GetAttachment(r.Context(), issue.ID, attachmentID)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	data, contentType, err := h.files.Download(r.Context(), attachment.ObjectKey)
	if err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	w.Write(data)
}

// DeleteAttachment removes an attachment. Attachment author only. The
// attachment is resolved through its issue, so a mismatched project or
// issue path is a 404.
// DELETE /api/projects/{id}/issues/{id}/attachments/{id}.
func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)
	projectID, err := pathID(r, "projectID", "project")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	issueID, err := pathID(r, "issueID", "issue")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	attachmentID, err := pathID(r, "attachmentID", "attachment")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	issue, err := h.store.GetIssue(r.Context(), projectID, issueID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	attachment, err := h.store.GetAttachment(r.Context(), issue.ID, attachmentID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if !authz.IsAuthor(attachment.AuthorID, requester) {
		apperr.Write(w, apperr.Authorization())
		return
	}

	if err := h.store.DeleteAttachment(r.Context(), attachment.ID); err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.files.Remove(r.Context(), attachment.ObjectKey); err != nil {
		log.Printf("attachment object remove %s: %v", attachment.ObjectKey, err)
	}
	h.recorder.Record(r.Context(), issue.ProjectID, requester, "removed", "attachment", attachment.ID, attachment.Filename)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("attachment %q deleted", attachment.Filename),
	})
}
