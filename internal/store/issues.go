package store

import (
	"context"
	"database/sql"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/models"
)

const issueColumns = `
	i.id, i.title, i.description, i.priority, i.tag, i.progress,
	i.author_id, a.username, i.assignee_id, COALESCE(s.username, ''),
	i.project_id, i.created_time`

const issueJoins = `
	FROM issues i
	JOIN users a ON a.id = i.author_id
	LEFT JOIN users s ON s.id = i.assignee_id`

func scanIssue(row interface{ Scan(...any) error }) (*models.Issue, error) {
	var i models.Issue
	var assigneeID sql.NullInt64
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.Priority, &i.Tag, &i.Progress,
		&i.AuthorID, &i.Author, &assigneeID, &i.Assignee, &i.ProjectID, &i.CreatedTime)
	if err != nil {
		return nil, err
	}
	if assigneeID.Valid {
		i.AssigneeID = &assigneeID.Int64
	}
	return &i, nil
}

func (s *PostgresStore) CreateIssue(ctx context.Context, i *models.Issue) (*models.Issue, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO issues (title, description, priority, tag, progress, author_id, assignee_id, project_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_time`,
		i.Title, i.Description, i.Priority, i.Tag, i.Progress, i.AuthorID, i.AssigneeID, i.ProjectID,
	).Scan(&i.ID, &i.CreatedTime)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.GetIssue(ctx, i.ProjectID, i.ID)
}

func (s *PostgresStore) ListIssues(ctx context.Context, projectID int64) ([]models.Issue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+issueColumns+issueJoins+`
		 WHERE i.project_id = $1 ORDER BY i.created_time, i.id`, projectID,
	)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	issues := []models.Issue{}
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		issues = append(issues, *i)
	}
	return issues, rows.Err()
}

func (s *PostgresStore) GetIssue(ctx context.Context, projectID, issueID int64) (*models.Issue, error) {
	i, err := scanIssue(s.pool.QueryRow(ctx,
		`SELECT `+issueColumns+issueJoins+`
		 WHERE i.project_id = $1 AND i.id = $2`, projectID, issueID,
	))
	if err != nil {
		return nil, notFoundOr(err, "issue")
	}
	return i, nil
}

// UpdateIssue writes the full mutable field set; callers apply partial
// updates onto a fetched row first.
func (s *PostgresStore) UpdateIssue(ctx context.Context, i *models.Issue) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE issues SET title = $1, description = $2, priority = $3, tag = $4,
		        progress = $5, assignee_id = $6
		 WHERE id = $7`,
		i.Title, i.Description, i.Priority, i.Tag, i.Progress, i.AssigneeID, i.ID,
	)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("issue")
	}
	return nil
}

func (s *PostgresStore) DeleteIssue(ctx context.Context, issueID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM issues WHERE id = $1`, issueID)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("issue")
	}
	return nil
}

// ── comments ─────────────────────────────────────────────────

func (s *PostgresStore) CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO comments (uuid, title, description, issue_id, author_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_time`,
		c.UUID, c.Title, c.Description, c.IssueID, c.AuthorID,
	).Scan(&c.ID, &c.CreatedTime)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	err = s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, c.AuthorID).Scan(&c.Author)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, issueID int64) ([]models.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.uuid, c.title, c.description, c.issue_id, c.author_id, u.username, c.created_time
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.issue_id = $1 ORDER BY c.created_time, c.id`, issueID,
	)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.UUID, &c.Title, &c.Description, &c.IssueID, &c.AuthorID, &c.Author, &c.CreatedTime); err != nil {
			return nil, apperr.Internal(err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *PostgresStore) GetComment(ctx context.Context, issueID, commentID int64) (*models.Comment, error) {
	var c models.Comment
	err := s.pool.QueryRow(ctx,
		`SELECT c.id, c.uuid, c.title, c.description, c.issue_id, c.author_id, u.username, c.created_time
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.issue_id = $1 AND c.id = $2`, issueID, commentID,
	).Scan(&c.ID, &c.UUID, &c.Title, &c.Description, &c.IssueID, &c.AuthorID, &c.Author, &c.CreatedTime)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	return &c, nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, c *models.Comment) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET title = $1, description = $2 WHERE id = $3`,
		c.Title, c.Description, c.ID,
	)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("comment")
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("comment")
	}
	return nil
}

// ── attachments ──────────────────────────────────────────────

func (s *PostgresStore) CreateAttachment(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attachments (issue_id, author_id, filename, content_type, size_bytes, object_key)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_time`,
		a.IssueID, a.AuthorID, a.Filename, a.ContentType, a.SizeBytes, a.ObjectKey,
	).Scan(&a.ID, &a.CreatedTime)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, issueID int64) ([]models.Attachment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, issue_id, author_id, filename, content_type, size_bytes, object_key, created_time
		 FROM attachments WHERE issue_id = $1 ORDER BY id`, issueID,
	)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	attachments := []models.Attachment{}
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.IssueID, &a.AuthorID, &a.Filename, &a.ContentType, &a.SizeBytes, &a.ObjectKey, &a.CreatedTime); err != nil {
			return nil, apperr.Internal(err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func (s *PostgresStore) GetAttachment(ctx context.Context, issueID, attachmentID int64) (*models.Attachment, error) {
	var a models.Attachment
	err := s.pool.QueryRow(ctx,
		`SELECT id, issue_id, author_id, filename, content_type, size_bytes, object_key, created_time
		 FROM attachments WHERE issue_id = $1 AND id = $2`, issueID, attachmentID,
	).Scan(&a.ID, &a.IssueID, &a.AuthorID, &a.Filename, &a.ContentType, &a.SizeBytes, &a.ObjectKey, &a.CreatedTime)
	if err != nil {
		return nil, notFoundOr(err, "attachment")
	}
	return &a, nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, attachmentID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, attachmentID)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("attachment")
	}
	return nil
}
