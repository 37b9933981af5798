package store

import (
	"context"
	"fmt"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/models"
)

// CreateProject inserts the project and its author's contributor row in
// one transaction, so a partial failure leaves neither behind.
func (s *PostgresStore) CreateProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO projects (title, description, type, author_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_time`,
		p.Title, p.Description, p.Type, p.AuthorID,
	).Scan(&p.ID, &p.CreatedTime)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("insert project: %w", err))
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO contributors (user_id, project_id) VALUES ($1, $2)`,
		p.AuthorID, p.ID,
	)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("insert author contributor: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// ListProjectsForUser returns every project the user authors or
// contributes to, oldest first for a stable listing.
func (s *PostgresStore) ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT p.id, p.title, p.description, p.type, p.author_id, p.created_time
		 FROM projects p
		 LEFT JOIN contributors c ON c.project_id = p.id
		 WHERE p.author_id = $1 OR c.user_id = $1
		 ORDER BY p.created_time, p.id`, userID,
	)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Type, &p.AuthorID, &p.CreatedTime); err != nil {
			return nil, apperr.Internal(err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, type, author_id, created_time
		 FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Description, &p.Type, &p.AuthorID, &p.CreatedTime)
	if err != nil {
		return nil, notFoundOr(err, "project")
	}
	return &p, nil
}

// GetProjectDetail loads a project with its author username, full
// contributor roster and issue summaries.
func (s *PostgresStore) GetProjectDetail(ctx context.Context, id int64) (*models.ProjectDetail, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &models.ProjectDetail{Project: *p}

	err = s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, p.AuthorID).Scan(&d.Author)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	d.Contributors, err = s.ListContributors(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title FROM issues WHERE project_id = $1 ORDER BY created_time, id`, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	d.Issues = []models.IssueSummary{}
	for rows.Next() {
		var is models.IssueSummary
		if err := rows.Scan(&is.ID, &is.Title); err != nil {
			return nil, apperr.Internal(err)
		}
		d.Issues = append(d.Issues, is)
	}
	return d, rows.Err()
}

// UpdateProject writes the full mutable field set; callers apply
// partial updates onto a fetched row first.
func (s *PostgresStore) UpdateProject(ctx context.Context, p *models.Project) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET title = $1, description = $2, type = $3 WHERE id = $4`,
		p.Title, p.Description, p.Type, p.ID,
	)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("project")
	}
	return nil
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("project")
	}
	return nil
}

// ── contributors ─────────────────────────────────────────────

// HasContributor reports whether a membership row exists. This backs
// the IsContributor predicate.
func (s *PostgresStore) HasContributor(ctx context.Context, projectID, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contributors WHERE project_id = $1 AND user_id = $2)`,
		projectID, userID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return exists, nil
}

func (s *PostgresStore) ListContributors(ctx context.Context, projectID int64) ([]models.Contributor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.user_id, c.project_id, u.username
		 FROM contributors c JOIN users u ON u.id = c.user_id
		 WHERE c.project_id = $1 ORDER BY c.id`, projectID,
	)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	contributors := []models.Contributor{}
	for rows.Next() {
		var c models.Contributor
		if err := rows.Scan(&c.ID, &c.UserID, &c.ProjectID, &c.Username); err != nil {
			return nil, apperr.Internal(err)
		}
		contributors = append(contributors, c)
	}
	return contributors, rows.Err()
}

// AddContributor creates a membership row. The unique constraint on
// (user_id, project_id) makes the duplicate check race-free.
func (s *PostgresStore) AddContributor(ctx context.Context, projectID, userID int64) (*models.Contributor, error) {
	var c models.Contributor
	err := s.pool.QueryRow(ctx,
		`INSERT INTO contributors (user_id, project_id) VALUES ($1, $2) RETURNING id`,
		userID, projectID,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Validation("this user is already a contributor of the project")
		}
		return nil, apperr.Internal(err)
	}
	c.UserID = userID
	c.ProjectID = projectID
	err = s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&c.Username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &c, nil
}

func (s *PostgresStore) GetContributor(ctx context.Context, projectID, contributorID int64) (*models.Contributor, error) {
	var c models.Contributor
	err := s.pool.QueryRow(ctx,
		`SELECT c.id, c.user_id, c.project_id, u.username
		 FROM contributors c JOIN users u ON u.id = c.user_id
		 WHERE c.project_id = $1 AND c.id = $2`, projectID, contributorID,
	).Scan(&c.ID, &c.UserID, &c.ProjectID, &c.Username)
	if err != nil {
		return nil, notFoundOr(err, "contributor")
	}
	return &c, nil
}

func (s *PostgresStore) GetContributorByUsername(ctx context.Context, projectID int64, username string) (*models.Contributor, error) {
	var c models.Contributor
	err := s.pool.QueryRow(ctx,
		`SELECT c.id, c.user_id, c.project_id, u.username
		 FROM contributors c JOIN users u ON u.id = c.user_id
		 WHERE c.project_id = $1 AND u.username = $2`, projectID, username,
	).Scan(&c.ID, &c.UserID, &c.ProjectID, &c.Username)
	if err != nil {
		return nil, notFoundOr(err, "contributor")
	}
	return &c, nil
}

func (s *PostgresStore) RemoveContributor(ctx context.Context, contributorID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contributors WHERE id = $1`, contributorID)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contributor")
	}
	return nil
}
