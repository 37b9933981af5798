package store

import (
	"context"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/models"
)

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password, birth_date, can_be_contacted, can_data_be_shared)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_time`,
		u.Username, u.Password, u.BirthDate, u.CanBeContacted, u.CanDataBeShared,
	).Scan(&u.ID, &u.CreatedTime)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Validation("username %q is already taken", u.Username)
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password, birth_date, can_be_contacted, can_data_be_shared, created_time
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Password, &u.BirthDate, &u.CanBeContacted, &u.CanDataBeShared, &u.CreatedTime)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password, birth_date, can_be_contacted, can_data_be_shared, created_time
		 FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Password, &u.BirthDate, &u.CanBeContacted, &u.CanDataBeShared, &u.CreatedTime)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

// UpdateUser writes the full mutable field set; callers apply partial
// updates onto a fetched row first.
func (s *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET username = $1, password = $2, birth_date = $3,
		        can_be_contacted = $4, can_data_be_shared = $5
		 WHERE id = $6`,
		u.Username, u.Password, u.BirthDate, u.CanBeContacted, u.CanDataBeShared, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Validation("username %q is already taken", u.Username)
		}
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

// DeleteUser removes the account; authored projects, issues, comments
// and contributor rows go with it via cascade, assignments are nulled.
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
